package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuisella/backend/internal/middleware"
	"github.com/cuisella/backend/internal/service"
)

// RecipeHandler exposes the public and owner-scoped recipe endpoints.
type RecipeHandler struct {
	recipes *service.RecipeService
}

func NewRecipeHandler(recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

func (h *RecipeHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.recipes.List(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         result.Recipes,
		"current_page": result.Page,
		"per_page":     result.PerPage,
		"last_page":    result.LastPage,
		"total":        result.Total,
	})
}

func (h *RecipeHandler) Popular(c *gin.Context) {
	recipes, err := h.recipes.ListPopular(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrNotFound)
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) ListMine(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	recipes, err := h.recipes.ListMine(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	input, err := recipeInputFromForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), user, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrNotFound)
		return
	}

	input, err := recipeInputFromForm(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), user, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrNotFound)
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted"})
}

// recipeInputFromForm extracts the multipart fields of a recipe create/update
// request. Ingredients and steps stay as their raw JSON-array strings; the
// service decodes and validates them.
func recipeInputFromForm(c *gin.Context) (service.RecipeInput, error) {
	input := service.RecipeInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Time:        c.PostForm("time"),
		Servings:    c.PostForm("servings"),
		Ingredients: c.PostForm("ingredients"),
		Steps:       c.PostForm("steps"),
	}

	header, err := c.FormFile("image")
	if err != nil {
		// No image attached.
		return input, nil
	}

	file, err := header.Open()
	if err != nil {
		return input, err
	}
	defer func() { _ = file.Close() }()

	// The size limit is checked against the header; reading stops just past
	// it so an oversized upload is never buffered whole.
	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		return input, err
	}

	input.Image = &service.ImageUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     data,
	}
	return input, nil
}
