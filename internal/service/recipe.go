package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cuisella/backend/internal/models"
	"github.com/cuisella/backend/internal/storage"
)

const (
	// RecipesPerPage is the page size for the public recipe listing.
	RecipesPerPage = 9

	// PopularLimit caps the popular listing. There is no popularity metric;
	// the endpoint returns the latest recipes for client compatibility.
	PopularLimit = 6

	// MaxImageBytes is the upload size limit for recipe images (2048 KB).
	MaxImageBytes = 2048 << 10

	maxTitleLen = 255
	maxTimeLen  = 100
)

// ImageUpload is an image file received with a create or update request.
type ImageUpload struct {
	Filename string
	Size     int64
	Data     []byte
}

// RecipeInput carries the raw transport fields of a recipe create/update
// request. Ingredients and Steps arrive as JSON-encoded array strings and are
// decoded during validation; Servings arrives as its form string.
type RecipeInput struct {
	Title       string
	Description string
	Time        string
	Servings    string
	Ingredients string
	Steps       string
	Image       *ImageUpload
}

// RecipePage is one page of the public recipe listing.
type RecipePage struct {
	Recipes  []models.Recipe
	Page     int
	PerPage  int
	LastPage int
	Total    int64
}

// RecipeService handles recipe CRUD, ownership checks and the image file
// lifecycle.
type RecipeService struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewRecipeService(db *gorm.DB, images storage.ImageStore) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// List returns one page of recipes, newest first, with the owning user.
func (s *RecipeService) List(ctx context.Context, page int) (*RecipePage, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Count(&total).Error; err != nil {
		return nil, err
	}

	recipes := []models.Recipe{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * RecipesPerPage).
		Limit(RecipesPerPage).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	s.presentAll(recipes)

	lastPage := int((total + RecipesPerPage - 1) / RecipesPerPage)
	if lastPage < 1 {
		lastPage = 1
	}
	return &RecipePage{
		Recipes:  recipes,
		Page:     page,
		PerPage:  RecipesPerPage,
		LastPage: lastPage,
		Total:    total,
	}, nil
}

// ListPopular returns the latest recipes with the owning user.
func (s *RecipeService) ListPopular(ctx context.Context) ([]models.Recipe, error) {
	recipes := []models.Recipe{}
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(PopularLimit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	s.presentAll(recipes)
	return recipes, nil
}

// Get retrieves a recipe by ID with the owning user.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Preload("User").First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.present(&recipe)
	return &recipe, nil
}

// ListMine returns the authenticated user's recipes, newest first.
func (s *RecipeService) ListMine(ctx context.Context, user *models.User) ([]models.Recipe, error) {
	recipes := []models.Recipe{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	s.presentAll(recipes)
	return recipes, nil
}

// Create validates the input, stores the optional image and persists the
// recipe owned by user.
func (s *RecipeService) Create(ctx context.Context, user *models.User, input RecipeInput) (*models.Recipe, error) {
	fields, verr := validateRecipe(input)
	if verr != nil {
		return nil, verr
	}

	recipe := models.Recipe{
		UserID:      user.ID,
		Title:       fields.title,
		Description: fields.description,
		Time:        fields.time,
		Servings:    fields.servings,
		Ingredients: fields.ingredients,
		Steps:       fields.steps,
	}

	if input.Image != nil {
		path, err := s.storeImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		recipe.ImagePath = path
	}

	if err := s.db.WithContext(ctx).Create(&recipe).Error; err != nil {
		// Row insert failed after the file write; clean up the orphan.
		s.deleteImage(ctx, recipe.ImagePath)
		return nil, err
	}

	s.present(&recipe)
	return &recipe, nil
}

// Update validates the input and replaces the recipe's fields. Only the owner
// may update. A new image replaces the old one; the old file is deleted
// best-effort.
func (s *RecipeService) Update(ctx context.Context, user *models.User, id uuid.UUID, input RecipeInput) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if recipe.UserID != user.ID {
		return nil, ErrForbidden
	}

	fields, verr := validateRecipe(input)
	if verr != nil {
		return nil, verr
	}

	recipe.Title = fields.title
	recipe.Description = fields.description
	recipe.Time = fields.time
	recipe.Servings = fields.servings
	recipe.Ingredients = fields.ingredients
	recipe.Steps = fields.steps

	if input.Image != nil {
		oldPath := recipe.ImagePath
		path, err := s.storeImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		recipe.ImagePath = path
		s.deleteImage(ctx, oldPath)
	}

	if err := s.db.WithContext(ctx).Save(&recipe).Error; err != nil {
		return nil, err
	}

	s.present(&recipe)
	return &recipe, nil
}

// Delete removes the recipe and its favorites, and best-effort deletes its
// stored image. Only the owner may delete.
func (s *RecipeService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if recipe.UserID != user.ID {
		return ErrForbidden
	}

	// Favorites cascade with the recipe row. The transactional delete keeps
	// the invariant on engines where the FK constraint is not installed.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
	if err != nil {
		return err
	}

	s.deleteImage(ctx, recipe.ImagePath)
	return nil
}

func (s *RecipeService) storeImage(ctx context.Context, image *ImageUpload) (string, error) {
	contentType := http.DetectContentType(image.Data)
	return s.images.Save(ctx, image.Filename, contentType, image.Data)
}

// deleteImage removes a stored image, logging failures instead of surfacing
// them. File deletion never aborts the primary operation.
func (s *RecipeService) deleteImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.images.Delete(ctx, path); err != nil {
		log.Printf("Failed to delete recipe image %s: %v", path, err)
	}
}

func (s *RecipeService) present(recipe *models.Recipe) {
	if recipe.ImagePath != "" {
		recipe.ImageURL = s.images.URL(recipe.ImagePath)
	}
}

func (s *RecipeService) presentAll(recipes []models.Recipe) {
	for i := range recipes {
		s.present(&recipes[i])
	}
}

type recipeFields struct {
	title       string
	description string
	time        string
	servings    *int
	ingredients models.JSONStringArray
	steps       models.JSONStringArray
}

// validateRecipe checks every constraint and aggregates all field errors; it
// never stops at the first violation.
func validateRecipe(input RecipeInput) (recipeFields, *ValidationError) {
	var fields recipeFields
	errs := FieldErrors{}

	fields.title = strings.TrimSpace(input.Title)
	if fields.title == "" {
		errs.Add("title", "The title field is required.")
	} else if utf8.RuneCountInString(fields.title) > maxTitleLen {
		errs.Add("title", fmt.Sprintf("The title may not be greater than %d characters.", maxTitleLen))
	}

	fields.description = strings.TrimSpace(input.Description)
	if fields.description == "" {
		errs.Add("description", "The description field is required.")
	}

	fields.time = strings.TrimSpace(input.Time)
	if utf8.RuneCountInString(fields.time) > maxTimeLen {
		errs.Add("time", fmt.Sprintf("The time may not be greater than %d characters.", maxTimeLen))
	}

	if raw := strings.TrimSpace(input.Servings); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add("servings", "The servings must be an integer.")
		} else {
			fields.servings = &n
		}
	}

	fields.ingredients = decodeStringArray("ingredients", input.Ingredients, errs)
	fields.steps = decodeStringArray("steps", input.Steps, errs)

	if input.Image != nil {
		size := input.Image.Size
		if size == 0 {
			size = int64(len(input.Image.Data))
		}
		if size > MaxImageBytes {
			errs.Add("image", "The image may not be greater than 2048 kilobytes.")
		}
		if !strings.HasPrefix(http.DetectContentType(input.Image.Data), "image/") {
			errs.Add("image", "The image must be an image file.")
		}
	}

	if len(errs) > 0 {
		return fields, &ValidationError{Fields: errs}
	}
	return fields, nil
}

// decodeStringArray decodes a JSON-encoded array-of-strings transport field
// into its ordered in-memory representation.
func decodeStringArray(field, raw string, errs FieldErrors) models.JSONStringArray {
	if strings.TrimSpace(raw) == "" {
		errs.Add(field, fmt.Sprintf("The %s field is required.", field))
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		errs.Add(field, fmt.Sprintf("The %s must be a JSON array of strings.", field))
		return nil
	}
	return values
}
