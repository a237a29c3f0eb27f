package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuisella/backend/config"
	"github.com/cuisella/backend/internal/api"
	"github.com/cuisella/backend/internal/middleware"
)

// Handlers groups the API handlers wired into the route table.
type Handlers struct {
	Auth     *api.AuthHandler
	Recipe   *api.RecipeHandler
	Favorite *api.FavoriteHandler
}

// Setup configures the application routes. authLimit may be nil when rate
// limiting is disabled (no Redis configured).
func Setup(cfg *config.Config, h Handlers, auth middleware.Authenticator, authLimit gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigin))

	// Local image storage is served from the public static path.
	if cfg.StorageDriver == config.StorageDriverLocal {
		router.Static("/storage", cfg.StoragePath)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := middleware.AuthMiddleware(auth)
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if authLimit == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{authLimit, handler}
	}

	// Auth
	router.POST("/register", limited(h.Auth.Register)...)
	router.POST("/login", limited(h.Auth.Login)...)
	router.POST("/logout", requireAuth, h.Auth.Logout)
	router.GET("/user", requireAuth, h.Auth.Me)

	// Recipes (public)
	router.GET("/recipes", h.Recipe.List)
	router.GET("/recipes/popular", h.Recipe.Popular)
	router.GET("/recipes/:id", h.Recipe.Get)

	// Recipes (owner)
	router.GET("/user/recipes", requireAuth, h.Recipe.ListMine)
	router.POST("/recipes", requireAuth, h.Recipe.Create)
	router.PUT("/recipes/:id", requireAuth, h.Recipe.Update)
	router.DELETE("/recipes/:id", requireAuth, h.Recipe.Delete)

	// Favorites
	router.GET("/user/favorites", requireAuth, h.Favorite.List)
	router.POST("/favorites", requireAuth, h.Favorite.Create)
	router.DELETE("/favorites/:id", requireAuth, h.Favorite.Delete)

	return router
}
