package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cuisella/backend/config"
	"github.com/cuisella/backend/internal/api"
	"github.com/cuisella/backend/internal/models"
	"github.com/cuisella/backend/internal/router"
	"github.com/cuisella/backend/internal/service"
	"github.com/cuisella/backend/internal/storage"
)

// pngBytes is a valid PNG signature, enough for content-type sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

// setupTestRouter wires the real route table against an in-memory database
// and a temp-dir image store.
func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Recipe{}, &models.Favorite{}))

	cfg := &config.Config{
		BaseURL:       "http://localhost:8080",
		JWTSecret:     "test-secret",
		TokenTTLHour:  1,
		StorageDriver: config.StorageDriverLocal,
		StoragePath:   t.TempDir(),
		CORSOrigin:    "http://localhost:5173",
	}

	images := storage.NewLocalStore(cfg.StoragePath, cfg.BaseURL)
	authService := service.NewAuthService(db, cfg.JWTSecret, service.NewMemoryTokenStore(), time.Hour)

	engine := router.Setup(cfg, router.Handlers{
		Auth:     api.NewAuthHandler(authService),
		Recipe:   api.NewRecipeHandler(service.NewRecipeService(db, images)),
		Favorite: api.NewFavoriteHandler(service.NewFavoriteService(db, images)),
	}, authService, nil)

	return engine, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, router *gin.Engine, method, path, token string, fields map[string]string, imageName string, image []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates an account over the API and returns a bearer token.
func registerAndLogin(t *testing.T, router *gin.Engine, name, email string) string {
	t.Helper()

	w := doJSON(t, router, "POST", "/register", "", map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              "supersecret",
		"password_confirmation": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, "POST", "/login", "", map[string]string{
		"email":    email,
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token, ok := decodeBody(t, w)["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func validRecipeFields() map[string]string {
	return map[string]string{
		"title":       "Pancakes",
		"description": "Fluffy pancakes",
		"time":        "30 min",
		"servings":    "4",
		"ingredients": `["flour","eggs"]`,
		"steps":       `["mix","bake"]`,
	}
}

// createRecipe creates a recipe over the API and returns its id.
func createRecipe(t *testing.T, router *gin.Engine, token string) string {
	t.Helper()
	w := doMultipart(t, router, "POST", "/recipes", token, validRecipeFields(), "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, ok := decodeBody(t, w)["id"].(string)
	require.True(t, ok)
	return id
}
