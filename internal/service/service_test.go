package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cuisella/backend/internal/models"
)

// newTestDB opens a per-test in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.Favorite{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: string(hashed),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestRecipe(t *testing.T, db *gorm.DB, owner *models.User, title string, createdAt time.Time) *models.Recipe {
	t.Helper()

	recipe := models.Recipe{
		UserID:      owner.ID,
		Title:       title,
		Description: "A test recipe",
		Ingredients: models.JSONStringArray{"flour", "eggs"},
		Steps:       models.JSONStringArray{"mix", "bake"},
	}
	require.NoError(t, db.Create(&recipe).Error)
	if !createdAt.IsZero() {
		require.NoError(t, db.Model(&recipe).Update("created_at", createdAt).Error)
		recipe.CreatedAt = createdAt
	}
	return &recipe
}

// pngBytes is a valid PNG signature, enough for content-type sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

// fakeImageStore records saves and deletes without touching real storage.
type fakeImageStore struct {
	saved   map[string][]byte
	deleted []string
	nextID  int
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string][]byte)}
}

func (f *fakeImageStore) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	f.nextID++
	path := fmt.Sprintf("recipe-images/test-%d.png", f.nextID)
	f.saved[path] = data
	return path, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	delete(f.saved, path)
	return nil
}

func (f *fakeImageStore) URL(path string) string {
	return "http://assets.test/" + path
}

func validRecipeInput() RecipeInput {
	return RecipeInput{
		Title:       "Pancakes",
		Description: "Fluffy pancakes",
		Time:        "30 min",
		Servings:    "4",
		Ingredients: `["flour","eggs"]`,
		Steps:       `["mix","bake"]`,
	}
}
