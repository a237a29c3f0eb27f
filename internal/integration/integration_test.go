package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cuisella/backend/internal/database"
	"github.com/cuisella/backend/internal/models"
)

// setupPostgres starts a disposable PostgreSQL container and returns a
// migrated connection. Requires Docker; gate with INTEGRATION_TEST=1.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("set INTEGRATION_TEST=1 to run container-backed tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		host, mappedPort.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to database")

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: "Test User", Email: email, PasswordHash: string(hash)}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestMigrationsAndConstraints(t *testing.T) {
	db := setupPostgres(t)

	user := createUser(t, db, "alice@example.com")

	// The email unique index holds.
	dup := &models.User{Name: "Other", Email: "alice@example.com", PasswordHash: "x"}
	assert.Error(t, db.Create(dup).Error)

	// Ingredient and step arrays round-trip through the jsonb columns.
	servings := 4
	recipe := &models.Recipe{
		UserID:      user.ID,
		Title:       "Pancakes",
		Description: "Fluffy pancakes",
		Servings:    &servings,
		Ingredients: models.JSONStringArray{"flour", "eggs"},
		Steps:       models.JSONStringArray{"mix", "bake"},
	}
	require.NoError(t, db.Create(recipe).Error)

	var loaded models.Recipe
	require.NoError(t, db.First(&loaded, "id = ?", recipe.ID).Error)
	assert.Equal(t, models.JSONStringArray{"flour", "eggs"}, loaded.Ingredients)
	assert.Equal(t, models.JSONStringArray{"mix", "bake"}, loaded.Steps)
}

func TestFavoritePairUniqueIndex(t *testing.T) {
	db := setupPostgres(t)

	user := createUser(t, db, "alice@example.com")
	recipe := &models.Recipe{UserID: user.ID, Title: "Pancakes", Description: "Fluffy"}
	require.NoError(t, db.Create(recipe).Error)

	first := &models.Favorite{UserID: user.ID, RecipeID: recipe.ID}
	require.NoError(t, db.Create(first).Error)

	// The composite index rejects a second row for the same pair.
	second := &models.Favorite{UserID: user.ID, RecipeID: recipe.ID}
	assert.Error(t, db.Create(second).Error)

	// Deleting the favorite frees the pair for a new row.
	require.NoError(t, db.Delete(first).Error)
	assert.NoError(t, db.Create(&models.Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

func TestUserDeletionCascades(t *testing.T) {
	db := setupPostgres(t)

	owner := createUser(t, db, "alice@example.com")
	fan := createUser(t, db, "bob@example.com")
	recipe := &models.Recipe{UserID: owner.ID, Title: "Pancakes", Description: "Fluffy"}
	require.NoError(t, db.Create(recipe).Error)
	require.NoError(t, db.Create(&models.Favorite{UserID: fan.ID, RecipeID: recipe.ID}).Error)

	// Deleting the favoriting user removes their favorite rows.
	require.NoError(t, db.Delete(fan).Error)

	var favorites int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("user_id = ?", fan.ID).Count(&favorites).Error)
	assert.Zero(t, favorites)

	// Deleting the recipe owner removes their recipes.
	require.NoError(t, db.Delete(owner).Error)

	var recipes int64
	require.NoError(t, db.Model(&models.Recipe{}).Where("user_id = ?", owner.ID).Count(&recipes).Error)
	assert.Zero(t, recipes)
}
