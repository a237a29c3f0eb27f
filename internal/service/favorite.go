package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cuisella/backend/internal/models"
	"github.com/cuisella/backend/internal/storage"
)

// FavoriteService manages the user-recipe favorite relation.
type FavoriteService struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewFavoriteService(db *gorm.DB, images storage.ImageStore) *FavoriteService {
	return &FavoriteService{db: db, images: images}
}

// List returns the user's favorites with the embedded recipe, newest first.
func (s *FavoriteService) List(ctx context.Context, user *models.User) ([]models.Favorite, error) {
	favorites := []models.Favorite{}
	err := s.db.WithContext(ctx).
		Preload("Recipe").
		Preload("Recipe.User").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	for i := range favorites {
		s.presentRecipe(favorites[i].Recipe)
	}
	return favorites, nil
}

// Create favorites a recipe for the user. The recipe must exist and the
// (user, recipe) pair must not already be favorited.
func (s *FavoriteService) Create(ctx context.Context, user *models.User, recipeID uuid.UUID) (*models.Favorite, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", user.ID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateFavorite
	}

	favorite := models.Favorite{
		UserID:   user.ID,
		RecipeID: recipeID,
	}
	if err := s.db.WithContext(ctx).Create(&favorite).Error; err != nil {
		return nil, err
	}

	s.presentRecipe(&recipe)
	favorite.Recipe = &recipe
	return &favorite, nil
}

// Delete removes a favorite. Only the user who created it may delete it.
func (s *FavoriteService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	var favorite models.Favorite
	if err := s.db.WithContext(ctx).First(&favorite, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if favorite.UserID != user.ID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&favorite).Error
}

func (s *FavoriteService) presentRecipe(recipe *models.Recipe) {
	if recipe != nil && recipe.ImagePath != "" {
		recipe.ImageURL = s.images.URL(recipe.ImagePath)
	}
}
