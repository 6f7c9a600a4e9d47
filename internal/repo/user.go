package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/shop_api/internal/models"
)

func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateUserIfNotExists inserts u unless the username is taken. The unique
// index decides, so concurrent callers never see a constraint error.
func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}
