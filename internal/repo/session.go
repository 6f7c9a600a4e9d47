package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/shop_api/internal/models"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.Session) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

// FindSession returns only live sessions: revoked or expired rows read as ErrNotFound.
func (r *GormRepo) FindSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.DB.WithContext(ctx).
		Where("id = ? AND revoked = ? AND expires_at > ?", id, false, time.Now().Unix()).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *GormRepo) RevokeSession(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("revoked", true).Error
}

// PurgeSessions deletes expired and revoked rows, returning how many went.
func (r *GormRepo) PurgeSessions(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("revoked = ? OR expires_at <= ?", true, time.Now().Unix()).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
