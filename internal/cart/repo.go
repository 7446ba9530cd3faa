package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository persists cart lines in the local store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID string) ([]Line, error)
	Find(ctx context.Context, userID, itemID string) (*Line, error)
	Save(ctx context.Context, line *Line) error
	Delete(ctx context.Context, userID, itemID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository over the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID string) ([]Line, error) {
	var lines []Line
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) Find(ctx context.Context, userID, itemID string) (*Line, error) {
	var line Line
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) Save(ctx context.Context, line *Line) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *repository) Delete(ctx context.Context, userID, itemID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&Line{}).Error
}

func (r *repository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&Line{}).Error
}
