package repository

import (
	"context"

	"gorm.io/gorm"

	"farmersmarket/internal/model"
)

// ActionLogRepository defines action log persistence operations.
type ActionLogRepository interface {
	CreateBatch(ctx context.Context, logs []model.ActionLog) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActionLog, error)
}

type actionLogRepository struct {
	db *gorm.DB
}

// NewActionLogRepository creates a new action log repository.
func NewActionLogRepository(db *gorm.DB) ActionLogRepository {
	return &actionLogRepository{db: db}
}

// CreateBatch creates multiple action log entries in batches of 100.
func (r *actionLogRepository) CreateBatch(ctx context.Context, logs []model.ActionLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// ListByUser returns the latest entries of a user, newest first.
func (r *actionLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActionLog, error) {
	var logs []model.ActionLog
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("action_date DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
