package audit

import (
	"context"

	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
)

// SQLSink writes entries to the action_logs table.
type SQLSink struct {
	repo repository.ActionLogRepository
}

// NewSQLSink creates a sink over the action log repository.
func NewSQLSink(repo repository.ActionLogRepository) *SQLSink {
	return &SQLSink{repo: repo}
}

var _ Store = (*SQLSink)(nil)

// Write implements Sink.
func (s *SQLSink) Write(ctx context.Context, entries []model.ActionLog) error {
	return s.repo.CreateBatch(ctx, entries)
}

// ListByUser implements Reader.
func (s *SQLSink) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActionLog, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}
