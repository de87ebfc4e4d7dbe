package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"farmersmarket/internal/audit"
	"farmersmarket/internal/cache"
	"farmersmarket/internal/model"
	"farmersmarket/internal/repository"
)

const (
	userCacheTTL = 5 * time.Minute

	// DefaultActivityLimit and MaxActivityLimit bound RecentActivity.
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ErrUserNotFound is returned when a user id does not resolve.
var ErrUserNotFound = errors.New("user not found")

// UserService exposes user profile lookups.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	// RecentActivity returns the user's latest audit entries, newest first.
	RecentActivity(ctx context.Context, id uint, limit int) ([]model.ActionLog, error)
}

type userService struct {
	repo     repository.UserRepository
	cache    *cache.Client
	activity audit.Reader
}

// NewUserService builds a UserService with repository, cache and the audit store.
func NewUserService(repo repository.UserRepository, cache *cache.Client, activity audit.Reader) UserService {
	return &userService{repo: repo, cache: cache, activity: activity}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// GetUser returns a user by id. Users never change after registration, so the
// cached copy is served until it expires.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	_ = s.cache.SetJSON(ctx, s.cacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) RecentActivity(ctx context.Context, id uint, limit int) ([]model.ActionLog, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	logs, err := s.activity.ListByUser(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	if logs == nil {
		logs = []model.ActionLog{}
	}
	return logs, nil
}
