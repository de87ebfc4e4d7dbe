package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"farmersmarket/internal/cache"
	"farmersmarket/internal/model"
)

func TestUserService_GetUser(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, uint(7)).
		Return(&model.User{ID: 7, Username: "carol", Role: model.RoleCustomer, PasswordHash: "secret"}, nil).Once()
	repo.On("FindByID", mock.Anything, uint(8)).Return(nil, gorm.ErrRecordNotFound)
	svc := NewUserService(repo, cacheClient, &stubActivity{})

	for i := 0; i < 2; i++ {
		user, err := svc.GetUser(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "carol", user.Username)
		assert.Equal(t, model.RoleCustomer, user.Role)
	}
	cached, err := mr.Get("user:7")
	require.NoError(t, err)
	assert.NotContains(t, cached, "secret")

	_, err = svc.GetUser(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUserNotFound)
	repo.AssertExpectations(t)
}

type stubActivity struct {
	logs      []model.ActionLog
	err       error
	lastLimit int
}

func (s *stubActivity) ListByUser(_ context.Context, _ uint, limit int) ([]model.ActionLog, error) {
	s.lastLimit = limit
	return s.logs, s.err
}

func TestUserService_RecentActivity(t *testing.T) {
	activity := &stubActivity{}
	svc := NewUserService(new(MockUserRepository), nil, activity)

	logs, err := svc.RecentActivity(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.NotNil(t, logs, "empty history encodes as []")
	assert.Equal(t, DefaultActivityLimit, activity.lastLimit)

	activity.logs = []model.ActionLog{{UserID: 7, Action: "login"}}
	logs, err = svc.RecentActivity(context.Background(), 7, 5000)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, MaxActivityLimit, activity.lastLimit)

	activity.err = errors.New("mongo down")
	_, err = svc.RecentActivity(context.Background(), 7, 10)
	assert.Error(t, err)
}
