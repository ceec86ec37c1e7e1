package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/service"
)

func TestUserService_RegisterGuest(t *testing.T) {
	ctx := context.Background()

	t.Run("guest id is upserted", func(t *testing.T) {
		repo := newFakeRepository()
		svc := service.NewUserService(repo)

		ts := time.Now()
		require.NoError(t, svc.RegisterGuest(ctx, "guest_abc", ts))
		assert.Equal(t, ts, repo.guests["guest_abc"])
	})

	t.Run("legacy user_ prefix still accepted", func(t *testing.T) {
		repo := newFakeRepository()
		svc := service.NewUserService(repo)

		require.NoError(t, svc.RegisterGuest(ctx, "user_123", time.Now()))
		assert.Contains(t, repo.guests, "user_123")
	})

	t.Run("arbitrary id is rejected", func(t *testing.T) {
		svc := service.NewUserService(newFakeRepository())

		err := svc.RegisterGuest(ctx, "alice", time.Now())
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}
