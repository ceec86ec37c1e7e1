package service

import (
	"context"
	"fmt"
	"time"

	app_errors "askcampus/backend/internal/errors"
	"askcampus/backend/internal/repository"
	"askcampus/backend/internal/session"
)

// UserService registers guest identities minted by the client.
type UserService struct {
	repo repository.Repository
}

func NewUserService(repo repository.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) RegisterGuest(ctx context.Context, guestID string, ts time.Time) error {
	if !session.IsGuestID(guestID) {
		return fmt.Errorf("%w: not a guest id", app_errors.ErrValidation)
	}
	return s.repo.UpsertGuest(ctx, guestID, ts)
}
