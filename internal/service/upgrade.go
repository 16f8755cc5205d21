package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// EarlyBirdStatus is what a user sees on the upgrade page.
type EarlyBirdStatus struct {
	Owned  bool `json:"owned"`
	Price  int  `json:"price"`
	Points int  `json:"points"`
}

// UpgradeService sells the Early-Bird upgrade for loyalty points.
type UpgradeService struct {
	Users *repository.UserRepo
	Price int
	Log   *slog.Logger
}

func (s *UpgradeService) EarlyBird(ctx context.Context, userID string) (EarlyBirdStatus, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return EarlyBirdStatus{}, err
	}
	return EarlyBirdStatus{Owned: u.HasEarlyBird, Price: s.Price, Points: u.Points}, nil
}

// PurchaseEarlyBird debits Price points and grants the upgrade.
func (s *UpgradeService) PurchaseEarlyBird(ctx context.Context, userID string) (EarlyBirdStatus, error) {
	err := s.Users.PurchaseEarlyBird(ctx, userID, s.Price)
	switch {
	case errors.Is(err, repository.ErrAlreadyOwned):
		return EarlyBirdStatus{}, apperr.Invalid("you already own Early-Bird check-in")
	case errors.Is(err, repository.ErrInsufficientPoints):
		return EarlyBirdStatus{}, apperr.Invalid("not enough points for Early-Bird check-in")
	case err != nil:
		return EarlyBirdStatus{}, err
	}
	s.Log.Info("early bird purchased", slog.String("user_id", userID), slog.Int("price", s.Price))
	return s.EarlyBird(ctx, userID)
}
