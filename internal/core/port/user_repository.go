package port

import (
	"context"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// UserRepository persists voting profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GrantBonus sets the daily-bonus timestamp if and only if no bonus was
	// granted on or after dayStart. Returns false when the bonus was already
	// granted for the current day.
	GrantBonus(ctx context.Context, id string, grantedAt, dayStart time.Time) (bool, error)
}
