package port

import (
	"context"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// SeasonRepository reads season configuration. Seasons are administered
// outside this service and are read-only to the voting core.
type SeasonRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Season, error)
	GetActive(ctx context.Context) (*domain.Season, error)
}
