package port

import (
	"context"
	"time"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// AuditRepository reads the append-only vote audit trail. Writes happen
// inside VoteRepository.SpendPoints so the vote/audit pair stays atomic.
type AuditRepository interface {
	// ListByDeviceSince returns audit rows sharing the fingerprint hash
	// recorded at or after the reference instant, oldest first.
	ListByDeviceSince(ctx context.Context, fingerprintHash string, since time.Time) ([]domain.VoteAuditRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.VoteAuditRecord, error)
}
