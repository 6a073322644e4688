package port

import (
	"context"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishVoteAccepted(ctx context.Context, event domain.VoteAcceptedEvent) error
	PublishSuspicionRaised(ctx context.Context, event domain.SuspicionRaisedEvent) error
	PublishPeriodCompleted(ctx context.Context, event domain.PeriodCompletedEvent) error
}
