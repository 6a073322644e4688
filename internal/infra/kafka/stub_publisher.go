package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishVoteAccepted logs fanvote.vote.accepted events.
func (p *StubPublisher) PublishVoteAccepted(_ context.Context, event domain.VoteAcceptedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"season_id":    event.SeasonID,
		"period_id":    event.PeriodID,
		"candidate_id": event.CandidateID,
		"points":       event.Points,
		"accepted_at":  event.AcceptedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("fanvote.vote.accepted", event.UserID, event.AcceptedAt, payload)
	return nil
}

// PublishSuspicionRaised logs fanvote.vote.suspicion_raised events.
func (p *StubPublisher) PublishSuspicionRaised(_ context.Context, event domain.SuspicionRaisedEvent) error {
	payload := map[string]any{
		"vote_id":          event.VoteID,
		"user_id":          event.UserID,
		"period_id":        event.PeriodID,
		"fingerprint_hash": event.FingerprintHash,
		"factors":          event.Factors,
		"coordination":     event.Coordination,
		"raised_at":        event.RaisedAt,
	}
	p.logEvent("fanvote.vote.suspicion_raised", event.UserID, event.RaisedAt, payload)
	return nil
}

// PublishPeriodCompleted logs fanvote.period.completed events.
func (p *StubPublisher) PublishPeriodCompleted(_ context.Context, event domain.PeriodCompletedEvent) error {
	payload := map[string]any{
		"season_id":    event.SeasonID,
		"period_id":    event.PeriodID,
		"number":       event.Number,
		"results":      event.Results,
		"completed_at": event.CompletedAt,
	}
	p.logEvent("fanvote.period.completed", "", event.CompletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
