package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fanarena/voting-service/internal/core/domain"
	"github.com/fanarena/voting-service/internal/core/port"
	"github.com/fanarena/voting-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishVoteAccepted publishes fanvote.vote.accepted events.
func (p *EventPublisher) PublishVoteAccepted(ctx context.Context, event domain.VoteAcceptedEvent) error {
	payload := struct {
		UserID      string         `json:"user_id"`
		SeasonID    string         `json:"season_id"`
		PeriodID    string         `json:"period_id"`
		CandidateID string         `json:"candidate_id"`
		Points      int            `json:"points"`
		AcceptedAt  time.Time      `json:"accepted_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		UserID:      event.UserID,
		SeasonID:    event.SeasonID,
		PeriodID:    event.PeriodID,
		CandidateID: event.CandidateID,
		Points:      event.Points,
		AcceptedAt:  event.AcceptedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "fanvote.vote.accepted", event.UserID, event.AcceptedAt, payload)
}

// PublishSuspicionRaised publishes fanvote.vote.suspicion_raised events.
func (p *EventPublisher) PublishSuspicionRaised(ctx context.Context, event domain.SuspicionRaisedEvent) error {
	payload := struct {
		VoteID          string                   `json:"vote_id"`
		UserID          string                   `json:"user_id"`
		PeriodID        string                   `json:"period_id"`
		FingerprintHash string                   `json:"fingerprint_hash"`
		Factors         domain.SuspicionFactors  `json:"factors"`
		Coordination    domain.CoordinationFlags `json:"coordination"`
		RaisedAt        time.Time                `json:"raised_at"`
	}{
		VoteID:          event.VoteID,
		UserID:          event.UserID,
		PeriodID:        event.PeriodID,
		FingerprintHash: event.FingerprintHash,
		Factors:         event.Factors,
		Coordination:    event.Coordination,
		RaisedAt:        event.RaisedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "fanvote.vote.suspicion_raised", event.UserID, event.RaisedAt, payload)
}

// PublishPeriodCompleted publishes fanvote.period.completed events.
func (p *EventPublisher) PublishPeriodCompleted(ctx context.Context, event domain.PeriodCompletedEvent) error {
	payload := struct {
		SeasonID    string               `json:"season_id"`
		PeriodID    string               `json:"period_id"`
		Number      int                  `json:"number"`
		Results     domain.PeriodResults `json:"results"`
		CompletedAt time.Time            `json:"completed_at"`
	}{
		SeasonID:    event.SeasonID,
		PeriodID:    event.PeriodID,
		Number:      event.Number,
		Results:     event.Results,
		CompletedAt: event.CompletedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "fanvote.period.completed", "", event.CompletedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
