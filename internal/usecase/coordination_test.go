package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fanarena/voting-service/internal/core/domain"
)

func deviceRecords(at time.Time, rows ...[3]any) []domain.VoteAuditRecord {
	out := make([]domain.VoteAuditRecord, 0, len(rows))
	for i, row := range rows {
		out = append(out, domain.VoteAuditRecord{
			UserID:      row[0].(string),
			CandidateID: row[1].(string),
			Points:      row[2].(int),
			CreatedAt:   at.Add(time.Duration(i) * 10 * time.Second),
		})
	}
	return out
}

func TestCoordinationService_Detect(t *testing.T) {
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	windowStart := now.Add(-55 * time.Minute)

	cases := []struct {
		name    string
		records []domain.VoteAuditRecord
		want    domain.CoordinationFlags
	}{
		{
			name: "single user casual voting",
			records: deviceRecords(windowStart,
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cB", 20},
			),
			want: domain.CoordinationFlags{},
		},
		{
			name: "many votes from few accounts",
			records: deviceRecords(windowStart,
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cB", 5},
				[3]any{"u1", "cA", 10},
				[3]any{"u2", "cC", 5},
				[3]any{"u2", "cB", 20},
			),
			want: domain.CoordinationFlags{MultipleAccounts: true},
		},
		{
			name: "distribution skewed to one candidate",
			records: deviceRecords(windowStart,
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cA", 5},
				[3]any{"u1", "cA", 15},
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cA", 5},
				[3]any{"u1", "cB", 20},
			),
			want: domain.CoordinationFlags{SkewedDistribution: true},
		},
		{
			name: "identical candidate and amount every time",
			records: deviceRecords(windowStart,
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cA", 10},
				[3]any{"u1", "cA", 10},
			),
			want: domain.CoordinationFlags{IdenticalPatterns: true},
		},
		{
			name:    "empty window",
			records: nil,
			want:    domain.CoordinationFlags{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &stubAuditRepo{
				listByDeviceSinceFn: func(_ context.Context, hash string, since time.Time) ([]domain.VoteAuditRecord, error) {
					require.Equal(t, "device-1", hash)
					require.Equal(t, now.Add(-time.Hour), since)
					return tc.records, nil
				},
			}

			svc := NewCoordinationService(audit, time.Hour, 24*time.Hour, zaptest.NewLogger(t)).WithClock(fixedClock(now))

			flags, err := svc.Detect(context.Background(), "device-1")
			require.NoError(t, err)
			require.Equal(t, tc.want, flags)
		})
	}
}

func TestCoordinationService_Detect_SkewedIdenticalOverlap(t *testing.T) {
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	records := deviceRecords(now.Add(-30*time.Minute),
		[3]any{"u1", "cA", 10},
		[3]any{"u1", "cA", 10},
		[3]any{"u1", "cA", 10},
		[3]any{"u1", "cA", 10},
		[3]any{"u1", "cA", 10},
		[3]any{"u1", "cA", 10},
	)

	audit := &stubAuditRepo{
		listByDeviceSinceFn: func(_ context.Context, _ string, _ time.Time) ([]domain.VoteAuditRecord, error) {
			return records, nil
		},
	}

	svc := NewCoordinationService(audit, time.Hour, 24*time.Hour, zaptest.NewLogger(t)).WithClock(fixedClock(now))

	flags, err := svc.Detect(context.Background(), "device-1")
	require.NoError(t, err)
	require.True(t, flags.SkewedDistribution)
	require.True(t, flags.IdenticalPatterns)
	require.False(t, flags.MultipleAccounts)
}

func TestCoordinationService_HasOtherAccountsOnDevice(t *testing.T) {
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

	audit := &stubAuditRepo{
		listByDeviceSinceFn: func(_ context.Context, _ string, since time.Time) ([]domain.VoteAuditRecord, error) {
			require.Equal(t, now.Add(-24*time.Hour), since)
			return deviceRecords(now.Add(-5*time.Minute),
				[3]any{"u1", "cA", 10},
				[3]any{"u2", "cA", 10},
			), nil
		},
	}

	svc := NewCoordinationService(audit, time.Hour, 24*time.Hour, zaptest.NewLogger(t)).WithClock(fixedClock(now))

	shared, err := svc.HasOtherAccountsOnDevice(context.Background(), "device-1", "u1")
	require.NoError(t, err)
	require.True(t, shared)

	audit.listByDeviceSinceFn = func(_ context.Context, _ string, _ time.Time) ([]domain.VoteAuditRecord, error) {
		return deviceRecords(now.Add(-5*time.Minute), [3]any{"u1", "cA", 10}), nil
	}

	alone, err := svc.HasOtherAccountsOnDevice(context.Background(), "device-1", "u1")
	require.NoError(t, err)
	require.False(t, alone)
}
