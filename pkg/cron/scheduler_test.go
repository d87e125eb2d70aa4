package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PruneOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestScheduler_RunNowUsesRetention(t *testing.T) {
	pruner := &fakePruner{}
	s := NewScheduler(pruner, 30*24*time.Hour, "", discard)
	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.RunNow()

	require.Len(t, pruner.cutoffs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), pruner.cutoffs[0])
}

func TestScheduler_RunNowSurvivesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("disk gone")}
	s := NewScheduler(pruner, time.Hour, "", discard)

	assert.NotPanics(t, s.RunNow)
	assert.Len(t, pruner.cutoffs, 1)
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name      string
		retention time.Duration
		schedule  string
		jobs      int
		wantErr   bool
	}{
		{"default schedule", 24 * time.Hour, "", 1, false},
		{"custom schedule", 24 * time.Hour, "*/5 * * * *", 1, false},
		{"retention disabled", 0, "", 0, false},
		{"bad schedule", 24 * time.Hour, "every day", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&fakePruner{}, tt.retention, tt.schedule, discard)
			err := s.Start()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Stop()
			assert.Len(t, s.cron.Entries(), tt.jobs)
		})
	}
}
