package schedule

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TriggerNow(t *testing.T) {
	s := New()
	ctx := context.Background()

	ran := 0
	require.NoError(t, s.Add(ctx, "ingestion", "", func(context.Context) error {
		ran++
		return nil
	}))

	require.NoError(t, s.TriggerNow(ctx, "ingestion"))
	assert.Equal(t, 1, ran)
}

func TestScheduler_TriggerUnknownJob(t *testing.T) {
	s := New()
	err := s.TriggerNow(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestScheduler_DuplicateJob(t *testing.T) {
	s := New()
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(ctx, "ingestion", "", noop))
	err := s.Add(ctx, "ingestion", "", noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate job")
}

func TestScheduler_InvalidCronSpec(t *testing.T) {
	s := New()
	err := s.Add(context.Background(), "bad", "not a cron spec", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestScheduler_JobErrorSurfacesOnManualTrigger(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "failing", "", func(context.Context) error {
		return eris.New("boom")
	}))
	err := s.TriggerNow(ctx, "failing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
