package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int) (*Breaker, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("geoclient", threshold, time.Minute)
	b.now = func() time.Time { return now }
	return b, &now
}

func failTransient(context.Context) (int, error) {
	return 0, NewTransientError(errors.New("unavailable"), 503)
}

func succeed(context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(2)
	ctx := context.Background()

	_, _ = Call(ctx, b, failTransient)
	assert.Equal(t, CircuitClosed, b.State())
	_, _ = Call(ctx, b, failTransient)
	assert.Equal(t, CircuitOpen, b.State())

	called := false
	_, err := Call(ctx, b, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, called)
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	b, _ := newTestBreaker(1)
	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		return 0, errors.New("invalid app key")
	})
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(1)
	ctx := context.Background()

	_, _ = Call(ctx, b, failTransient)
	require.Equal(t, CircuitOpen, b.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, b.State())

	v, err := Call(ctx, b, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, now := newTestBreaker(3)
	ctx := context.Background()

	for range 3 {
		_, _ = Call(ctx, b, failTransient)
	}
	*now = now.Add(2 * time.Minute)
	_, _ = Call(ctx, b, failTransient)
	assert.Equal(t, CircuitOpen, b.State())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
