package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAllowsUpToMaxRPM(t *testing.T) {
	l := New(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Equal(t, 3, l.InWindow())
}

func TestWaitAdmitsOnceOldestAgesOut(t *testing.T) {
	l := New(1)
	base := time.Now()
	l.now = func() time.Time { return base }

	require.NoError(t, l.Wait(context.Background()))

	// Advance the clock past the window; the limiter must purge and
	// admit the next call without sleeping.
	l.now = func() time.Time { return base.Add(61 * time.Second) }

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the window elapsed")
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
