package runctx

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsCorrelationID(t *testing.T) {
	c := New(ModeIncremental, "", "", false)
	require.NotEmpty(t, c.CorrelationID)
	assert.Equal(t, ModeIncremental, c.Mode)
	assert.False(t, c.DryRun)
}

func TestCountersConcurrentIncrement(t *testing.T) {
	c := New(ModeBackfill, "2026-01-01", "2026-01-31", false)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment("patents_fetched")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 100, c.Stat("patents_fetched"))
}

func TestAddErrorMarksHasErrors(t *testing.T) {
	c := New(ModeDryRun, "", "", true)
	assert.False(t, c.HasErrors())

	c.AddError("p2_relevance", "oracle timeout", "US12345")
	assert.True(t, c.HasErrors())

	errs := c.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "p2_relevance", errs[0].Node)
	assert.Equal(t, "US12345", errs[0].ItemID)
}

func TestErrorWrappingUnwrapsToSentinel(t *testing.T) {
	var err error = &PersistenceError{Sink: "patents", Err: errors.New("conn reset")}
	assert.ErrorIs(t, err, ErrPersistence)

	var ce *ConfigError
	err = &ConfigError{Field: "mode", Err: errors.New("unknown mode")}
	assert.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, ErrConfig)
}
