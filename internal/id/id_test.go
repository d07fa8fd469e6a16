package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtIsMonotonicWithinMillisecond(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	prev := At(ts)
	for i := 0; i < 100; i++ {
		next := At(ts)
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestAtRoundTripsTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 9, 30, 0, 123_000_000, time.UTC)
	got, err := Time(At(ts))
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	assert.Len(t, New(), 26)

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
