package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestStore_AllowPerKey(t *testing.T) {
	s := NewStore(rate.Every(time.Hour), 2, time.Minute)

	assert.True(t, s.Allow("1.1.1.1:/claim"))
	assert.True(t, s.Allow("1.1.1.1:/claim"))
	assert.False(t, s.Allow("1.1.1.1:/claim"), "突发用完后应被拒绝")
	assert.True(t, s.Allow("2.2.2.2:/claim"), "不同 key 互不影响")
}

func TestStore_Cleanup(t *testing.T) {
	s := NewStore(rate.Every(time.Hour), 1, time.Nanosecond)
	s.Allow("k")
	time.Sleep(time.Millisecond)
	s.cleanup()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.entries)
}

func TestManager_TripsOnConsecutiveFailures(t *testing.T) {
	m := NewManager(Rule{TripConsecutiveFailures: 2, Timeout: time.Minute}, nil, nil)
	boom := errors.New("503")

	for i := 0; i < 2; i++ {
		_, err := Execute(m, "x-api", func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := Execute(m, "x-api", func() (int, error) { return 1, nil })
	assert.True(t, IsOpen(err), "连续失败后应熔断")
}

func TestManager_CanceledDoesNotTrip(t *testing.T) {
	m := NewManager(Rule{TripConsecutiveFailures: 1, Timeout: time.Minute}, nil, nil)

	_, err := Execute(m, "x-api", func() (int, error) { return 0, context.Canceled })
	require.ErrorIs(t, err, context.Canceled)

	v, err := Execute(m, "x-api", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
