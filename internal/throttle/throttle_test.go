package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStateLocksAfterFiveFailures(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var s LoginState
	for i := 0; i < MaxLoginAttempts-1; i++ {
		s = s.Fail(now)
		assert.False(t, s.Locked(now), "attempt %d must not lock", i+1)
	}

	fifth := now.Add(30 * time.Second)
	s = s.Fail(fifth)

	require.NotNil(t, s.BlockedUntil)
	assert.Equal(t, fifth.Add(LockoutDuration), *s.BlockedUntil,
		"lockout must be exactly ten minutes after the fifth failure")
	assert.True(t, s.Locked(fifth))
}

func TestLoginStateLockExpiresByTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var s LoginState
	for i := 0; i < MaxLoginAttempts; i++ {
		s = s.Fail(now)
	}

	assert.True(t, s.Locked(now.Add(9*time.Minute)))
	assert.False(t, s.Locked(now.Add(LockoutDuration)), "lock expires lazily, no unlock operation")
	assert.False(t, s.Locked(now.Add(11*time.Minute)))
}

func TestLoginStateReset(t *testing.T) {
	now := time.Now()

	var s LoginState
	for i := 0; i < MaxLoginAttempts; i++ {
		s = s.Fail(now)
	}
	require.True(t, s.Locked(now))

	s = s.Reset()
	assert.Equal(t, 0, s.Attempts)
	assert.Nil(t, s.BlockedUntil)
	assert.False(t, s.Locked(now))
}

func TestResetStateDailyQuota(t *testing.T) {
	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	var s ResetState
	for i := 1; i <= MaxResetPerDay; i++ {
		var ok bool
		s, ok = s.Register(day.Add(time.Duration(i) * time.Hour))
		require.True(t, ok, "request %d within quota", i)
		assert.Equal(t, i, s.Attempts)
	}

	_, ok := s.Register(day.Add(12 * time.Hour))
	assert.False(t, ok, "fourth same-day request must be rejected")
}

func TestResetStateCounterRestartsNextDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	var s ResetState
	for i := 0; i < MaxResetPerDay; i++ {
		s, _ = s.Register(day)
	}

	// Calendar day boundary, not a rolling 24h window.
	nextDay := time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC)
	s, ok := s.Register(nextDay)
	require.True(t, ok)
	assert.Equal(t, 1, s.Attempts)
	require.NotNil(t, s.LastAttempt)
	assert.Equal(t, nextDay, *s.LastAttempt)
}
