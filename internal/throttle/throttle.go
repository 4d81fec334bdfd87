// Package throttle implements the per-account rate-limiting state machines:
// the login lockout window and the daily password-reset quota. The types are
// pure value objects so the transition rules can be tested without storage;
// callers persist the returned state together with the triggering write.
package throttle

import "time"

const (
	// MaxLoginAttempts consecutive failures arm the lockout.
	MaxLoginAttempts = 5
	// LockoutDuration is how long a locked account rejects logins.
	LockoutDuration = 10 * time.Minute
	// MaxResetPerDay bounds password-reset requests per calendar day.
	MaxResetPerDay = 3
)

// LoginState tracks failed login attempts for one account. The zero value is
// the unlocked state. There is no unlock operation: the lockout expires purely
// by timestamp comparison on the next attempt.
type LoginState struct {
	Attempts     int
	LastAttempt  *time.Time
	BlockedUntil *time.Time
}

// Locked reports whether the account is inside an active lockout window.
func (s LoginState) Locked(now time.Time) bool {
	return s.BlockedUntil != nil && s.BlockedUntil.After(now)
}

// Fail registers a failed credential check. The fifth consecutive failure sets
// BlockedUntil ten minutes in the future.
func (s LoginState) Fail(now time.Time) LoginState {
	s.Attempts++
	s.LastAttempt = &now
	if s.Attempts >= MaxLoginAttempts {
		until := now.Add(LockoutDuration)
		s.BlockedUntil = &until
	}
	return s
}

// Reset clears the counter and lockout after a successful login.
func (s LoginState) Reset() LoginState {
	return LoginState{LastAttempt: s.LastAttempt}
}

// ResetState tracks password-reset requests for one account. The window is the
// calendar day of the last attempt, not a rolling 24 hours.
type ResetState struct {
	Attempts    int
	LastAttempt *time.Time
}

// sameDay compares calendar dates in the local zone, mirroring the window the
// client is told about ("try again tomorrow").
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Register applies one reset request at the given instant. It returns the
// updated state and whether the request is allowed. The counter restarts at 1
// whenever the stored date differs from today.
func (s ResetState) Register(now time.Time) (ResetState, bool) {
	if s.LastAttempt != nil && sameDay(*s.LastAttempt, now) {
		if s.Attempts >= MaxResetPerDay {
			return s, false
		}
		s.Attempts++
		s.LastAttempt = &now
		return s, true
	}
	return ResetState{Attempts: 1, LastAttempt: &now}, true
}
