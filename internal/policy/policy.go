// Package policy derives session state from its scheduling window and
// gates attempt starts and submissions.
package policy

import (
	"fmt"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Useful in tests and for
// one-shot CLI commands.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// State is the derived availability of a session.
type State string

const (
	StateUpcoming State = "upcoming"
	StateActive   State = "active"
	StateEnded    State = "ended"
	StateInactive State = "inactive"
)

// IsUpcoming reports whether the window has not opened yet.
func IsUpcoming(s model.Session, now time.Time) bool {
	return now.Before(s.Window.Start)
}

// IsCurrentlyActive reports whether the session is switched on and now
// falls inside [Start, End).
func IsCurrentlyActive(s model.Session, now time.Time) bool {
	return s.Active && !now.Before(s.Window.Start) && now.Before(s.Window.End)
}

// HasEnded reports whether the window has closed.
func HasEnded(s model.Session, now time.Time) bool {
	return !now.Before(s.Window.End)
}

// StateAt summarises the session at now. A switched-off session is inactive
// unless its window has already ended.
func StateAt(s model.Session, now time.Time) State {
	switch {
	case HasEnded(s, now):
		return StateEnded
	case !s.Active:
		return StateInactive
	case IsUpcoming(s, now):
		return StateUpcoming
	default:
		return StateActive
	}
}

// ValidateNewSession checks the window and retry policy of a session being
// assigned to a class.
func ValidateNewSession(w model.Window, retry model.RetryPolicy, now time.Time) error {
	if !w.Start.Before(w.End) {
		return apperr.New(apperr.CodeSessionInvalidWindow,
			fmt.Sprintf("window start %s must be before end %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339)))
	}
	if !w.End.After(now) {
		return apperr.New(apperr.CodeSessionWindowEnded,
			fmt.Sprintf("window end %s is not in the future", w.End.Format(time.RFC3339)))
	}
	if retry.RetryTimes < 0 {
		return apperr.New(apperr.CodeSessionInvalidRetry, "retry times must not be negative")
	}
	return nil
}

// CheckStart decides whether a student with priorCount attempts may start
// another one and returns the new attempt number.
func CheckStart(s model.Session, priorCount int, now time.Time) (int, error) {
	if !IsCurrentlyActive(s, now) {
		return 0, apperr.WithMetadata(apperr.CodeSessionNotActive,
			fmt.Sprintf("session %d is %s", s.ID, StateAt(s, now)),
			map[string]string{"State": string(StateAt(s, now))})
	}
	if priorCount > 0 && !(s.Retry.IsRetryable && priorCount < s.Retry.RetryTimes) {
		return 0, apperr.WithMetadata(apperr.CodeAttemptRetryExhausted,
			fmt.Sprintf("student already has %d attempts in session %d", priorCount, s.ID),
			map[string]string{"Attempts": fmt.Sprint(priorCount)})
	}
	return priorCount + 1, nil
}

// CheckSubmit verifies that the attempt may be submitted by studentID
// against sessionID.
func CheckSubmit(a model.Attempt, sessionID, studentID int64) error {
	if a.StudentID != studentID {
		return apperr.New(apperr.CodeAttemptNotOwned,
			fmt.Sprintf("attempt %d does not belong to student %d", a.ID, studentID))
	}
	if a.SessionID != sessionID {
		return apperr.New(apperr.CodeAttemptSessionMismatch,
			fmt.Sprintf("attempt %d belongs to session %d, not %d", a.ID, a.SessionID, sessionID))
	}
	if a.Status != model.AttemptInProgress {
		return apperr.WithMetadata(apperr.CodeAttemptNotInProgress,
			fmt.Sprintf("attempt %d is %s", a.ID, a.Status),
			map[string]string{"Status": string(a.Status)})
	}
	return nil
}
