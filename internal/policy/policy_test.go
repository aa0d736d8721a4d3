package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

var (
	start = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	end   = start.Add(2 * time.Hour)
)

func testSession(active bool, retry model.RetryPolicy) model.Session {
	return model.Session{
		ID:     7,
		ExamID: 1,
		Window: model.Window{Start: start, End: end},
		Retry:  retry,
		Active: active,
	}
}

func TestWindowExclusivity(t *testing.T) {
	s := testSession(true, model.RetryPolicy{})
	instants := []time.Time{
		start.Add(-24 * time.Hour),
		start.Add(-time.Nanosecond),
		start,
		start.Add(time.Hour),
		end.Add(-time.Nanosecond),
		end,
		end.Add(time.Hour),
	}
	for _, now := range instants {
		n := 0
		for _, b := range []bool{IsUpcoming(s, now), IsCurrentlyActive(s, now), HasEnded(s, now)} {
			if b {
				n++
			}
		}
		if n != 1 {
			t.Errorf("at %s: %d of upcoming/active/ended are true, want exactly 1", now, n)
		}
	}
}

func TestWindowBoundaries(t *testing.T) {
	s := testSession(true, model.RetryPolicy{})
	tests := []struct {
		name string
		now  time.Time
		want State
	}{
		{"before start", start.Add(-time.Minute), StateUpcoming},
		{"at start", start, StateActive},
		{"inside", start.Add(time.Hour), StateActive},
		{"at end", end, StateEnded},
		{"after end", end.Add(time.Minute), StateEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateAt(s, tt.now); got != tt.want {
				t.Errorf("StateAt = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInactiveSessionNeverActive(t *testing.T) {
	s := testSession(false, model.RetryPolicy{})
	now := start.Add(time.Hour)
	if IsCurrentlyActive(s, now) {
		t.Error("kill switch must override the window")
	}
	if got := StateAt(s, now); got != StateInactive {
		t.Errorf("StateAt = %s, want %s", got, StateInactive)
	}
	if got := StateAt(s, end); got != StateEnded {
		t.Errorf("StateAt after end = %s, want %s", got, StateEnded)
	}
}

func TestValidateNewSession(t *testing.T) {
	now := start.Add(-time.Hour)
	tests := []struct {
		name   string
		window model.Window
		retry  model.RetryPolicy
		now    time.Time
		want   apperr.Code
	}{
		{"valid", model.Window{Start: start, End: end}, model.RetryPolicy{IsRetryable: true, RetryTimes: 3}, now, ""},
		{"already running", model.Window{Start: start, End: end}, model.RetryPolicy{}, start.Add(time.Minute), ""},
		{"start equals end", model.Window{Start: start, End: start}, model.RetryPolicy{}, now, apperr.CodeSessionInvalidWindow},
		{"start after end", model.Window{Start: end, End: start}, model.RetryPolicy{}, now, apperr.CodeSessionInvalidWindow},
		{"end in the past", model.Window{Start: start, End: end}, model.RetryPolicy{}, end.Add(time.Minute), apperr.CodeSessionWindowEnded},
		{"end equals now", model.Window{Start: start, End: end}, model.RetryPolicy{}, end, apperr.CodeSessionWindowEnded},
		{"negative retries", model.Window{Start: start, End: end}, model.RetryPolicy{IsRetryable: true, RetryTimes: -1}, now, apperr.CodeSessionInvalidRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewSession(tt.window, tt.retry, tt.now)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, apperr.New(tt.want, "")) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation kind, got %s", apperr.KindOf(err))
			}
		})
	}
}

func TestCheckStart(t *testing.T) {
	inside := start.Add(30 * time.Minute)
	tests := []struct {
		name       string
		session    model.Session
		prior      int
		now        time.Time
		wantNumber int
		wantErr    apperr.Code
	}{
		{"first attempt", testSession(true, model.RetryPolicy{}), 0, inside, 1, ""},
		{"no retry second attempt", testSession(true, model.RetryPolicy{}), 1, inside, 0, apperr.CodeAttemptRetryExhausted},
		{"retry flag with zero times", testSession(true, model.RetryPolicy{IsRetryable: true}), 1, inside, 0, apperr.CodeAttemptRetryExhausted},
		{"retry within limit", testSession(true, model.RetryPolicy{IsRetryable: true, RetryTimes: 3}), 2, inside, 3, ""},
		{"retry at limit", testSession(true, model.RetryPolicy{IsRetryable: true, RetryTimes: 3}), 3, inside, 0, apperr.CodeAttemptRetryExhausted},
		{"times without flag", testSession(true, model.RetryPolicy{RetryTimes: 5}), 1, inside, 0, apperr.CodeAttemptRetryExhausted},
		{"upcoming", testSession(true, model.RetryPolicy{}), 0, start.Add(-time.Second), 0, apperr.CodeSessionNotActive},
		{"ended", testSession(true, model.RetryPolicy{}), 0, end, 0, apperr.CodeSessionNotActive},
		{"switched off", testSession(false, model.RetryPolicy{}), 0, inside, 0, apperr.CodeSessionNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CheckStart(tt.session, tt.prior, tt.now)
			if tt.wantErr != "" {
				if !errors.Is(err, apperr.New(tt.wantErr, "")) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				if !apperr.IsKind(err, apperr.KindPolicy) {
					t.Errorf("expected policy kind, got %s", apperr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.wantNumber {
				t.Errorf("attempt number = %d, want %d", n, tt.wantNumber)
			}
		})
	}
}

func TestRetryGatingWithoutRetry(t *testing.T) {
	s := testSession(true, model.RetryPolicy{IsRetryable: false, RetryTimes: 10})
	now := start.Add(time.Minute)
	prior := 0
	for i := 0; i < 5; i++ {
		if _, err := CheckStart(s, prior, now); err == nil {
			prior++
		}
	}
	if prior != 1 {
		t.Errorf("non-retryable session allowed %d attempts, want 1", prior)
	}
}

func TestCheckSubmit(t *testing.T) {
	attempt := model.Attempt{ID: 3, SessionID: 7, StudentID: 42, Status: model.AttemptInProgress}
	tests := []struct {
		name    string
		mutate  func(a *model.Attempt)
		session int64
		student int64
		want    apperr.Code
	}{
		{"ok", nil, 7, 42, ""},
		{"other student", nil, 7, 43, apperr.CodeAttemptNotOwned},
		{"other session", nil, 8, 42, apperr.CodeAttemptSessionMismatch},
		{"submitted", func(a *model.Attempt) { a.Status = model.AttemptSubmitted }, 7, 42, apperr.CodeAttemptNotInProgress},
		{"graded", func(a *model.Attempt) { a.Status = model.AttemptGraded }, 7, 42, apperr.CodeAttemptNotInProgress},
		{"timed out", func(a *model.Attempt) { a.Status = model.AttemptTimedOut }, 7, 42, apperr.CodeAttemptNotInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := attempt
			if tt.mutate != nil {
				tt.mutate(&a)
			}
			err := CheckSubmit(a, tt.session, tt.student)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, apperr.New(tt.want, "")) {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestAttemptTransitions(t *testing.T) {
	tests := []struct {
		from, to model.AttemptStatus
		want     bool
	}{
		{model.AttemptInProgress, model.AttemptSubmitted, true},
		{model.AttemptInProgress, model.AttemptTimedOut, true},
		{model.AttemptInProgress, model.AttemptGraded, true},
		{model.AttemptInProgress, model.AttemptInProgress, false},
		{model.AttemptSubmitted, model.AttemptGraded, true},
		{model.AttemptSubmitted, model.AttemptInProgress, false},
		{model.AttemptGraded, model.AttemptSubmitted, false},
		{model.AttemptTimedOut, model.AttemptSubmitted, false},
		{model.AttemptTimedOut, model.AttemptGraded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttemptTerminalStates(t *testing.T) {
	tests := []struct {
		status model.AttemptStatus
		want   bool
	}{
		{model.AttemptInProgress, false},
		{model.AttemptSubmitted, false},
		{model.AttemptGraded, true},
		{model.AttemptTimedOut, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFixedClock(t *testing.T) {
	var c Clock = FixedClock(start)
	if !c.Now().Equal(start) {
		t.Errorf("FixedClock.Now = %s, want %s", c.Now(), start)
	}
}
