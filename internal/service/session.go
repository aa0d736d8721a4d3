package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/policy"
)

// NewSession holds the fields needed to assign an exam to a class.
type NewSession struct {
	ExamID              int64
	ClassID             int64
	Window              model.Window
	Retry               model.RetryPolicy
	ShuffleQuestions    bool
	ShuffleAnswers      bool
	AllowPartialScoring bool
}

// SessionView is a session with its state derived at read time.
type SessionView struct {
	model.Session
	State policy.State `json:"state"`
	// AttemptsUsed is set when the view is built for a student.
	AttemptsUsed *int `json:"attempts_used,omitempty"`
}

// CreateSession assigns an exam to a class. The exam need not be
// published yet.
func (s *Service) CreateSession(ctx context.Context, in NewSession) (*model.Session, error) {
	now := s.now()
	if err := policy.ValidateNewSession(in.Window, in.Retry, now); err != nil {
		return nil, err
	}
	if _, err := s.GetExam(ctx, in.ExamID); err != nil {
		return nil, err
	}

	sess := model.Session{
		ExamID:              in.ExamID,
		ClassID:             in.ClassID,
		Window:              model.Window{Start: in.Window.Start.UTC(), End: in.Window.End.UTC()},
		Retry:               in.Retry,
		ShuffleQuestions:    in.ShuffleQuestions,
		ShuffleAnswers:      in.ShuffleAnswers,
		AllowPartialScoring: in.AllowPartialScoring,
		Active:              true,
		CreatedAt:           now,
	}
	id, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		if apperr.IsKind(err, apperr.KindValidation) {
			slog.Warn("session rejected", "class_id", in.ClassID, "exam_id", in.ExamID, "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.ID = id
	slog.Info("created session", "session_id", id, "class_id", in.ClassID, "exam_id", in.ExamID,
		"start", sess.Window.Start, "end", sess.Window.End, "retryable", sess.Retry.IsRetryable)
	return &sess, nil
}

// GetSession returns the session with its current derived state.
func (s *Service) GetSession(ctx context.Context, sessionID int64) (*SessionView, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, fmt.Sprintf("session %d not found", sessionID))
	}
	return &SessionView{Session: *sess, State: policy.StateAt(*sess, s.now())}, nil
}

// GetSessionForStudent returns the session view with the number of
// attempts the student has already started.
func (s *Service) GetSessionForStudent(ctx context.Context, sessionID, studentID int64) (*SessionView, error) {
	view, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	n, err := s.store.CountAttempts(ctx, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	view.AttemptsUsed = &n
	return view, nil
}

// ListSessions returns the sessions scheduled for an exam.
func (s *Service) ListSessions(ctx context.Context, examID int64) ([]SessionView, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessionsForExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionView{Session: sess, State: policy.StateAt(sess, now)})
	}
	return views, nil
}

// SetSessionActive flips the session's kill switch.
func (s *Service) SetSessionActive(ctx context.Context, sessionID int64, active bool) (*SessionView, error) {
	if err := s.store.SetSessionActive(ctx, sessionID, active); err != nil {
		return nil, err
	}
	slog.Info("session switched", "session_id", sessionID, "active", active)
	return s.GetSession(ctx, sessionID)
}

// ExportSession returns every attempt of a session for export.
func (s *Service) ExportSession(ctx context.Context, sessionID int64) (*model.SessionExport, error) {
	return s.store.ExportSession(ctx, sessionID)
}
