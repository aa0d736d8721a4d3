package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/policy"
	"github.com/pavelanni/assessor/internal/scoring"
)

// Submission is a student's request to submit an attempt.
type Submission struct {
	AttemptID int64
	SessionID int64
	StudentID int64
	Answers   []model.SubmittedAnswer
}

// StartAttempt opens a new attempt for the student if the session is
// currently active and the retry policy allows it.
func (s *Service) StartAttempt(ctx context.Context, sessionID, studentID int64) (*model.Attempt, error) {
	now := s.now()
	a, err := s.store.StartAttempt(ctx, sessionID, studentID, now,
		func(sess model.Session, prior int) (int, error) {
			return policy.CheckStart(sess, prior, now)
		})
	if err != nil {
		if apperr.IsKind(err, apperr.KindPolicy) {
			slog.Warn("attempt start rejected", "session_id", sessionID, "student_id", studentID, "error", err)
			return nil, err
		}
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("start attempt: %w", err)
	}
	slog.Info("attempt started", "attempt_id", a.ID, "session_id", sessionID,
		"student_id", studentID, "attempt_number", a.AttemptNumber)
	return &a, nil
}

// SubmitAttempt grades the student's answers and records the result. If the
// question data cannot be fetched the attempt stays in progress and the
// student may submit again. An attempt is scored at most once.
func (s *Service) SubmitAttempt(ctx context.Context, sub Submission) (*model.GradedAttemptSummary, error) {
	attempt, err := s.store.GetAttempt(ctx, sub.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt == nil {
		return nil, apperr.New(apperr.CodeAttemptNotFound, fmt.Sprintf("attempt %d not found", sub.AttemptID))
	}
	if err := policy.CheckSubmit(*attempt, sub.SessionID, sub.StudentID); err != nil {
		slog.Warn("submission rejected", "attempt_id", sub.AttemptID, "student_id", sub.StudentID, "error", err)
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, fmt.Sprintf("session %d not found", attempt.SessionID))
	}

	questions, err := s.questionsFor(ctx, sess.ExamID)
	if err != nil {
		slog.Error("question fetch failed, attempt left in progress",
			"attempt_id", attempt.ID, "exam_id", sess.ExamID, "error", err)
		return nil, err
	}

	selections, err := selectionMap(questions, sub.Answers)
	if err != nil {
		return nil, err
	}

	result, err := scoring.Grade(questions, selections, scoring.Options{AllowPartialScoring: sess.AllowPartialScoring})
	if err != nil {
		slog.Error("grading failed, attempt left in progress", "attempt_id", attempt.ID, "error", err)
		return nil, err
	}

	submittedAt := s.now()
	graded := *attempt
	graded.SubmittedAt = &submittedAt
	graded.Score = result.Score
	graded.TotalPoints = result.TotalPoints
	graded.Answers = result.Answers
	graded.Status = model.AttemptGraded
	if result.HasEssay {
		// Essays are graded by hand later.
		graded.Status = model.AttemptSubmitted
	}

	if err := s.store.SubmitAttempt(ctx, graded); err != nil {
		if apperr.IsKind(err, apperr.KindPolicy) {
			slog.Warn("concurrent submission lost", "attempt_id", attempt.ID, "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("record submission: %w", err)
	}

	slog.Info("attempt submitted", "attempt_id", attempt.ID, "status", graded.Status,
		"score", result.Score, "total_points", result.TotalPoints, "percentage", result.Percentage)
	return &model.GradedAttemptSummary{
		AttemptID:       attempt.ID,
		Status:          graded.Status,
		Answers:         result.Answers,
		Score:           result.Score,
		TotalPoints:     result.TotalPoints,
		ScorePercentage: result.Percentage,
	}, nil
}

// GetAttempt returns an attempt with its graded answers.
func (s *Service) GetAttempt(ctx context.Context, attemptID int64) (*model.Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a == nil {
		return nil, apperr.New(apperr.CodeAttemptNotFound, fmt.Sprintf("attempt %d not found", attemptID))
	}
	return a, nil
}

// questionsFor fetches the grading data for an exam. Any failure, including
// a missing exam, is a dependency error.
func (s *Service) questionsFor(ctx context.Context, examID int64) ([]model.QuestionSpec, error) {
	questions, err := s.catalog.QuestionsWithAnswers(ctx, examID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindDependency) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.CodeCatalogUnavailable, fmt.Sprintf("fetch questions of exam %d", examID), err)
	}
	if len(questions) == 0 {
		return nil, apperr.New(apperr.CodeCatalogUnavailable, fmt.Sprintf("exam %d has no questions", examID))
	}
	return questions, nil
}

// selectionMap indexes the submitted answers by question. Answers for
// questions outside the exam, or repeated answers, are rejected.
func selectionMap(questions []model.QuestionSpec, answers []model.SubmittedAnswer) (map[int64][]string, error) {
	known := make(map[int64]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	out := make(map[int64][]string, len(answers))
	for _, a := range answers {
		if !known[a.QuestionID] {
			return nil, apperr.WithMetadata(apperr.CodeAttemptUnknownQuestion,
				fmt.Sprintf("question %d is not part of this exam", a.QuestionID),
				map[string]string{"QuestionID": fmt.Sprint(a.QuestionID)})
		}
		if _, dup := out[a.QuestionID]; dup {
			return nil, apperr.New(apperr.CodeInvalidRequest,
				fmt.Sprintf("question %d answered more than once", a.QuestionID))
		}
		out[a.QuestionID] = a.Selected
	}
	return out, nil
}
