package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/scoring"
)

// ExportSession builds export-ready results for every attempt of a session.
func (s *Store) ExportSession(ctx context.Context, sessionID int64) (*model.SessionExport, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, fmt.Sprintf("session %d not found", sessionID))
	}
	exam, err := s.GetExam(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", sess.ExamID, err)
	}
	if exam == nil {
		return nil, apperr.New(apperr.CodeExamNotFound, fmt.Sprintf("exam %d not found", sess.ExamID))
	}

	attempts, err := s.ListAttempts(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	studentIDs := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		studentIDs = append(studentIDs, a.StudentID)
	}
	users, err := s.UsersByID(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	out := &model.SessionExport{
		SessionID:   sess.ID,
		ExamID:      exam.ID,
		ExamTitle:   exam.Title,
		ClassID:     sess.ClassID,
		TotalPoints: exam.TotalPoints(),
		Results:     make([]model.StudentResult, 0, len(attempts)),
	}
	for _, a := range attempts {
		answers, err := s.gradedAnswers(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("get answers of attempt %d: %w", a.ID, err)
		}
		// Students unknown to the user table still export with their ID.
		u, ok := users[a.StudentID]
		if !ok {
			u.Username = fmt.Sprintf("student-%d", a.StudentID)
		}
		out.Results = append(out.Results, model.StudentResult{
			Username:        u.Username,
			DisplayName:     u.DisplayName,
			AttemptNumber:   a.AttemptNumber,
			Status:          a.Status,
			StartedAt:       a.StartedAt,
			SubmittedAt:     a.SubmittedAt,
			Score:           a.Score,
			TotalPoints:     a.TotalPoints,
			ScorePercentage: scoring.Percentage(a.Score, a.TotalPoints),
			Answers:         answers,
		})
	}
	return out, nil
}
