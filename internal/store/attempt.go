package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// StartGate decides, given the session and the student's prior attempt
// count, whether a new attempt may start and which number it gets.
type StartGate func(sess model.Session, priorCount int) (attemptNumber int, err error)

// StartAttempt loads the session, counts the student's attempts, asks gate
// for permission and inserts the new attempt, all in one immediate
// transaction. Concurrent starts for the same student are serialized and
// the unique (session, student, attempt_number) index backs the count.
func (s *Store) StartAttempt(ctx context.Context, sessionID, studentID int64, now time.Time, gate StartGate) (model.Attempt, error) {
	a := model.Attempt{
		SessionID: sessionID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
		StartedAt: now.UTC(),
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := scanSession(tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID))
		if err == sql.ErrNoRows {
			return apperr.New(apperr.CodeSessionNotFound, fmt.Sprintf("session %d not found", sessionID))
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		var prior int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM attempts WHERE session_id = ? AND student_id = ?`, sessionID, studentID,
		).Scan(&prior); err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}

		number, err := gate(sess, prior)
		if err != nil {
			return err
		}
		a.AttemptNumber = number

		res, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (session_id, student_id, attempt_number, status, started_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sessionID, studentID, number, a.Status, a.StartedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "attempts.session_id") {
				return apperr.New(apperr.CodeAttemptRetryExhausted,
					fmt.Sprintf("attempt %d already exists for student %d", number, studentID))
			}
			return fmt.Errorf("insert attempt: %w", err)
		}
		a.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return model.Attempt{}, err
	}
	return a, nil
}

// SubmitAttempt records the graded outcome of an in-progress attempt. The
// status update is conditional on the row still being in progress, so of
// two concurrent submissions only the first is written; the second gets
// CodeAttemptNotInProgress and nothing is changed.
func (s *Store) SubmitAttempt(ctx context.Context, graded model.Attempt) error {
	if !model.AttemptInProgress.CanTransitionTo(graded.Status) {
		return fmt.Errorf("submit attempt %d: invalid target status %q", graded.ID, graded.Status)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE attempts SET status = ?, submitted_at = ?, score = ?, total_points = ?
			 WHERE id = ? AND status = ?`,
			graded.Status, graded.SubmittedAt, graded.Score, graded.TotalPoints,
			graded.ID, model.AttemptInProgress,
		)
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.CodeAttemptNotInProgress,
				fmt.Sprintf("attempt %d is no longer in progress", graded.ID))
		}

		for i, ans := range graded.Answers {
			selected, err := json.Marshal(nonNil(ans.SelectedAnswerIDs))
			if err != nil {
				return fmt.Errorf("encode selection: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO graded_answers (attempt_id, position, question_id, selected, score, is_correct, is_partial)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				graded.ID, i, ans.QuestionID, string(selected), ans.Score, ans.IsCorrect, ans.IsPartial,
			); err != nil {
				return fmt.Errorf("insert graded answer: %w", err)
			}
		}
		return nil
	})
}

const attemptColumns = `id, session_id, student_id, attempt_number, status, started_at,
	submitted_at, score, total_points`

// GetAttempt returns an attempt with its graded answers, or nil if it does
// not exist.
func (s *Store) GetAttempt(ctx context.Context, id int64) (*model.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.Answers, err = s.gradedAnswers(ctx, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttempts returns the attempts of a session ordered by student and
// attempt number, without answers.
func (s *Store) ListAttempts(ctx context.Context, sessionID int64) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE session_id = ?
		 ORDER BY student_id, attempt_number`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountAttempts returns how many attempts the student has in the session.
func (s *Store) CountAttempts(ctx context.Context, sessionID, studentID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE session_id = ? AND student_id = ?`, sessionID, studentID,
	).Scan(&n)
	return n, err
}

func (s *Store) gradedAnswers(ctx context.Context, attemptID int64) ([]model.GradedAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, selected, score, is_correct, is_partial
		 FROM graded_answers WHERE attempt_id = ? ORDER BY position`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.GradedAnswer
	for rows.Next() {
		var ga model.GradedAnswer
		var selected string
		if err := rows.Scan(&ga.QuestionID, &selected, &ga.Score, &ga.IsCorrect, &ga.IsPartial); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(selected), &ga.SelectedAnswerIDs); err != nil {
			return nil, fmt.Errorf("decode selection of question %d: %w", ga.QuestionID, err)
		}
		answers = append(answers, ga)
	}
	return answers, rows.Err()
}

func scanAttempt(row rowScanner) (model.Attempt, error) {
	var a model.Attempt
	err := row.Scan(&a.ID, &a.SessionID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.SubmittedAt, &a.Score, &a.TotalPoints)
	return a, err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
