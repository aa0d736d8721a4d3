package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

const sessionColumns = `id, exam_id, class_id, starts_at, ends_at, is_retryable, retry_times,
	shuffle_questions, shuffle_answers, allow_partial_scoring, active, created_at`

// CreateSession inserts an exam session. A second session for the same
// (class, exam) pair is rejected with CodeSessionDuplicate.
func (s *Store) CreateSession(ctx context.Context, sess model.Session) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (exam_id, class_id, starts_at, ends_at, is_retryable, retry_times,
		   shuffle_questions, shuffle_answers, allow_partial_scoring, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ExamID, sess.ClassID, sess.Window.Start.UTC(), sess.Window.End.UTC(),
		sess.Retry.IsRetryable, sess.Retry.RetryTimes,
		sess.ShuffleQuestions, sess.ShuffleAnswers, sess.AllowPartialScoring,
		sess.Active, sess.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "sessions.class_id") {
			return 0, apperr.WithMetadata(apperr.CodeSessionDuplicate,
				fmt.Sprintf("class %d already has a session for exam %d", sess.ClassID, sess.ExamID),
				map[string]string{"ClassID": fmt.Sprint(sess.ClassID), "ExamID": fmt.Sprint(sess.ExamID)})
		}
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

// GetSession returns a session by ID, or nil if it does not exist.
func (s *Store) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessionsForExam returns every session that uses the exam.
func (s *Store) ListSessionsForExam(ctx context.Context, examID int64) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE exam_id = ? ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetSessionActive flips the administrative kill switch.
func (s *Store) SetSessionActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.CodeSessionNotFound, fmt.Sprintf("session %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var sess model.Session
	err := row.Scan(&sess.ID, &sess.ExamID, &sess.ClassID,
		&sess.Window.Start, &sess.Window.End,
		&sess.Retry.IsRetryable, &sess.Retry.RetryTimes,
		&sess.ShuffleQuestions, &sess.ShuffleAnswers, &sess.AllowPartialScoring,
		&sess.Active, &sess.CreatedAt)
	return sess, err
}
