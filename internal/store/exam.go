package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// CreateExam inserts an exam with its question references and matrix.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO exams (title, easy_count, easy_points, medium_count, medium_points,
			   hard_count, hard_points, has_matrix, duration_minutes, version, status,
			   created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Title,
			e.Blueprint.Easy.Count, e.Blueprint.Easy.PointsPerQuestion,
			e.Blueprint.Medium.Count, e.Blueprint.Medium.PointsPerQuestion,
			e.Blueprint.Hard.Count, e.Blueprint.Hard.PointsPerQuestion,
			e.Matrix != nil, e.DurationMinutes, e.Version, e.Status,
			e.CreatedBy, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if e.Matrix != nil {
			for _, c := range e.Matrix.Cells {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO exam_matrix_cells (exam_id, topic, level, quantity) VALUES (?, ?, ?, ?)`,
					id, c.Topic, c.Level, c.Quantity,
				); err != nil {
					return fmt.Errorf("insert matrix cell: %w", err)
				}
			}
		}
		return replaceQuestionRefs(ctx, tx, id, e.Questions)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SaveExam writes the mutable parts of an exam: header status, version,
// timestamps and the full list of question references.
func (s *Store) SaveExam(ctx context.Context, e model.Exam) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE exams SET title = ?, version = ?, status = ?, updated_at = ? WHERE id = ?`,
			e.Title, e.Version, e.Status, e.UpdatedAt.UTC(), e.ID,
		)
		if err != nil {
			return fmt.Errorf("update exam: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperr.New(apperr.CodeExamNotFound, fmt.Sprintf("exam %d not found", e.ID))
		}
		return replaceQuestionRefs(ctx, tx, e.ID, e.Questions)
	})
}

func replaceQuestionRefs(ctx context.Context, tx *sql.Tx, examID int64, refs []model.QuestionRef) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id = ?`, examID); err != nil {
		return fmt.Errorf("clear exam questions: %w", err)
	}
	for _, r := range refs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, order_index, points) VALUES (?, ?, ?, ?)`,
			examID, r.QuestionID, r.OrderIndex, r.Points,
		); err != nil {
			if isUniqueViolation(err, "exam_questions.question_id") {
				return apperr.New(apperr.CodeExamDuplicateQuestion, fmt.Sprintf("question %d is already in the exam", r.QuestionID))
			}
			if isUniqueViolation(err, "exam_questions.order_index") {
				return apperr.New(apperr.CodeExamDuplicateOrderIndex, fmt.Sprintf("order index %d is already used", r.OrderIndex))
			}
			return fmt.Errorf("insert exam question %d: %w", r.QuestionID, err)
		}
	}
	return nil
}

// GetExam returns an exam with its question references and matrix, or nil
// if it does not exist.
func (s *Store) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	var e model.Exam
	var hasMatrix bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, easy_count, easy_points, medium_count, medium_points,
		   hard_count, hard_points, has_matrix, duration_minutes, version, status,
		   created_by, created_at, updated_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title,
		&e.Blueprint.Easy.Count, &e.Blueprint.Easy.PointsPerQuestion,
		&e.Blueprint.Medium.Count, &e.Blueprint.Medium.PointsPerQuestion,
		&e.Blueprint.Hard.Count, &e.Blueprint.Hard.PointsPerQuestion,
		&hasMatrix, &e.DurationMinutes, &e.Version, &e.Status,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	refs, err := s.questionRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Questions = refs

	if hasMatrix {
		m, err := s.matrixCells(ctx, id)
		if err != nil {
			return nil, err
		}
		e.Matrix = &m
	}
	return &e, nil
}

// ListExams returns exam headers, newest first, without questions.
func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, duration_minutes, version, status, created_by, created_at, updated_at
		 FROM exams ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.Version, &e.Status,
			&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (s *Store) questionRefs(ctx context.Context, examID int64) ([]model.QuestionRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, order_index, points FROM exam_questions WHERE exam_id = ? ORDER BY order_index`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []model.QuestionRef
	for rows.Next() {
		var r model.QuestionRef
		if err := rows.Scan(&r.QuestionID, &r.OrderIndex, &r.Points); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) matrixCells(ctx context.Context, examID int64) (model.TopicMatrix, error) {
	var m model.TopicMatrix
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, level, quantity FROM exam_matrix_cells WHERE exam_id = ? ORDER BY topic, level`, examID,
	)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.MatrixCell
		if err := rows.Scan(&c.Topic, &c.Level, &c.Quantity); err != nil {
			return m, err
		}
		m.Cells = append(m.Cells, c)
	}
	return m, rows.Err()
}
