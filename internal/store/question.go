package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// InsertQuestions stores questions with their answer options in a single
// transaction and returns the new IDs in input order.
func (s *Store) InsertQuestions(ctx context.Context, qs []model.QuestionImport) ([]int64, error) {
	ids := make([]int64, 0, len(qs))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range qs {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO questions (text, type, difficulty, topic, level) VALUES (?, ?, ?, ?, ?)`,
				q.Text, q.Type, q.Difficulty, q.Topic, q.Level,
			)
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for i, a := range q.Answers {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO answer_options (question_id, position, option_id, content, is_correct)
					 VALUES (?, ?, ?, ?, ?)`,
					id, i, a.ID, a.Content, a.IsCorrect,
				); err != nil {
					return fmt.Errorf("insert answer option %q: %w", a.ID, err)
				}
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetQuestion returns a question with its answer options, or nil if it
// does not exist.
func (s *Store) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	var q model.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, type, difficulty, topic, level FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Text, &q.Type, &q.Difficulty, &q.Topic, &q.Level)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	answers, err := answerOptions(ctx, s.db, []int64{id})
	if err != nil {
		return nil, err
	}
	q.Answers = answers[id]
	return &q, nil
}

// ListQuestions returns bank questions matching the given filters, without
// answer options. Empty strings mean no filtering on that field.
func (s *Store) ListQuestions(ctx context.Context, difficulty model.Difficulty, topic string) ([]model.Question, error) {
	query := `SELECT id, text, type, difficulty, topic, level FROM questions WHERE 1=1`
	var args []any
	if difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	if topic != "" {
		query += ` AND topic = ?`
		args = append(args, topic)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Difficulty, &q.Topic, &q.Level); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ListDistinctTopics returns the bank's topics in alphabetical order.
func (s *Store) ListDistinctTopics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT topic FROM questions WHERE topic != '' ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// QuestionsWithAnswers returns the exam's questions in order index order,
// each with its exam points and answer options. All reads share one
// transaction so a grading pass sees a single snapshot. It returns a
// not-found error when the exam does not exist.
func (s *Store) QuestionsWithAnswers(ctx context.Context, examID int64) ([]model.QuestionSpec, error) {
	var specs []model.QuestionSpec
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM exams WHERE id = ?)`, examID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("look up exam: %w", err)
		}
		if !exists {
			return apperr.New(apperr.CodeExamNotFound, fmt.Sprintf("exam %d not found", examID))
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT q.id, q.text, q.type, eq.points
			 FROM exam_questions eq JOIN questions q ON q.id = eq.question_id
			 WHERE eq.exam_id = ? ORDER BY eq.order_index`, examID,
		)
		if err != nil {
			return fmt.Errorf("query exam questions: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var q model.QuestionSpec
			if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Points); err != nil {
				rows.Close()
				return err
			}
			specs = append(specs, q)
			ids = append(ids, q.ID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		answers, err := answerOptions(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range specs {
			specs[i].Answers = answers[specs[i].ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

// QuestionMeta returns catalog metadata for the given questions. Unknown IDs
// are absent from the map.
func (s *Store) QuestionMeta(ctx context.Context, ids []int64) (map[int64]model.QuestionMeta, error) {
	meta := make(map[int64]model.QuestionMeta, len(ids))
	if len(ids) == 0 {
		return meta, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, difficulty, topic, level FROM questions WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m model.QuestionMeta
		if err := rows.Scan(&m.QuestionID, &m.Difficulty, &m.Topic, &m.Level); err != nil {
			return nil, err
		}
		meta[m.QuestionID] = m
	}
	return meta, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func answerOptions(ctx context.Context, q queryer, questionIDs []int64) (map[int64][]model.AnswerOption, error) {
	out := make(map[int64][]model.AnswerOption, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT question_id, option_id, content, is_correct FROM answer_options
		 WHERE question_id IN (`+placeholders(len(questionIDs))+`)
		 ORDER BY question_id, position`,
		int64Args(questionIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query answer options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var qid int64
		var a model.AnswerOption
		if err := rows.Scan(&qid, &a.ID, &a.Content, &a.IsCorrect); err != nil {
			return nil, err
		}
		out[qid] = append(out[qid], a)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
