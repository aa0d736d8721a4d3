package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/composition"
	"github.com/pavelanni/assessor/internal/model"
)

// NewExam holds the fields needed to create an exam.
type NewExam struct {
	Title           string
	Blueprint       model.Blueprint
	Matrix          *model.TopicMatrix
	DurationMinutes int
	CreatedBy       int64
}

// CompositionReport is the outcome of checking an exam against both of its
// blueprints. Matrix is nil when the exam has no topic matrix.
type CompositionReport struct {
	ExamID    int64                         `json:"exam_id"`
	Version   int                           `json:"version"`
	OK        bool                          `json:"ok"`
	Blueprint composition.ValidationResult  `json:"blueprint"`
	Matrix    *composition.ValidationResult `json:"matrix,omitempty"`
}

// Err returns a validation error if either check failed.
func (r CompositionReport) Err() error {
	if err := r.Blueprint.Err(); err != nil {
		return err
	}
	if r.Matrix != nil {
		return r.Matrix.Err()
	}
	return nil
}

// CreateExam stores a new draft exam.
func (s *Service) CreateExam(ctx context.Context, in NewExam) (*model.Exam, error) {
	exam, err := composition.NewExam(in.Title, in.Blueprint, in.Matrix, in.DurationMinutes, in.CreatedBy, s.now())
	if err != nil {
		return nil, err
	}
	id, err := s.store.CreateExam(ctx, exam)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	exam.ID = id
	slog.Info("created exam", "exam_id", id, "title", exam.Title,
		"questions_required", exam.Blueprint.TotalQuestions(), "points_required", exam.Blueprint.TotalPoints())
	return &exam, nil
}

// GetExam returns an exam or a not-found error.
func (s *Service) GetExam(ctx context.Context, examID int64) (*model.Exam, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, apperr.New(apperr.CodeExamNotFound, fmt.Sprintf("exam %d not found", examID))
	}
	return exam, nil
}

// ListExams returns exam headers, newest first.
func (s *Service) ListExams(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.store.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// AddQuestion places a bank question into the exam.
func (s *Service) AddQuestion(ctx context.Context, examID, questionID int64, orderIndex int, points float64) (*model.Exam, error) {
	if err := s.requireQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.editExam(ctx, examID, func(exam *model.Exam) error {
		return composition.AddQuestion(exam, questionID, orderIndex, points, s.now())
	})
}

// ReplaceQuestion swaps one question for another at the same position.
func (s *Service) ReplaceQuestion(ctx context.Context, examID, oldID, newID int64, points float64) (*model.Exam, error) {
	if err := s.requireQuestion(ctx, newID); err != nil {
		return nil, err
	}
	return s.editExam(ctx, examID, func(exam *model.Exam) error {
		return composition.ReplaceQuestion(exam, oldID, newID, points, s.now())
	})
}

// RemoveQuestion drops a question from the exam.
func (s *Service) RemoveQuestion(ctx context.Context, examID, questionID int64) (*model.Exam, error) {
	return s.editExam(ctx, examID, func(exam *model.Exam) error {
		return composition.RemoveQuestion(exam, questionID, s.now())
	})
}

func (s *Service) editExam(ctx context.Context, examID int64, edit func(*model.Exam) error) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	wasPublished := exam.Status == model.ExamPublished
	if err := edit(exam); err != nil {
		return nil, err
	}
	if err := s.store.SaveExam(ctx, *exam); err != nil {
		return nil, fmt.Errorf("save exam: %w", err)
	}
	if wasPublished {
		slog.Warn("published exam edited, returned to draft", "exam_id", examID, "version", exam.Version)
	}
	slog.Debug("exam edited", "exam_id", examID, "questions", len(exam.Questions), "version", exam.Version)
	return exam, nil
}

func (s *Service) requireQuestion(ctx context.Context, questionID int64) error {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return apperr.New(apperr.CodeQuestionNotFound, fmt.Sprintf("question %d not found", questionID))
	}
	return nil
}

// ValidateComposition checks the exam against its difficulty blueprint and,
// when present, its topic matrix. It never modifies the exam.
func (s *Service) ValidateComposition(ctx context.Context, examID int64) (CompositionReport, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return CompositionReport{}, err
	}
	return s.report(ctx, *exam)
}

func (s *Service) report(ctx context.Context, exam model.Exam) (CompositionReport, error) {
	rep := CompositionReport{
		ExamID:    exam.ID,
		Version:   exam.Version,
		Blueprint: composition.Validate(exam),
	}
	rep.OK = rep.Blueprint.OK
	if exam.Matrix != nil {
		ids := make([]int64, 0, len(exam.Questions))
		for _, q := range exam.Questions {
			ids = append(ids, q.QuestionID)
		}
		meta, err := s.store.QuestionMeta(ctx, ids)
		if err != nil {
			return CompositionReport{}, apperr.Wrap(apperr.CodeCatalogUnavailable, "load question metadata", err)
		}
		m := composition.ValidateMatrix(*exam.Matrix, exam, meta)
		rep.Matrix = &m
		rep.OK = rep.OK && m.OK
	}
	return rep, nil
}

// PublishExam publishes the exam if it satisfies its blueprint and, when it
// has one, its topic matrix.
func (s *Service) PublishExam(ctx context.Context, examID int64) (*model.Exam, CompositionReport, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, CompositionReport{}, err
	}
	rep, err := s.report(ctx, *exam)
	if err != nil {
		return nil, rep, err
	}
	if err := rep.Err(); err != nil {
		slog.Warn("exam not publishable", "exam_id", examID, "error", err)
		return nil, rep, err
	}
	if _, err := composition.Publish(exam, s.now()); err != nil {
		return nil, rep, err
	}
	if err := s.store.SaveExam(ctx, *exam); err != nil {
		return nil, rep, fmt.Errorf("save exam: %w", err)
	}
	slog.Info("published exam", "exam_id", examID, "version", exam.Version)
	return exam, rep, nil
}
