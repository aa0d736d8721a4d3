package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// ImportQuestions checks and stores a batch of bank questions. The batch is
// stored whole or not at all.
func (s *Service) ImportQuestions(ctx context.Context, qs []model.QuestionImport) ([]int64, error) {
	for i, q := range qs {
		if err := checkQuestion(q); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidRequest, fmt.Sprintf("question %d", i+1), err)
		}
	}
	ids, err := s.store.InsertQuestions(ctx, qs)
	if err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}
	slog.Info("imported questions", "count", len(ids))
	return ids, nil
}

func checkQuestion(q model.QuestionImport) error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("text is required")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	switch q.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("unknown difficulty %q", q.Difficulty)
	}
	if q.Level != "" && !q.Level.Valid() {
		return fmt.Errorf("unknown cognitive level %q", q.Level)
	}

	correct := 0
	seen := make(map[string]bool, len(q.Answers))
	for _, a := range q.Answers {
		id := strings.ToLower(strings.TrimSpace(a.ID))
		if id == "" {
			return errors.New("answer option id is required")
		}
		if seen[id] {
			return fmt.Errorf("duplicate answer option %q", a.ID)
		}
		seen[id] = true
		if a.IsCorrect {
			correct++
		}
	}

	switch q.Type {
	case model.QuestionEssay:
		return nil
	case model.QuestionMultipleChoice, model.QuestionTrueFalse:
		if correct != 1 {
			return fmt.Errorf("%s question needs exactly one correct option, has %d", q.Type, correct)
		}
	case model.QuestionMultipleAnswer, model.QuestionFillInBlank:
		if correct == 0 {
			return fmt.Errorf("%s question needs at least one correct answer", q.Type)
		}
	}
	if q.Type == model.QuestionTrueFalse && len(q.Answers) != 2 {
		return fmt.Errorf("true/false question needs exactly two options, has %d", len(q.Answers))
	}
	return nil
}
