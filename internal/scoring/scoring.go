// Package scoring grades objective questions against their answer keys.
// All functions are pure; a grading pass shares no state between questions.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// Options carries the session settings that affect scoring.
type Options struct {
	AllowPartialScoring bool
}

// Outcome is the score of a single question.
type Outcome struct {
	Score     float64
	IsCorrect bool
	IsPartial bool
}

// Result is the aggregate of a grading pass.
type Result struct {
	Answers     []model.GradedAnswer
	Score       float64
	TotalPoints float64
	Percentage  float64
	// HasEssay is set when at least one question was left for manual grading.
	HasEssay bool
}

// Grade scores every question of an exam against the student's selections.
// Essay questions contribute nothing and produce no GradedAnswer. Answers
// are returned in question order.
func Grade(questions []model.QuestionSpec, selections map[int64][]string, opts Options) (Result, error) {
	var res Result
	for _, q := range questions {
		if !q.Type.Objective() {
			res.HasEssay = true
			continue
		}
		selected := selections[q.ID]
		out, err := ScoreQuestion(q, selected, opts)
		if err != nil {
			return Result{}, err
		}
		res.TotalPoints += q.Points
		res.Score += out.Score
		res.Answers = append(res.Answers, model.GradedAnswer{
			QuestionID:        q.ID,
			SelectedAnswerIDs: selected,
			Score:             out.Score,
			IsCorrect:         out.IsCorrect,
			IsPartial:         out.IsPartial,
		})
	}
	res.Score = round2(res.Score)
	res.Percentage = Percentage(res.Score, res.TotalPoints)
	return res, nil
}

// Percentage returns score/total×100 rounded to two places, or 0 when
// total is zero.
func Percentage(score, total float64) float64 {
	if total == 0 {
		return 0
	}
	return round2(score / total * 100)
}

// ScoreQuestion scores one question. An empty selection scores zero.
func ScoreQuestion(q model.QuestionSpec, selected []string, opts Options) (Outcome, error) {
	switch q.Type {
	case model.QuestionEssay:
		return Outcome{}, nil
	case model.QuestionFillInBlank:
		if len(selected) == 0 {
			return Outcome{}, nil
		}
		return scoreFillInBlank(q, selected[0]), nil
	case model.QuestionMultipleChoice, model.QuestionTrueFalse:
		if len(selected) == 0 {
			return Outcome{}, nil
		}
		return scoreSingle(q, selected), nil
	case model.QuestionMultipleAnswer:
		if len(selected) == 0 {
			return Outcome{}, nil
		}
		return scoreMultiple(q, selected, opts), nil
	default:
		return Outcome{}, apperr.WithMetadata(apperr.CodeQuestionTypeUnsupported,
			fmt.Sprintf("question %d has unsupported type %q", q.ID, q.Type),
			map[string]string{"Type": string(q.Type)})
	}
}

func scoreFillInBlank(q model.QuestionSpec, text string) Outcome {
	text = strings.TrimSpace(text)
	for _, a := range q.Answers {
		if a.IsCorrect && strings.EqualFold(text, strings.TrimSpace(a.Content)) {
			return Outcome{Score: q.Points, IsCorrect: true}
		}
	}
	return Outcome{}
}

// scoreSingle requires exactly one distinct selection; anything else
// scores zero.
func scoreSingle(q model.QuestionSpec, selected []string) Outcome {
	chosen := selectionSet(selected)
	if len(chosen) != 1 {
		return Outcome{}
	}
	correct := correctSet(q)
	for id := range chosen {
		if _, ok := correct[id]; ok {
			return Outcome{Score: q.Points, IsCorrect: true}
		}
	}
	return Outcome{}
}

func scoreMultiple(q model.QuestionSpec, selected []string, opts Options) Outcome {
	correct := correctSet(q)
	chosen := selectionSet(selected)

	var correctSelected, incorrectSelected int
	for id := range chosen {
		if _, ok := correct[id]; ok {
			correctSelected++
		} else {
			incorrectSelected++
		}
	}
	totalCorrect := len(correct)

	switch {
	case correctSelected == totalCorrect && incorrectSelected == 0:
		return Outcome{Score: q.Points, IsCorrect: true}
	case correctSelected == 0:
		return Outcome{}
	case !opts.AllowPartialScoring:
		return Outcome{}
	}

	ratio := math.Max(0, float64(correctSelected-incorrectSelected)/float64(totalCorrect))
	score := round2(q.Points * ratio)
	return Outcome{Score: score, IsPartial: score > 0}
}

// selectionSet collapses selections that differ only in case or padding.
func selectionSet(selected []string) map[string]struct{} {
	chosen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		chosen[normalize(s)] = struct{}{}
	}
	return chosen
}

func correctSet(q model.QuestionSpec) map[string]struct{} {
	set := make(map[string]struct{}, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsCorrect {
			set[normalize(a.ID)] = struct{}{}
		}
	}
	return set
}

// normalize makes answer identifiers comparable regardless of case and padding.
func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
