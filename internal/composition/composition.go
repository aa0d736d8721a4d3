// Package composition checks composed exams against their blueprints and
// applies question edits while keeping the exam's invariants.
package composition

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// MinQuestions is the smallest question count a publishable exam may have.
const MinQuestions = 5

// pointsEpsilon absorbs float summation noise when comparing point sums.
const pointsEpsilon = 1e-9

// Violation is one failed composition rule.
type Violation struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// ValidationResult reports every rule an exam currently violates.
type ValidationResult struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations"`
}

func (r *ValidationResult) add(code apperr.Code, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when the result is OK, otherwise a validation error
// listing the violated codes.
func (r ValidationResult) Err() error {
	if r.OK {
		return nil
	}
	codes := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		codes = append(codes, string(v.Code))
	}
	return apperr.WithMetadata(apperr.CodeExamNotValid,
		"exam does not satisfy its blueprint: "+strings.Join(codes, ", "),
		map[string]string{"Violations": strings.Join(codes, ", ")})
}

// Validate checks the exam against its blueprint. It has no side effects.
func Validate(exam model.Exam) ValidationResult {
	var res ValidationResult

	seenQuestion := make(map[int64]bool, len(exam.Questions))
	seenOrder := make(map[int]bool, len(exam.Questions))
	for _, q := range exam.Questions {
		if seenQuestion[q.QuestionID] {
			res.add(apperr.CodeExamDuplicateQuestion, "question %d appears more than once", q.QuestionID)
		}
		seenQuestion[q.QuestionID] = true
		if q.OrderIndex < 0 {
			res.add(apperr.CodeExamNegativeOrderIndex, "question %d has negative order index %d", q.QuestionID, q.OrderIndex)
		} else if seenOrder[q.OrderIndex] {
			res.add(apperr.CodeExamDuplicateOrderIndex, "order index %d is used more than once", q.OrderIndex)
		}
		seenOrder[q.OrderIndex] = true
		if q.Points <= 0 {
			res.add(apperr.CodeExamNonPositivePoints, "question %d has non-positive points %v", q.QuestionID, q.Points)
		}
	}

	if n := len(exam.Questions); n < MinQuestions {
		res.add(apperr.CodeExamTooFewQuestions, "exam has %d questions, at least %d required", n, MinQuestions)
	}
	if got, want := exam.TotalPoints(), exam.Blueprint.TotalPoints(); math.Abs(got-want) > pointsEpsilon {
		res.add(apperr.CodeExamPointsMismatch, "question points sum to %v, blueprint requires %v", got, want)
	}
	if got, want := len(exam.Questions), exam.Blueprint.TotalQuestions(); got != want {
		res.add(apperr.CodeExamCountMismatch, "exam has %d questions, blueprint requires %d", got, want)
	}

	res.OK = len(res.Violations) == 0
	return res
}

// ValidateMatrix checks the exam's questions against a topic × level matrix
// using catalog metadata. Questions without metadata count toward no cell.
func ValidateMatrix(matrix model.TopicMatrix, exam model.Exam, meta map[int64]model.QuestionMeta) ValidationResult {
	var res ValidationResult

	want := make(map[cellKey]int, len(matrix.Cells))
	for _, c := range matrix.Cells {
		want[newCellKey(c.Topic, c.Level)] += c.Quantity
	}
	have := make(map[cellKey]int)
	for _, q := range exam.Questions {
		if m, ok := meta[q.QuestionID]; ok {
			have[newCellKey(m.Topic, m.Level)]++
		}
	}

	keys := make([]cellKey, 0, len(want)+len(have))
	for k := range want {
		keys = append(keys, k)
	}
	for k := range have {
		if _, ok := want[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].topic != keys[j].topic {
			return keys[i].topic < keys[j].topic
		}
		return keys[i].level < keys[j].level
	})
	for _, k := range keys {
		if have[k] != want[k] {
			res.add(apperr.CodeExamMatrixMismatch, "topic %q at level %s has %d questions, matrix requires %d",
				k.topic, k.level, have[k], want[k])
		}
	}
	if got, want := len(exam.Questions), matrix.TotalQuestions(); got != want {
		res.add(apperr.CodeExamCountMismatch, "exam has %d questions, matrix requires %d", got, want)
	}

	res.OK = len(res.Violations) == 0
	return res
}

type cellKey struct {
	topic string
	level model.CognitiveLevel
}

func newCellKey(topic string, level model.CognitiveLevel) cellKey {
	return cellKey{strings.ToLower(strings.TrimSpace(topic)), level}
}

// CheckBlueprint rejects blueprints with negative counts, non-positive
// point values or no questions at all.
func CheckBlueprint(b model.Blueprint) error {
	tiers := []struct {
		name string
		tier model.Tier
	}{{"easy", b.Easy}, {"medium", b.Medium}, {"hard", b.Hard}}
	for _, t := range tiers {
		if t.tier.Count < 0 {
			return apperr.New(apperr.CodeExamInvalidBlueprint, t.name+" tier count must not be negative")
		}
		if t.tier.PointsPerQuestion <= 0 {
			return apperr.New(apperr.CodeExamInvalidBlueprint, t.name+" tier points per question must be positive")
		}
	}
	if b.TotalQuestions() == 0 {
		return apperr.New(apperr.CodeExamInvalidBlueprint, "blueprint requires at least one question")
	}
	return nil
}

// CheckMatrix rejects matrices with unknown levels, empty topics, negative
// quantities or repeated cells.
func CheckMatrix(m model.TopicMatrix) error {
	seen := make(map[cellKey]bool, len(m.Cells))
	for _, c := range m.Cells {
		if strings.TrimSpace(c.Topic) == "" {
			return apperr.New(apperr.CodeExamInvalidMatrix, "matrix cell topic is required")
		}
		if !c.Level.Valid() {
			return apperr.New(apperr.CodeExamInvalidMatrix, fmt.Sprintf("unknown cognitive level %q", c.Level))
		}
		if c.Quantity < 0 {
			return apperr.New(apperr.CodeExamInvalidMatrix, "matrix cell quantity must not be negative")
		}
		key := newCellKey(c.Topic, c.Level)
		if seen[key] {
			return apperr.New(apperr.CodeExamInvalidMatrix, fmt.Sprintf("duplicate matrix cell %s/%s", key.topic, key.level))
		}
		seen[key] = true
	}
	return nil
}

// NewExam builds a draft exam after checking its header fields.
func NewExam(title string, blueprint model.Blueprint, matrix *model.TopicMatrix, durationMinutes int, createdBy int64, now time.Time) (model.Exam, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Exam{}, apperr.New(apperr.CodeExamTitleEmpty, "exam title is required")
	}
	if durationMinutes <= 0 {
		return model.Exam{}, apperr.New(apperr.CodeExamInvalidDuration, "exam duration must be positive")
	}
	if err := CheckBlueprint(blueprint); err != nil {
		return model.Exam{}, err
	}
	if matrix != nil {
		if err := CheckMatrix(*matrix); err != nil {
			return model.Exam{}, err
		}
	}
	return model.Exam{
		Title:           title,
		Blueprint:       blueprint,
		Matrix:          matrix,
		DurationMinutes: durationMinutes,
		Version:         1,
		Status:          model.ExamDraft,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
