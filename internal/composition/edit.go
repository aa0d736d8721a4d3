package composition

import (
	"fmt"
	"sort"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// AddQuestion appends a question reference to the exam. It bumps UpdatedAt
// but not Version. Any edit returns a published exam to draft.
func AddQuestion(exam *model.Exam, questionID int64, orderIndex int, points float64, now time.Time) error {
	if orderIndex < 0 {
		return apperr.New(apperr.CodeExamNegativeOrderIndex, fmt.Sprintf("order index %d must not be negative", orderIndex))
	}
	if points <= 0 {
		return apperr.New(apperr.CodeExamNonPositivePoints, fmt.Sprintf("points %v must be positive", points))
	}
	for _, q := range exam.Questions {
		if q.QuestionID == questionID {
			return apperr.New(apperr.CodeExamDuplicateQuestion, fmt.Sprintf("question %d is already in the exam", questionID))
		}
		if q.OrderIndex == orderIndex {
			return apperr.New(apperr.CodeExamDuplicateOrderIndex, fmt.Sprintf("order index %d is already used", orderIndex))
		}
	}

	exam.Questions = append(exam.Questions, model.QuestionRef{
		QuestionID: questionID,
		OrderIndex: orderIndex,
		Points:     points,
	})
	sortByOrder(exam.Questions)
	touch(exam, now)
	return nil
}

// ReplaceQuestion swaps oldID for newID at the same order index and bumps
// the exam's Version.
func ReplaceQuestion(exam *model.Exam, oldID, newID int64, newPoints float64, now time.Time) error {
	idx := indexOf(exam.Questions, oldID)
	if idx < 0 {
		return apperr.New(apperr.CodeQuestionNotFound, fmt.Sprintf("question %d is not in the exam", oldID))
	}
	if newPoints <= 0 {
		return apperr.New(apperr.CodeExamNonPositivePoints, fmt.Sprintf("points %v must be positive", newPoints))
	}
	if newID != oldID && indexOf(exam.Questions, newID) >= 0 {
		return apperr.New(apperr.CodeExamDuplicateQuestion, fmt.Sprintf("question %d is already in the exam", newID))
	}

	exam.Questions[idx] = model.QuestionRef{
		QuestionID: newID,
		OrderIndex: exam.Questions[idx].OrderIndex,
		Points:     newPoints,
	}
	exam.Version++
	touch(exam, now)
	return nil
}

// RemoveQuestion drops a question reference from the exam.
func RemoveQuestion(exam *model.Exam, questionID int64, now time.Time) error {
	idx := indexOf(exam.Questions, questionID)
	if idx < 0 {
		return apperr.New(apperr.CodeQuestionNotFound, fmt.Sprintf("question %d is not in the exam", questionID))
	}
	exam.Questions = append(exam.Questions[:idx], exam.Questions[idx+1:]...)
	touch(exam, now)
	return nil
}

// Publish marks the exam published if it passes validation.
func Publish(exam *model.Exam, now time.Time) (ValidationResult, error) {
	res := Validate(*exam)
	if err := res.Err(); err != nil {
		return res, err
	}
	exam.Status = model.ExamPublished
	exam.UpdatedAt = now
	return res, nil
}

func touch(exam *model.Exam, now time.Time) {
	exam.UpdatedAt = now
	exam.Status = model.ExamDraft
}

func indexOf(refs []model.QuestionRef, questionID int64) int {
	for i, q := range refs {
		if q.QuestionID == questionID {
			return i
		}
	}
	return -1
}

func sortByOrder(refs []model.QuestionRef) {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].OrderIndex < refs[j].OrderIndex })
}
