package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType is the closed set of question kinds the scoring engine knows.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionMultipleAnswer QuestionType = "multiple_answer"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionEssay          QuestionType = "essay"
	QuestionFillInBlank    QuestionType = "fill_in_the_blank"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionMultipleAnswer, QuestionTrueFalse, QuestionEssay, QuestionFillInBlank:
		return true
	}
	return false
}

// Objective reports whether questions of this type are scored automatically.
func (t QuestionType) Objective() bool {
	return t != QuestionEssay
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// CognitiveLevel is the Bloom-style level used by topic matrices.
type CognitiveLevel string

const (
	LevelRemember   CognitiveLevel = "remember"
	LevelUnderstand CognitiveLevel = "understand"
	LevelApply      CognitiveLevel = "apply"
	LevelAnalyze    CognitiveLevel = "analyze"
)

// Valid reports whether l is one of the four supported levels.
func (l CognitiveLevel) Valid() bool {
	switch l {
	case LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze:
		return true
	}
	return false
}

// AnswerOption is one selectable answer of a question.
type AnswerOption struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a question bank entry.
type Question struct {
	ID         int64          `json:"id"`
	Text       string         `json:"text"`
	Type       QuestionType   `json:"type"`
	Difficulty Difficulty     `json:"difficulty"`
	Topic      string         `json:"topic"`
	Level      CognitiveLevel `json:"level"`
	Answers    []AnswerOption `json:"answers"`
}

// QuestionSpec is the read-only view of a question used for grading.
// Points are the points the question carries in a specific exam.
type QuestionSpec struct {
	ID      int64          `json:"id"`
	Text    string         `json:"text"`
	Points  float64        `json:"points"`
	Type    QuestionType   `json:"type"`
	Answers []AnswerOption `json:"answers"`
}

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Text       string         `json:"text"`
	Type       QuestionType   `json:"type"`
	Difficulty Difficulty     `json:"difficulty"`
	Topic      string         `json:"topic"`
	Level      CognitiveLevel `json:"level"`
	Answers    []AnswerOption `json:"answers"`
}

// ExamStatus tracks whether an exam has passed validation and been published.
type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
)

// QuestionRef places a bank question into an exam with its own point value.
type QuestionRef struct {
	QuestionID int64   `json:"question_id"`
	OrderIndex int     `json:"order_index"`
	Points     float64 `json:"points"`
}

// Exam is a composed exam: an ordered set of scored questions checked
// against its blueprint before publication.
type Exam struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Blueprint       Blueprint     `json:"blueprint"`
	Matrix          *TopicMatrix  `json:"matrix,omitempty"`
	DurationMinutes int           `json:"duration_minutes"`
	Questions       []QuestionRef `json:"questions"`
	Version         int           `json:"version"`
	Status          ExamStatus    `json:"status"`
	CreatedBy       int64         `json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TotalPoints returns the sum of the exam's question points.
func (e Exam) TotalPoints() float64 {
	var sum float64
	for _, q := range e.Questions {
		sum += q.Points
	}
	return sum
}

// Window is the half-open scheduling interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RetryPolicy controls how many attempts a student may make.
type RetryPolicy struct {
	IsRetryable bool `json:"is_retryable"`
	RetryTimes  int  `json:"retry_times"`
}

// Session attaches an exam to a class with a schedule and attempt rules.
type Session struct {
	ID                  int64       `json:"id"`
	ExamID              int64       `json:"exam_id"`
	ClassID             int64       `json:"class_id"`
	Window              Window      `json:"window"`
	Retry               RetryPolicy `json:"retry"`
	ShuffleQuestions    bool        `json:"shuffle_questions"`
	ShuffleAnswers      bool        `json:"shuffle_answers"`
	AllowPartialScoring bool        `json:"allow_partial_scoring"`
	Active              bool        `json:"active"`
	CreatedAt           time.Time   `json:"created_at"`
}

// AttemptStatus represents the state of a student's attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

// CanTransitionTo reports whether moving from s to next is allowed. An
// attempt with no essay questions goes straight from in progress to graded.
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case AttemptInProgress:
		return next == AttemptSubmitted || next == AttemptGraded || next == AttemptTimedOut
	case AttemptSubmitted:
		return next == AttemptGraded
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptGraded || s == AttemptTimedOut
}

// GradedAnswer is the scored result for one question of an attempt.
type GradedAnswer struct {
	QuestionID        int64    `json:"question_id"`
	SelectedAnswerIDs []string `json:"selected_answer_ids"`
	Score             float64  `json:"score"`
	IsCorrect         bool     `json:"is_correct"`
	IsPartial         bool     `json:"is_partial"`
}

// Attempt is one student's pass at a session.
type Attempt struct {
	ID            int64          `json:"id"`
	SessionID     int64          `json:"session_id"`
	StudentID     int64          `json:"student_id"`
	AttemptNumber int            `json:"attempt_number"`
	Status        AttemptStatus  `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	Score         float64        `json:"score"`
	TotalPoints   float64        `json:"total_points"`
	Answers       []GradedAnswer `json:"answers,omitempty"`
}

// SubmittedAnswer is a student's selection for one question.
// For fill-in-the-blank questions the first entry holds the typed text.
type SubmittedAnswer struct {
	QuestionID int64    `json:"question_id"`
	Selected   []string `json:"selected"`
}

// GradedAttemptSummary is returned after a successful submission.
type GradedAttemptSummary struct {
	AttemptID       int64          `json:"attempt_id"`
	Status          AttemptStatus  `json:"status"`
	Answers         []GradedAnswer `json:"answers"`
	Score           float64        `json:"score"`
	TotalPoints     float64        `json:"total_points"`
	ScorePercentage float64        `json:"score_percentage"`
}
