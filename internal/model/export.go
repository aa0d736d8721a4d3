package model

import "time"

// SessionExport is the top-level JSON structure for session result export.
type SessionExport struct {
	SessionID   int64           `json:"session_id"`
	ExamID      int64           `json:"exam_id"`
	ExamTitle   string          `json:"exam_title"`
	ClassID     int64           `json:"class_id"`
	TotalPoints float64         `json:"total_points"`
	Results     []StudentResult `json:"results"`
}

// StudentResult holds one attempt's data for export.
type StudentResult struct {
	Username        string         `json:"username"`
	DisplayName     string         `json:"display_name"`
	AttemptNumber   int            `json:"attempt_number"`
	Status          AttemptStatus  `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	Score           float64        `json:"score"`
	TotalPoints     float64        `json:"total_points"`
	ScorePercentage float64        `json:"score_percentage"`
	Answers         []GradedAnswer `json:"answers"`
}
