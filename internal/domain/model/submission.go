package model

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

type Submission struct {
	ID              string    `json:"submission_id"`
	StudentID       string    `json:"student_id"`
	QuestionID      string    `json:"question_id"`
	ClassroomTestID string    `json:"classroom_test_id"`
	LanguageID      int       `json:"language_id"`
	SourceCode      string    `json:"source_code"`
	Tokens          []string  `json:"-"`
	MarksAwarded    *float64  `json:"marks_awarded"`
	CreatedAt       time.Time `json:"created_at"`
}

// SubmissionToken is one row of the token to submission index.
type SubmissionToken struct {
	Token        string
	SubmissionID string
	Position     int
}

type SubmissionResult struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	Time         string `json:"time"`
	Memory       int    `json:"memory"`
	Token        string `json:"j_token"`
}

// PendingSubmission is an ungraded submission as loaded for finalize.
type PendingSubmission struct {
	ID            string
	QuestionID    string
	QuestionMarks float64
	Tokens        []string
}

type McqAnswer struct {
	QuestionID string   `json:"question_id"`
	Answer     []string `json:"answer"`
}

// EncodeTokens packs tokens into the opaque blob stored on the submission row.
func EncodeTokens(tokens []string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(tokens, ",")))
}

func DecodeTokens(blob string) ([]string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode token blob: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return strings.Split(string(raw), ","), nil
}
