package model

import "time"

type QuestionType string

const (
	QuestionTypeCode QuestionType = "code"
	QuestionTypeMCQ  QuestionType = "mcq"
)

type Question struct {
	ID        string       `json:"question_id"`
	TestID    string       `json:"test_id"`
	Type      QuestionType `json:"question_type"`
	Prompt    string       `json:"question"`
	Title     string       `json:"question_title"`
	Marks     float64      `json:"marks"`
	CreatedAt time.Time    `json:"created_at"`
}

// QuestionVariant is implemented by CodeQuestion and McqQuestion only.
type QuestionVariant interface {
	Base() *Question
	// StudentView strips fields a test taker must not see.
	StudentView() QuestionVariant
}

type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type CodeQuestion struct {
	Question
	SolutionCode     string     `json:"solution_code,omitempty"`
	AllowedLanguages []int      `json:"allowed_languages"`
	PublicTestCases  []TestCase `json:"public_test_case"`
	PrivateTestCases []TestCase `json:"private_test_case,omitempty"`
}

func (q *CodeQuestion) Base() *Question { return &q.Question }

func (q *CodeQuestion) StudentView() QuestionVariant {
	view := *q
	view.SolutionCode = ""
	view.PrivateTestCases = nil
	return &view
}

// GradingCases are the cases a submission runs against. Private cases win.
func (q *CodeQuestion) GradingCases() []TestCase {
	if len(q.PrivateTestCases) > 0 {
		return q.PrivateTestCases
	}
	return q.PublicTestCases
}

// AllowsLanguage reports whether languageID may be used. An empty list allows all.
func (q *CodeQuestion) AllowsLanguage(languageID int) bool {
	if len(q.AllowedLanguages) == 0 {
		return true
	}
	for _, id := range q.AllowedLanguages {
		if id == languageID {
			return true
		}
	}
	return false
}

type McqOption struct {
	ID        string `json:"option_id"`
	Text      string `json:"option_text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	SortOrder int    `json:"-"`
}

type McqQuestion struct {
	Question
	MultipleCorrect bool        `json:"multiple_correct"`
	Options         []McqOption `json:"options"`
}

func (q *McqQuestion) Base() *Question { return &q.Question }

func (q *McqQuestion) StudentView() QuestionVariant {
	view := *q
	view.Options = make([]McqOption, len(q.Options))
	for i, o := range q.Options {
		o.IsCorrect = nil
		view.Options[i] = o
	}
	return &view
}

// CorrectOptionIDs returns the ids of options flagged correct.
func (q *McqQuestion) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if o.IsCorrect != nil && *o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// QuestionMeta is the header a test taker sees before opening questions.
type QuestionMeta struct {
	TestID    string     `json:"test_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	StartsAt  *time.Time `json:"start_time,omitempty"`
	EndsAt    *time.Time `json:"end_time,omitempty"`
}
