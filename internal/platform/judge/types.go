package judge

// Item is one program run: the same source may appear in many items with different stdin.
type Item struct {
	LanguageID     int
	SourceCode     string
	Stdin          string
	ExpectedOutput string
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusIDAccepted = 3

	// StatusAccepted is the description the grader compares against.
	StatusAccepted = "Accepted"
)

// IsFinished reports whether the judge has produced a verdict.
func (s Status) IsFinished() bool {
	return s.ID >= StatusIDAccepted
}

type Result struct {
	Token         string `json:"token"`
	Status        Status `json:"status"`
	Time          string `json:"time,omitempty"`
	Memory        int    `json:"memory,omitempty"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	CompileOutput string `json:"compile_output,omitempty"`
	Message       string `json:"message,omitempty"`
	SourceCode    string `json:"source_code,omitempty"`
	LanguageID    int    `json:"language_id,omitempty"`
}

// DefaultFields is requested when the caller passes no field list.
var DefaultFields = []string{"token", "status", "time", "memory", "stdout", "stderr", "compile_output", "message"}

type submissionPayload struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type submitRequest struct {
	Submissions []submissionPayload `json:"submissions"`
}

type tokenEntry struct {
	Token string `json:"token"`
}

// wireResult mirrors Result but tolerates nulls the judge sends for unfinished runs.
type wireResult struct {
	Token         string  `json:"token"`
	Status        *Status `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	SourceCode    *string `json:"source_code"`
	LanguageID    *int    `json:"language_id"`
}

type fetchResponse struct {
	Submissions []*wireResult `json:"submissions"`
}
