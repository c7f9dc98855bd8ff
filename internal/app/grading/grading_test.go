package grading

import (
	"testing"
	"time"

	"igress/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestCodingMarks(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     float64
	}{
		{"all accepted", []string{"Accepted", "Accepted"}, 10},
		{"one wrong answer", []string{"Accepted", "Wrong Answer"}, 0},
		{"compile error", []string{"Compilation Error"}, 0},
		{"no results", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodingMarks(10, tt.statuses))
		})
	}
}

func mcq(multiple bool, marks float64, correct ...bool) *model.McqQuestion {
	q := &model.McqQuestion{Question: model.Question{Marks: marks}, MultipleCorrect: multiple}
	for i, c := range correct {
		c := c
		q.Options = append(q.Options, model.McqOption{ID: string(rune('a' + i)), IsCorrect: &c})
	}
	return q
}

func TestMcqMarksMultipleCorrect(t *testing.T) {
	q := mcq(true, 6, true, true, true, false)

	tests := []struct {
		name     string
		selected []string
		want     float64
	}{
		{"two of three", []string{"a", "b"}, 6 * 2.0 / 3.0},
		{"all correct", []string{"a", "b", "c"}, 6},
		{"duplicates count once", []string{"a", "a", "a"}, 2},
		{"wrong option adds nothing", []string{"a", "d"}, 2},
		{"only wrong", []string{"d"}, 0},
		{"unknown id", []string{"zz"}, 0},
		{"nothing selected", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := McqMarks(q, tt.selected)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, q.Marks)
		})
	}
}

func TestMcqMarksSingleCorrect(t *testing.T) {
	q := mcq(false, 4, false, true, false)

	assert.Equal(t, 4.0, McqMarks(q, []string{"b"}))
	assert.Equal(t, 0.0, McqMarks(q, []string{"a"}))
	// only the first selection is considered
	assert.Equal(t, 0.0, McqMarks(q, []string{"a", "b"}))
	assert.Equal(t, 4.0, McqMarks(q, []string{"b", "a"}))
}

func TestMcqMarksWithoutCorrectOptions(t *testing.T) {
	q := mcq(true, 5, false, false)
	assert.Equal(t, 0.0, McqMarks(q, []string{"a"}))
}

func TestStudentTestStatus(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ct := &model.ClassroomTest{ScheduledAt: start, DurationInMinutes: 60}

	before := start.Add(-time.Minute)
	during := start.Add(30 * time.Minute)
	after := start.Add(2 * time.Hour)

	assert.Equal(t, model.TestUpcoming, StudentTestStatus(before, ct, false, false))
	assert.Equal(t, model.TestOngoing, StudentTestStatus(during, ct, true, false))
	assert.Equal(t, model.TestAttempted, StudentTestStatus(during, ct, true, true))
	assert.Equal(t, model.TestAttempted, StudentTestStatus(after, ct, true, false))
	assert.Equal(t, model.TestAttempted, StudentTestStatus(after, ct, false, true))
	assert.Equal(t, model.TestAbsent, StudentTestStatus(after, ct, false, false))

	// zone of the caller's clock does not matter
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, model.TestOngoing, StudentTestStatus(during.In(ist), ct, false, false))
}
