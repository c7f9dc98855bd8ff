// Package grading holds the mark rules applied when a student finalizes a test.
package grading

import (
	"time"

	"igress/internal/domain/model"
	"igress/internal/platform/judge"

	mapset "github.com/deckarep/golang-set/v2"
)

// CodingMarks awards full marks only when every test case was accepted.
// A submission without results scores zero.
func CodingMarks(questionMarks float64, statuses []string) float64 {
	if len(statuses) == 0 {
		return 0
	}
	for _, s := range statuses {
		if s != judge.StatusAccepted {
			return 0
		}
	}
	return questionMarks
}

// McqMarks scores one answer. Multiple-correct questions earn the share of correct
// options selected; single-correct questions are decided by the first selection.
func McqMarks(q *model.McqQuestion, selected []string) float64 {
	if len(selected) == 0 {
		return 0
	}
	correct := mapset.NewSet(q.CorrectOptionIDs()...)
	if correct.Cardinality() == 0 {
		return 0
	}

	if !q.MultipleCorrect {
		if correct.Contains(selected[0]) {
			return q.Marks
		}
		return 0
	}

	hits := mapset.NewSet(selected...).Intersect(correct).Cardinality()
	marks := float64(hits) / float64(correct.Cardinality()) * q.Marks
	return clamp(marks, 0, q.Marks)
}

// StudentTestStatus places a scheduled test on a student's timeline.
func StudentTestStatus(now time.Time, ct *model.ClassroomTest, present, submitted bool) model.TestStatus {
	now = now.UTC()
	switch {
	case now.Before(ct.ScheduledAt.UTC()):
		return model.TestUpcoming
	case submitted:
		return model.TestAttempted
	case now.Before(ct.EndsAt().UTC()):
		return model.TestOngoing
	case present:
		return model.TestAttempted
	default:
		return model.TestAbsent
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
