package service

import (
	"context"
	"testing"
	"time"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentTestTimeline(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sched := func(id string, startOffset time.Duration, submitted bool) repository.StudentSchedule {
		return repository.StudentSchedule{
			ClassroomTest: model.ClassroomTest{
				ID: id, ClassroomID: "c1", ScheduledAt: now.Add(startOffset), DurationInMinutes: 60,
			},
			Submitted: submitted,
		}
	}
	tests := newFakeTestRepo()
	tests.student = []repository.StudentSchedule{
		sched("future", time.Hour, false),
		sched("open", -30*time.Minute, false),
		sched("done", -30*time.Minute, true),
		sched("missed", -3*time.Hour, false),
	}
	classrooms := &fakeClassroomRepo{members: map[string]bool{"c1/s1": true}}
	svc := NewStudentService(classrooms, tests)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	ongoing, err := svc.OngoingTests(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, "open", ongoing[0].ID)

	upcoming, err := svc.UpcomingTests(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "future", upcoming[0].ID)

	all, err := svc.ClassroomTests(ctx, "s1", "c1")
	require.NoError(t, err)
	statuses := map[string]model.TestStatus{}
	for _, st := range all {
		statuses[st.ID] = st.Status
	}
	assert.Equal(t, model.TestAttempted, statuses["done"])
	assert.Equal(t, model.TestAbsent, statuses["missed"])

	_, err = svc.ClassroomTests(ctx, "s2", "c1")
	require.ErrorIs(t, err, common.ErrNotFound)
}
