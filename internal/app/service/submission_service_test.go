package service

import (
	"context"
	"testing"
	"time"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/platform/judge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradingFixture struct {
	svc       *SubmissionService
	judge     *fakeJudge
	subs      *fakeSubmissionRepo
	questions *fakeQuestionRepo
	locker    *fakeLocker
	tx        *fakeTx
}

func boolPtr(b bool) *bool { return &b }

func newGradingFixture(t *testing.T) *gradingFixture {
	t.Helper()
	questions := &fakeQuestionRepo{questions: map[string]model.QuestionVariant{
		"q-code": &model.CodeQuestion{
			Question:         model.Question{ID: "q-code", TestID: "t1", Type: model.QuestionTypeCode, Marks: 10},
			AllowedLanguages: []int{71},
			PublicTestCases:  []model.TestCase{{Input: "pub", Output: "pub"}},
			PrivateTestCases: []model.TestCase{{Input: "1", Output: "2"}, {Input: "2", Output: "4"}},
		},
		"q-mcq": &model.McqQuestion{
			Question:        model.Question{ID: "q-mcq", TestID: "t1", Type: model.QuestionTypeMCQ, Marks: 6},
			MultipleCorrect: true,
			Options: []model.McqOption{
				{ID: "o1", IsCorrect: boolPtr(true)},
				{ID: "o2", IsCorrect: boolPtr(true)},
				{ID: "o3", IsCorrect: boolPtr(true)},
				{ID: "o4", IsCorrect: boolPtr(false)},
			},
		},
		"q-other": &model.CodeQuestion{
			Question:        model.Question{ID: "q-other", TestID: "t2", Marks: 5},
			PublicTestCases: []model.TestCase{{Input: "x", Output: "y"}},
		},
	}}
	tests := newFakeTestRepo()
	tests.schedules["ct1"] = &model.ClassroomTest{
		ID: "ct1", ClassroomID: "c1", TestID: "t1",
		ScheduledAt: time.Now().Add(-10 * time.Minute), DurationInMinutes: 60,
	}
	classrooms := &fakeClassroomRepo{members: map[string]bool{"c1/s1": true}}
	subs := newFakeSubmissionRepo(questions)
	j := newFakeJudge()
	locker := newFakeLocker()
	tx := &fakeTx{}

	svc := NewSubmissionService(subs, questions, tests, classrooms, j, tx, locker, time.Minute)
	return &gradingFixture{svc: svc, judge: j, subs: subs, questions: questions, locker: locker, tx: tx}
}

func (f *gradingFixture) submit(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), "s1", SubmitRequest{
		QuestionID:      "q-code",
		ClassroomTestID: "ct1",
		LanguageID:      71,
		SourceCode:      "print(int(input())*2)",
		TestCases:       []model.TestCase{{Input: "forged", Output: "forged"}},
	})
	require.NoError(t, err)
	return resp.SubmissionID
}

func TestSubmitUsesPrivateCases(t *testing.T) {
	f := newGradingFixture(t)
	id := f.submit(t)

	require.Len(t, f.judge.submitted, 1)
	items := f.judge.submitted[0]
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Stdin)
	assert.Equal(t, "4", items[1].ExpectedOutput)

	sub := f.subs.subs[id]
	assert.Len(t, sub.Tokens, 2)
	for _, tok := range sub.Tokens {
		assert.Equal(t, id, f.subs.tokens[tok])
	}
}

func TestSubmitRejections(t *testing.T) {
	f := newGradingFixture(t)
	ctx := context.Background()
	base := SubmitRequest{QuestionID: "q-code", ClassroomTestID: "ct1", LanguageID: 71, SourceCode: "x"}

	cases := []struct {
		name    string
		student string
		mutate  func(r *SubmitRequest)
		want    error
	}{
		{"missing classroom test", "s1", func(r *SubmitRequest) { r.ClassroomTestID = "" }, common.ErrValidation},
		{"language not allowed", "s1", func(r *SubmitRequest) { r.LanguageID = 50 }, common.ErrValidation},
		{"question of another test", "s1", func(r *SubmitRequest) { r.QuestionID = "q-other" }, common.ErrValidation},
		{"mcq question", "s1", func(r *SubmitRequest) { r.QuestionID = "q-mcq" }, common.ErrValidation},
		{"non member", "s2", func(r *SubmitRequest) {}, common.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := f.svc.Submit(ctx, tc.student, req)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.judge.submitted)
}

func TestRunRequiresCases(t *testing.T) {
	f := newGradingFixture(t)
	_, err := f.svc.Run(context.Background(), SubmitRequest{LanguageID: 71, SourceCode: "x"})
	require.ErrorIs(t, err, common.ErrValidation)

	resp, err := f.svc.Run(context.Background(), SubmitRequest{
		LanguageID: 71, SourceCode: "x", TestCases: []model.TestCase{{Input: "a"}, {Input: "b"}, {Input: "c"}},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Tokens, 3)
	assert.Empty(t, f.subs.subs)
}

func TestFinalizeAllAcceptedAwardsFullMarks(t *testing.T) {
	f := newGradingFixture(t)
	id := f.submit(t)
	for _, tok := range f.subs.subs[id].Tokens {
		f.judge.verdict(tok, judge.StatusAccepted)
	}

	resp, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Graded)
	assert.InDelta(t, 10, resp.CodeMarks, 1e-9)
	assert.InDelta(t, 10, f.subs.marks[id], 1e-9)
	assert.Equal(t, 2, f.subs.resultCount(id))
	assert.True(t, f.subs.submitted["ct1/s1"])
}

func TestFinalizeWrongAnswerScoresZero(t *testing.T) {
	f := newGradingFixture(t)
	id := f.submit(t)
	tokens := f.subs.subs[id].Tokens
	f.judge.verdict(tokens[0], judge.StatusAccepted)
	f.judge.verdict(tokens[1], "Wrong Answer")

	_, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.NoError(t, err)
	assert.Zero(t, f.subs.marks[id])
	assert.Equal(t, 2, f.subs.resultCount(id))
}

func TestFinalizeMultipleCorrectMcqIsProportional(t *testing.T) {
	f := newGradingFixture(t)

	resp, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{
		ClassroomTestID: "ct1",
		McqAnswers:      []model.McqAnswer{{QuestionID: "q-mcq", Answer: []string{"o1", "o3"}}},
	})
	require.NoError(t, err)

	row := f.subs.mcq["s1/ct1/q-mcq"]
	assert.InDelta(t, 4, row.marks, 1e-9)
	assert.Equal(t, []string{"o1", "o3"}, row.optionIDs)
	assert.InDelta(t, 4, resp.McqMarks, 1e-9)
	assert.Zero(t, f.judge.fetches)
}

func TestFinalizePendingVerdictWritesNothing(t *testing.T) {
	f := newGradingFixture(t)
	id := f.submit(t)
	f.judge.verdict(f.subs.subs[id].Tokens[0], judge.StatusAccepted)

	_, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.Empty(t, f.subs.results)
	assert.Nil(t, f.subs.subs[id].MarksAwarded)
	assert.False(t, f.subs.submitted["ct1/s1"])
	assert.Empty(t, f.locker.held)
}

func TestFinalizeRejectsWhileLocked(t *testing.T) {
	f := newGradingFixture(t)
	release, err := f.locker.Acquire(context.Background(), "finalize:ct1:s1", time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.ErrorIs(t, err, common.ErrLockNotAcquired)
	assert.Equal(t, 409, common.HTTPStatusFromError(err))
}

func TestFinalizeTwiceIsRejected(t *testing.T) {
	f := newGradingFixture(t)
	_, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.NoError(t, err)

	_, err = f.svc.Finalize(context.Background(), "s1", FinalizeRequest{ClassroomTestID: "ct1"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestSubmissionDetailHidesOtherStudents(t *testing.T) {
	f := newGradingFixture(t)
	id := f.submit(t)

	_, err := f.svc.GetSubmissionDetail(context.Background(), "s2", []string{model.RoleStudent}, id)
	require.ErrorIs(t, err, common.ErrNotFound)

	resp, err := f.svc.GetSubmissionDetail(context.Background(), "staff-1", []string{model.RoleStaff}, id)
	require.NoError(t, err)
	assert.Len(t, resp.Submissions, 2)
	assert.Equal(t, 71, resp.LanguageID)
}

func TestFinalizeMcqOptionChecks(t *testing.T) {
	tests := []struct {
		name   string
		answer []string
	}{
		{"option of another question", []string{"o1", "not-an-option-of-q-mcq"}},
		{"malformed id", []string{"abc"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newGradingFixture(t)
			_, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{
				ClassroomTestID: "ct1",
				McqAnswers:      []model.McqAnswer{{QuestionID: "q-mcq", Answer: tc.answer}},
			})
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, f.subs.mcq)
			assert.False(t, f.subs.submitted["ct1/s1"])
		})
	}
}

func TestFinalizeMcqRepeatedOptionCountsOnce(t *testing.T) {
	f := newGradingFixture(t)

	resp, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{
		ClassroomTestID: "ct1",
		McqAnswers:      []model.McqAnswer{{QuestionID: "q-mcq", Answer: []string{"o1", "o3", "o1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o3"}, f.subs.mcq["s1/ct1/q-mcq"].optionIDs)
	assert.InDelta(t, 4, resp.McqMarks, 1e-9)
}

func TestFinalizeRejectsRepeatedMcqQuestion(t *testing.T) {
	f := newGradingFixture(t)
	full := []string{"o1", "o2", "o3"}

	_, err := f.svc.Finalize(context.Background(), "s1", FinalizeRequest{
		ClassroomTestID: "ct1",
		McqAnswers: []model.McqAnswer{
			{QuestionID: "q-mcq", Answer: full},
			{QuestionID: "q-mcq", Answer: full},
		},
	})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.False(t, f.subs.submitted["ct1/s1"])
}
