package service

import (
	"context"
	"testing"

	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionDetailStudentView(t *testing.T) {
	repo := &fakeQuestionRepo{questions: map[string]model.QuestionVariant{
		"q1": &model.CodeQuestion{
			Question:         model.Question{ID: "q1", TestID: "t1"},
			SolutionCode:     "secret",
			PrivateTestCases: []model.TestCase{{Input: "1", Output: "1"}},
		},
	}}
	svc := NewQuestionService(repo, newFakeTestRepo(), &fakeTx{})
	ctx := context.Background()

	v, err := svc.Detail(ctx, "t1", "q1", false)
	require.NoError(t, err)
	cq := v.(*model.CodeQuestion)
	assert.Empty(t, cq.SolutionCode)
	assert.Empty(t, cq.PrivateTestCases)

	v, err = svc.Detail(ctx, "t1", "q1", true)
	require.NoError(t, err)
	assert.Equal(t, "secret", v.(*model.CodeQuestion).SolutionCode)

	_, err = svc.Detail(ctx, "t2", "q1", true)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestQuestionListEmptyIsNotFound(t *testing.T) {
	svc := NewQuestionService(&fakeQuestionRepo{questions: map[string]model.QuestionVariant{}}, newFakeTestRepo(), &fakeTx{})
	_, err := svc.ListByTest(context.Background(), "t1")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "No questions found for the specified test.", common.PublicMessage(err))
}

func TestAddMcqValidation(t *testing.T) {
	svc := NewQuestionService(&fakeQuestionRepo{}, newFakeTestRepo(), &fakeTx{})
	single := 0
	_, err := svc.AddMcq(context.Background(), AddMcqQuestionRequest{
		TestID:       "t1",
		Question:     "pick",
		QuestionType: &single,
		Options:      []McqOptionInput{{Value: "a", Correct: true}, {Value: "b", Correct: true}},
	})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.AddMcq(context.Background(), AddMcqQuestionRequest{
		TestID:   "t1",
		Question: "pick",
		Options:  []McqOptionInput{{Value: "a"}, {Value: "b"}},
	})
	require.ErrorIs(t, err, common.ErrValidation)
}
