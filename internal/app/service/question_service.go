package service

import (
	"context"
	"database/sql"
	"strings"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/database"
	"igress/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type QuestionService struct {
	questionRepo repository.QuestionRepository
	testRepo     repository.TestRepository
	tx           database.Transactor
}

func NewQuestionService(questionRepo repository.QuestionRepository, testRepo repository.TestRepository, tx database.Transactor) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, testRepo: testRepo, tx: tx}
}

type AddCodeQuestionRequest struct {
	TestID           string           `json:"test_id"`
	Question         string           `json:"question"`
	QuestionTitle    string           `json:"question_title"`
	SolutionCode     string           `json:"solution_code"`
	AllowedLanguages []int            `json:"allowed_languages"`
	PublicTestCases  []model.TestCase `json:"public_test_case"`
	PrivateTestCases []model.TestCase `json:"private_test_case"`
	Marks            float64          `json:"marks"`
}

type McqOptionInput struct {
	Value   string `json:"value"`
	Correct bool   `json:"correct"`
}

type AddMcqQuestionRequest struct {
	TestID          string           `json:"test_id"`
	Question        string           `json:"question"`
	QuestionTitle   string           `json:"question_title"`
	MultipleCorrect bool             `json:"multiple_correct"`
	QuestionType    *int             `json:"question_type"` // 1 means multiple correct
	Options         []McqOptionInput `json:"options"`
	Marks           float64          `json:"marks"`
}

type AddQuestionResponse struct {
	Message    string `json:"message"`
	QuestionID string `json:"question_id"`
}

func validateBase(testID, prompt string, marks float64) error {
	if testID == "" || strings.TrimSpace(prompt) == "" {
		return common.Validationf("Test ID and question are required")
	}
	if marks < 0 {
		return common.Validationf("Marks must not be negative")
	}
	return nil
}

func (s *QuestionService) AddCode(ctx context.Context, req AddCodeQuestionRequest) (*AddQuestionResponse, error) {
	if err := validateBase(req.TestID, req.Question, req.Marks); err != nil {
		return nil, err
	}
	if len(req.PublicTestCases) == 0 && len(req.PrivateTestCases) == 0 {
		return nil, common.Validationf("At least one test case is required")
	}
	q := &model.CodeQuestion{
		Question: model.Question{
			ID:     uuid.NewString(),
			TestID: req.TestID,
			Prompt: req.Question,
			Title:  req.QuestionTitle,
			Marks:  req.Marks,
		},
		SolutionCode:     req.SolutionCode,
		AllowedLanguages: req.AllowedLanguages,
		PublicTestCases:  req.PublicTestCases,
		PrivateTestCases: req.PrivateTestCases,
	}
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.questionRepo.CreateCodeQuestion(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("code question added", zap.String("question_id", q.ID), zap.String("test_id", q.TestID))
	return &AddQuestionResponse{Message: "Code question added successfully", QuestionID: q.ID}, nil
}

func (s *QuestionService) AddMcq(ctx context.Context, req AddMcqQuestionRequest) (*AddQuestionResponse, error) {
	if err := validateBase(req.TestID, req.Question, req.Marks); err != nil {
		return nil, err
	}
	if len(req.Options) < 2 {
		return nil, common.Validationf("At least two options are required")
	}
	multiple := req.MultipleCorrect || (req.QuestionType != nil && *req.QuestionType == 1)

	q := &model.McqQuestion{
		Question: model.Question{
			ID:     uuid.NewString(),
			TestID: req.TestID,
			Prompt: req.Question,
			Title:  req.QuestionTitle,
			Marks:  req.Marks,
		},
		MultipleCorrect: multiple,
		Options:         make([]model.McqOption, len(req.Options)),
	}
	correct := 0
	for i, o := range req.Options {
		if strings.TrimSpace(o.Value) == "" {
			return nil, common.Validationf("Option %d is empty", i+1)
		}
		isCorrect := o.Correct
		if isCorrect {
			correct++
		}
		q.Options[i] = model.McqOption{Text: o.Value, IsCorrect: &isCorrect}
	}
	if correct == 0 {
		return nil, common.Validationf("At least one option must be correct")
	}
	if !multiple && correct > 1 {
		return nil, common.Validationf("Single correct question has %d correct options", correct)
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.questionRepo.CreateMcqQuestion(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("mcq question added", zap.String("question_id", q.ID), zap.String("test_id", q.TestID))
	return &AddQuestionResponse{Message: "MCQ question added successfully", QuestionID: q.ID}, nil
}

func (s *QuestionService) ListByTest(ctx context.Context, testID string) ([]model.Question, error) {
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, common.NotFoundf("No questions found for the specified test.")
	}
	return questions, nil
}

// Meta returns the question list with the window of classroomTestID when given.
func (s *QuestionService) Meta(ctx context.Context, testID, classroomTestID string) (*model.QuestionMeta, error) {
	test, err := s.testRepo.FindTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	meta := &model.QuestionMeta{TestID: testID, Title: test.Title, Questions: questions}

	if classroomTestID != "" {
		ct, err := s.testRepo.FindScheduleByID(ctx, classroomTestID)
		if err != nil {
			return nil, err
		}
		if ct.TestID != testID {
			return nil, common.Validationf("Scheduled test does not belong to this test")
		}
		start, end := ct.ScheduledAt, ct.EndsAt()
		meta.StartsAt, meta.EndsAt = &start, &end
	}
	return meta, nil
}

// Detail returns the full question for staff and a redacted one for everybody else.
func (s *QuestionService) Detail(ctx context.Context, testID, questionID string, fullView bool) (model.QuestionVariant, error) {
	v, err := s.questionRepo.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if v.Base().TestID != testID {
		return nil, common.NotFoundf("Question not found")
	}
	if fullView {
		return v, nil
	}
	return v.StudentView(), nil
}
