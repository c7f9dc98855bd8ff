package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"igress/internal/app/grading"
	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/cache"
	"igress/internal/platform/database"
	"igress/internal/platform/judge"
	"igress/internal/platform/logger"
	"igress/internal/platform/metrics"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Judge is the part of the execution client the grading workflow needs.
type Judge interface {
	SubmitBatch(ctx context.Context, items []judge.Item) ([]string, error)
	FetchBatch(ctx context.Context, tokens []string, fields []string) ([]judge.Result, error)
}

var detailFields = []string{"time", "memory", "status"}

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	questionRepo   repository.QuestionRepository
	testRepo       repository.TestRepository
	classroomRepo  repository.ClassroomRepository
	judge          Judge
	tx             database.Transactor
	locker         cache.Locker
	lockTTL        time.Duration
	now            func() time.Time
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	questionRepo repository.QuestionRepository,
	testRepo repository.TestRepository,
	classroomRepo repository.ClassroomRepository,
	j Judge,
	tx database.Transactor,
	locker cache.Locker,
	lockTTL time.Duration,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		questionRepo:   questionRepo,
		testRepo:       testRepo,
		classroomRepo:  classroomRepo,
		judge:          j,
		tx:             tx,
		locker:         locker,
		lockTTL:        lockTTL,
		now:            time.Now,
	}
}

type SubmitRequest struct {
	QuestionID      string           `json:"question_id"`
	ClassroomTestID string           `json:"classroom_test_id"`
	LanguageID      int              `json:"language_id"`
	SourceCode      string           `json:"source_code"`
	TestCases       []model.TestCase `json:"test_case"`
}

type RunResponse struct {
	Tokens []string `json:"tokens"`
}

type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
}

type ResultsResponse struct {
	Submissions []judge.Result `json:"submissions"`
}

type SubmissionListResponse struct {
	Submissions []model.Submission `json:"submissions"`
}

type SubmissionDetailResponse struct {
	Submissions []judge.Result `json:"submissions"`
	CreatedAt   time.Time      `json:"created_at"`
	SourceCode  string         `json:"source_code"`
	LanguageID  int            `json:"language_id"`
}

type FinalizeRequest struct {
	ClassroomTestID string            `json:"-"`
	McqAnswers      []model.McqAnswer `json:"mcqAnswers"`
}

type FinalizeResponse struct {
	Message   string  `json:"message"`
	Graded    int     `json:"graded"`
	CodeMarks float64 `json:"codeMarks"`
	McqMarks  float64 `json:"mcqMarks"`
}

func validateRun(req SubmitRequest) error {
	if req.LanguageID <= 0 || req.SourceCode == "" {
		return common.Validationf("Language and source code are required")
	}
	return nil
}

func toItems(req SubmitRequest, cases []model.TestCase) []judge.Item {
	items := make([]judge.Item, len(cases))
	for i, tc := range cases {
		items[i] = judge.Item{
			LanguageID:     req.LanguageID,
			SourceCode:     req.SourceCode,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}
	return items
}

// Run executes caller supplied cases without recording anything.
func (s *SubmissionService) Run(ctx context.Context, req SubmitRequest) (*RunResponse, error) {
	if err := validateRun(req); err != nil {
		return nil, err
	}
	if len(req.TestCases) == 0 {
		return nil, common.Validationf("At least one test case is required")
	}
	tokens, err := s.judge.SubmitBatch(ctx, toItems(req, req.TestCases))
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return &RunResponse{Tokens: tokens}, nil
}

// openSchedule loads the classroom test and checks the student may act on it now.
func (s *SubmissionService) openSchedule(ctx context.Context, studentID, classroomTestID string) (*model.ClassroomTest, error) {
	ct, err := s.testRepo.FindScheduleByID(ctx, classroomTestID)
	if err != nil {
		return nil, err
	}
	member, err := s.classroomRepo.IsMember(ctx, ct.ClassroomID, studentID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, common.Forbiddenf("Not a member of this classroom")
	}
	submitted, err := s.submissionRepo.IsTestSubmitted(ctx, ct.ID, studentID)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, common.Conflictf("Test already submitted")
	}
	return ct, nil
}

// Submit grades against the question's stored cases and records the tokens for finalize.
func (s *SubmissionService) Submit(ctx context.Context, studentID string, req SubmitRequest) (*SubmitResponse, error) {
	if err := validateRun(req); err != nil {
		return nil, err
	}
	if req.QuestionID == "" || req.ClassroomTestID == "" {
		return nil, common.Validationf("Question ID and Classroom Test ID are required")
	}

	ct, err := s.openSchedule(ctx, studentID, req.ClassroomTestID)
	if err != nil {
		return nil, err
	}
	if s.now().Before(ct.ScheduledAt) {
		return nil, common.Forbiddenf("Test has not started")
	}

	v, err := s.questionRepo.FindQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	q, ok := v.(*model.CodeQuestion)
	if !ok {
		return nil, common.Validationf("Question is not a coding question")
	}
	if q.TestID != ct.TestID {
		return nil, common.Validationf("Question does not belong to this test")
	}
	if !q.AllowsLanguage(req.LanguageID) {
		return nil, common.Validationf("Language %d is not allowed for this question", req.LanguageID)
	}
	cases := q.GradingCases()
	if len(cases) == 0 {
		return nil, common.Validationf("Question has no test cases")
	}

	tokens, err := s.judge.SubmitBatch(ctx, toItems(req, cases))
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if len(tokens) != len(cases) {
		return nil, fmt.Errorf("submit: judge returned %d tokens for %d cases", len(tokens), len(cases))
	}

	sub := &model.Submission{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		QuestionID:      q.ID,
		ClassroomTestID: ct.ID,
		LanguageID:      req.LanguageID,
		SourceCode:      req.SourceCode,
		Tokens:          tokens,
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissionRepo.CreateSubmission(ctx, tx, sub); err != nil {
			return err
		}
		return s.submissionRepo.AddSubmissionTokens(ctx, tx, sub.ID, tokens)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("submission recorded",
		zap.String("submission_id", sub.ID),
		zap.String("student_id", studentID),
		zap.Int("cases", len(tokens)))
	return &SubmitResponse{SubmissionID: sub.ID}, nil
}

func (s *SubmissionService) GetResultsByTokens(ctx context.Context, tokens []string) (*ResultsResponse, error) {
	if len(tokens) == 0 {
		return nil, common.Validationf("Tokens are required")
	}
	results, err := s.judge.FetchBatch(ctx, tokens, nil)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	return &ResultsResponse{Submissions: results}, nil
}

func (s *SubmissionService) ListForClassroomTest(ctx context.Context, studentID, classroomTestID string) (*SubmissionListResponse, error) {
	subs, err := s.submissionRepo.ListSubmissionsForStudent(ctx, studentID, classroomTestID)
	if err != nil {
		return nil, err
	}
	return &SubmissionListResponse{Submissions: subs}, nil
}

// GetSubmissionDetail returns judge verdicts for one submission. Students only see their own.
func (s *SubmissionService) GetSubmissionDetail(ctx context.Context, callerID string, roles []string, id string) (*SubmissionDetailResponse, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.StudentID != callerID && !mapset.NewSet(roles...).ContainsAny(model.RoleStaff, model.RoleAdmin, model.RoleSupervisor) {
		return nil, common.NotFoundf("Submission not found")
	}
	resp := &SubmissionDetailResponse{
		Submissions: []judge.Result{},
		CreatedAt:   sub.CreatedAt,
		SourceCode:  sub.SourceCode,
		LanguageID:  sub.LanguageID,
	}
	if len(sub.Tokens) == 0 {
		return resp, nil
	}
	results, err := s.judge.FetchBatch(ctx, sub.Tokens, detailFields)
	if err != nil {
		return nil, fmt.Errorf("submission detail: %w", err)
	}
	resp.Submissions = results
	return resp, nil
}

// Finalize grades every ungraded submission and the MCQ answers of one student for one
// scheduled test. It is safe to call again after a failure.
func (s *SubmissionService) Finalize(ctx context.Context, studentID string, req FinalizeRequest) (resp *FinalizeResponse, err error) {
	if req.ClassroomTestID == "" {
		return nil, common.Validationf("Classroom Test ID is required")
	}
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = finalizeOutcome(err)
		}
		metrics.FinalizeTotal.WithLabelValues(outcome).Inc()
	}()

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("finalize:%s:%s", req.ClassroomTestID, studentID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	ct, err := s.openSchedule(ctx, studentID, req.ClassroomTestID)
	if err != nil {
		return nil, err
	}

	pending, err := s.submissionRepo.ListPendingSubmissions(ctx, studentID, ct.ID)
	if err != nil {
		return nil, err
	}

	owner := make(map[string]string)
	var tokens []string
	for _, p := range pending {
		for _, tok := range p.Tokens {
			owner[tok] = p.ID
			tokens = append(tokens, tok)
		}
	}

	var results []model.SubmissionResult
	if len(tokens) > 0 {
		fetched, err := s.judge.FetchBatch(ctx, tokens, detailFields)
		if err != nil {
			return nil, fmt.Errorf("finalize: %w", err)
		}
		results = make([]model.SubmissionResult, 0, len(fetched))
		for _, r := range fetched {
			if !r.Status.IsFinished() {
				return nil, fmt.Errorf("finalize: submission %s is still being judged: %w", owner[r.Token], common.ErrServiceUnavailable)
			}
			subID, ok := owner[r.Token]
			if !ok {
				return nil, fmt.Errorf("finalize: judge returned unknown token %s", r.Token)
			}
			results = append(results, model.SubmissionResult{
				ID:           uuid.NewString(),
				SubmissionID: subID,
				Status:       r.Status.Description,
				Time:         r.Time,
				Memory:       r.Memory,
				Token:        r.Token,
			})
		}
	}

	resp = &FinalizeResponse{Message: "Test submitted"}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissionRepo.CreateSubmissionResults(ctx, tx, results); err != nil {
			return err
		}
		for _, p := range pending {
			statuses, err := s.submissionRepo.ListResultStatuses(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			marks := grading.CodingMarks(p.QuestionMarks, statuses)
			if err := s.submissionRepo.UpdateMarksAwarded(ctx, tx, p.ID, marks); err != nil {
				return err
			}
			resp.Graded++
			resp.CodeMarks += marks
		}

		mcqMarks, err := s.gradeMcq(ctx, tx, studentID, ct, req.McqAnswers)
		if err != nil {
			return err
		}
		resp.McqMarks = mcqMarks

		return s.submissionRepo.MarkTestSubmitted(ctx, tx, ct.ID, studentID)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("test finalized",
		zap.String("classroom_test_id", ct.ID),
		zap.String("student_id", studentID),
		zap.Int("graded", resp.Graded),
		zap.Float64("code_marks", resp.CodeMarks),
		zap.Float64("mcq_marks", resp.McqMarks))
	return resp, nil
}

func (s *SubmissionService) gradeMcq(ctx context.Context, tx *sql.Tx, studentID string, ct *model.ClassroomTest, answers []model.McqAnswer) (float64, error) {
	if len(answers) == 0 {
		return 0, nil
	}
	seen := mapset.NewSet[string]()
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		if !seen.Add(a.QuestionID) {
			return 0, common.Validationf("Duplicate answer for MCQ question %s", a.QuestionID)
		}
		ids = append(ids, a.QuestionID)
	}
	questions, err := s.questionRepo.FindMcqQuestions(ctx, tx, ids)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok || q.TestID != ct.TestID {
			return 0, common.Validationf("Unknown MCQ question %s", a.QuestionID)
		}
		selected, err := selectedOptions(q, a.Answer)
		if err != nil {
			return 0, err
		}
		marks := grading.McqMarks(q, selected)
		if err := s.submissionRepo.ReplaceMcqAnswers(ctx, tx, studentID, ct.ID, q.ID, selected, marks); err != nil {
			return 0, err
		}
		total += marks
	}
	return total, nil
}

// selectedOptions drops repeated ids, keeping first-seen order, and rejects ids outside q.
func selectedOptions(q *model.McqQuestion, answer []string) ([]string, error) {
	valid := mapset.NewThreadUnsafeSet[string]()
	for _, o := range q.Options {
		valid.Add(o.ID)
	}
	picked := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(answer))
	for _, id := range answer {
		if !valid.Contains(id) {
			return nil, common.Validationf("Option %s does not belong to question %s", id, q.ID)
		}
		if picked.Add(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func finalizeOutcome(err error) string {
	switch common.HTTPStatusFromError(err) {
	case http.StatusConflict:
		return "locked"
	case http.StatusServiceUnavailable:
		return "pending"
	case http.StatusInternalServerError:
		return "error"
	default:
		return "rejected"
	}
}
