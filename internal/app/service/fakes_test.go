package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/judge"
)

// Fakes embed the repository interface so calls to methods a test does not
// stub panic instead of silently passing.

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, common.ErrLockNotAcquired
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type fakeJudge struct {
	submitted [][]judge.Item
	statuses  map[string]judge.Status
	fetches   int
	next      int
}

func newFakeJudge() *fakeJudge { return &fakeJudge{statuses: map[string]judge.Status{}} }

func (j *fakeJudge) SubmitBatch(_ context.Context, items []judge.Item) ([]string, error) {
	j.submitted = append(j.submitted, items)
	tokens := make([]string, len(items))
	for i := range items {
		j.next++
		tokens[i] = fmt.Sprintf("tok-%d", j.next)
		j.statuses[tokens[i]] = judge.Status{ID: judge.StatusInQueue, Description: "In Queue"}
	}
	return tokens, nil
}

func (j *fakeJudge) FetchBatch(_ context.Context, tokens []string, _ []string) ([]judge.Result, error) {
	j.fetches++
	out := make([]judge.Result, len(tokens))
	for i, tok := range tokens {
		out[i] = judge.Result{Token: tok, Status: j.statuses[tok], Time: "0.01", Memory: 1024}
	}
	return out, nil
}

func (j *fakeJudge) verdict(tok, description string) {
	id := judge.StatusIDAccepted
	if description != judge.StatusAccepted {
		id = 4
	}
	j.statuses[tok] = judge.Status{ID: id, Description: description}
}

type fakeUserRepo struct {
	repository.UserRepository
	byID    map[string]*model.User
	byEmail map[string]*model.User
	roles   map[string][]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}, roles: map[string][]string{}}
}

func (r *fakeUserRepo) add(u *model.User, roles ...string) {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	r.roles[u.ID] = roles
}

func (r *fakeUserRepo) Create(_ context.Context, _ *sql.Tx, u *model.User) error {
	if _, ok := r.byEmail[u.Email]; ok {
		return common.Conflictf("User already exists")
	}
	r.add(u)
	return nil
}

func (r *fakeUserRepo) AssignRole(_ context.Context, _ *sql.Tx, userID, role string) error {
	r.roles[userID] = append(r.roles[userID], role)
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.NotFoundf("User not found")
}

func (r *fakeUserRepo) FindByEmails(_ context.Context, emails []string) ([]model.User, error) {
	var out []model.User
	for _, e := range emails {
		if u, ok := r.byEmail[e]; ok {
			cp := *u
			cp.Roles = r.roles[u.ID]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByRollNo(_ context.Context, _ *sql.Tx, rollNo string) (*model.User, error) {
	for _, u := range r.byID {
		if u.RollNo == rollNo {
			return u, nil
		}
	}
	return nil, common.NotFoundf("User not found")
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, common.NotFoundf("User not found")
}

func (r *fakeUserRepo) GetRoles(_ context.Context, userID string) ([]string, error) {
	return r.roles[userID], nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, _ *sql.Tx, userID string, active bool) error {
	r.byID[userID].IsActive = active
	return nil
}

type fakeBlockRepo struct {
	repository.BlockRepository
	blocks map[string]*model.Block
}

func (r *fakeBlockRepo) Create(_ context.Context, _ *sql.Tx, b *model.Block) error {
	b.IsActive = true
	r.blocks[b.ID] = b
	return nil
}

func (r *fakeBlockRepo) FindActiveByID(_ context.Context, _ *sql.Tx, id string) (*model.Block, error) {
	if b, ok := r.blocks[id]; ok && b.IsActive {
		return b, nil
	}
	return nil, common.NotFoundf("Active block not found")
}

func (r *fakeBlockRepo) Deactivate(_ context.Context, _ *sql.Tx, id, by string) error {
	r.blocks[id].IsActive = false
	r.blocks[id].UnblockedBy = &by
	return nil
}

func (r *fakeBlockRepo) CountActiveForUser(_ context.Context, _ *sql.Tx, userID string) (int, error) {
	n := 0
	for _, b := range r.blocks {
		if b.UserID == userID && b.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeTestRepo struct {
	repository.TestRepository
	tests     map[string]*model.Test
	schedules map[string]*model.ClassroomTest
	student   []repository.StudentSchedule
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: map[string]*model.Test{}, schedules: map[string]*model.ClassroomTest{}}
}

func (r *fakeTestRepo) FindTestByID(_ context.Context, id string) (*model.Test, error) {
	if t, ok := r.tests[id]; ok {
		return t, nil
	}
	return nil, common.NotFoundf("Test not found")
}

func (r *fakeTestRepo) FindScheduleByID(_ context.Context, id string) (*model.ClassroomTest, error) {
	if ct, ok := r.schedules[id]; ok {
		return ct, nil
	}
	return nil, common.NotFoundf("Scheduled test not found")
}

func (r *fakeTestRepo) ListStudentSchedules(_ context.Context, _ string, classroomID string) ([]repository.StudentSchedule, error) {
	var out []repository.StudentSchedule
	for _, s := range r.student {
		if classroomID == "" || s.ClassroomID == classroomID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeClassroomRepo struct {
	repository.ClassroomRepository
	members map[string]bool // classroomID + "/" + userID
}

func (r *fakeClassroomRepo) IsMember(_ context.Context, classroomID, userID string) (bool, error) {
	return r.members[classroomID+"/"+userID], nil
}

type fakeQuestionRepo struct {
	repository.QuestionRepository
	questions map[string]model.QuestionVariant
}

func (r *fakeQuestionRepo) FindQuestion(_ context.Context, id string) (model.QuestionVariant, error) {
	if q, ok := r.questions[id]; ok {
		return q, nil
	}
	return nil, common.NotFoundf("Question not found")
}

func (r *fakeQuestionRepo) FindMcqQuestions(_ context.Context, _ *sql.Tx, ids []string) (map[string]*model.McqQuestion, error) {
	out := map[string]*model.McqQuestion{}
	for _, id := range ids {
		if q, ok := r.questions[id].(*model.McqQuestion); ok {
			out[id] = q
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) ListByTest(_ context.Context, testID string) ([]model.Question, error) {
	out := []model.Question{}
	for _, q := range r.questions {
		if q.Base().TestID == testID {
			out = append(out, *q.Base())
		}
	}
	return out, nil
}

type mcqRow struct {
	optionIDs []string
	marks     float64
}

type fakeSubmissionRepo struct {
	repository.SubmissionRepository
	subs      map[string]*model.Submission
	order     []string
	tokens    map[string]string // token -> submission id
	results   map[string]model.SubmissionResult
	marks     map[string]float64
	mcq       map[string]mcqRow
	submitted map[string]bool
	questions *fakeQuestionRepo
}

func newFakeSubmissionRepo(questions *fakeQuestionRepo) *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		subs:      map[string]*model.Submission{},
		tokens:    map[string]string{},
		results:   map[string]model.SubmissionResult{},
		marks:     map[string]float64{},
		mcq:       map[string]mcqRow{},
		submitted: map[string]bool{},
		questions: questions,
	}
}

func (r *fakeSubmissionRepo) CreateSubmission(_ context.Context, _ *sql.Tx, s *model.Submission) error {
	s.CreatedAt = time.Now()
	r.subs[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

func (r *fakeSubmissionRepo) AddSubmissionTokens(_ context.Context, _ *sql.Tx, id string, tokens []string) error {
	for _, t := range tokens {
		r.tokens[t] = id
	}
	return nil
}

func (r *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	if s, ok := r.subs[id]; ok {
		return s, nil
	}
	return nil, common.NotFoundf("Submission not found")
}

func (r *fakeSubmissionRepo) ListPendingSubmissions(_ context.Context, studentID, ctID string) ([]model.PendingSubmission, error) {
	var out []model.PendingSubmission
	for _, id := range r.order {
		s := r.subs[id]
		if s.StudentID != studentID || s.ClassroomTestID != ctID || s.MarksAwarded != nil {
			continue
		}
		out = append(out, model.PendingSubmission{
			ID:            s.ID,
			QuestionID:    s.QuestionID,
			QuestionMarks: r.questions.questions[s.QuestionID].Base().Marks,
			Tokens:        s.Tokens,
		})
	}
	return out, nil
}

func (r *fakeSubmissionRepo) CreateSubmissionResults(_ context.Context, _ *sql.Tx, results []model.SubmissionResult) error {
	for _, res := range results {
		if _, dup := r.results[res.Token]; !dup {
			r.results[res.Token] = res
		}
	}
	return nil
}

func (r *fakeSubmissionRepo) ListResultStatuses(_ context.Context, _ *sql.Tx, id string) ([]string, error) {
	var out []string
	for _, res := range r.results {
		if res.SubmissionID == id {
			out = append(out, res.Status)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) resultCount(id string) int {
	n, _ := r.ListResultStatuses(context.Background(), nil, id)
	return len(n)
}

func (r *fakeSubmissionRepo) UpdateMarksAwarded(_ context.Context, _ *sql.Tx, id string, marks float64) error {
	r.marks[id] = marks
	r.subs[id].MarksAwarded = &marks
	return nil
}

func (r *fakeSubmissionRepo) ReplaceMcqAnswers(_ context.Context, _ *sql.Tx, studentID, ctID, qID string, optionIDs []string, marks float64) error {
	r.mcq[studentID+"/"+ctID+"/"+qID] = mcqRow{optionIDs: optionIDs, marks: marks}
	return nil
}

func (r *fakeSubmissionRepo) MarkTestSubmitted(_ context.Context, _ *sql.Tx, ctID, studentID string) error {
	r.submitted[ctID+"/"+studentID] = true
	return nil
}

func (r *fakeSubmissionRepo) IsTestSubmitted(_ context.Context, ctID, studentID string) (bool, error) {
	return r.submitted[ctID+"/"+studentID], nil
}
