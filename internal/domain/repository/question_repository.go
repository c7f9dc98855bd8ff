package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/google/uuid"
)

type QuestionRepository interface {
	CreateCodeQuestion(ctx context.Context, tx *sql.Tx, q *model.CodeQuestion) error
	CreateMcqQuestion(ctx context.Context, tx *sql.Tx, q *model.McqQuestion) error
	// FindQuestion loads the base row and then the detail for its variant.
	FindQuestion(ctx context.Context, id string) (model.QuestionVariant, error)
	ListByTest(ctx context.Context, testID string) ([]model.Question, error)
	FindMcqQuestions(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*model.McqQuestion, error)
}

type detailLoader func(ctx context.Context, q dbtx, base model.Question) (model.QuestionVariant, error)

type pgQuestionRepository struct {
	db      *sql.DB
	loaders map[model.QuestionType]detailLoader
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{
		db: db,
		loaders: map[model.QuestionType]detailLoader{
			model.QuestionTypeCode: loadCodeDetail,
			model.QuestionTypeMCQ:  loadMcqDetail,
		},
	}
}

func insertQuestion(ctx context.Context, q dbtx, base *model.Question) error {
	query := `INSERT INTO questions (id, test_id, question_type, question, question_title, marks)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err := q.QueryRowContext(ctx, query, base.ID, base.TestID, base.Type, base.Prompt, base.Title, base.Marks).Scan(&base.CreatedAt)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Test not found")
		}
		return err
	}
	return nil
}

func (r *pgQuestionRepository) CreateCodeQuestion(ctx context.Context, tx *sql.Tx, q *model.CodeQuestion) error {
	c := conn(r.db, tx)
	q.Type = model.QuestionTypeCode
	if err := insertQuestion(ctx, c, &q.Question); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateCodeQuestion: %w", err)
	}

	langs, err := json.Marshal(nonNil(q.AllowedLanguages))
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateCodeQuestion: %w", err)
	}
	public, err := json.Marshal(nonNil(q.PublicTestCases))
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateCodeQuestion: %w", err)
	}
	private, err := json.Marshal(nonNil(q.PrivateTestCases))
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateCodeQuestion: %w", err)
	}

	query := `INSERT INTO code_questions (question_id, solution_code, allowed_languages, public_test_case, private_test_case)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := c.ExecContext(ctx, query, q.ID, q.SolutionCode, string(langs), string(public), string(private)); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateCodeQuestion detail: %w", err)
	}
	return nil
}

// CreateMcqQuestion inserts all options with one statement built from a fixed tuple template.
func (r *pgQuestionRepository) CreateMcqQuestion(ctx context.Context, tx *sql.Tx, q *model.McqQuestion) error {
	c := conn(r.db, tx)
	q.Type = model.QuestionTypeMCQ
	if err := insertQuestion(ctx, c, &q.Question); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateMcqQuestion: %w", err)
	}
	if _, err := c.ExecContext(ctx,
		`INSERT INTO mcq_questions (question_id, multiple_correct) VALUES ($1, $2)`, q.ID, q.MultipleCorrect); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateMcqQuestion detail: %w", err)
	}
	if len(q.Options) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(q.Options)*5)
	for i := range q.Options {
		opt := &q.Options[i]
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		opt.SortOrder = i
		correct := opt.IsCorrect != nil && *opt.IsCorrect
		args = append(args, opt.ID, q.ID, opt.Text, correct, opt.SortOrder)
	}
	query := `INSERT INTO mcq_options (id, question_id, option_text, is_correct, sort_order) VALUES ` +
		valuesClause(len(q.Options), 5)
	if _, err := c.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgQuestionRepository.CreateMcqQuestion options: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) FindQuestion(ctx context.Context, id string) (model.QuestionVariant, error) {
	query := `SELECT id, test_id, question_type, question, question_title, marks, created_at
	          FROM questions WHERE id = $1`
	var base model.Question
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&base.ID, &base.TestID, &base.Type, &base.Prompt, &base.Title, &base.Marks, &base.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Question not found")
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindQuestion: %w", err)
	}

	load, ok := r.loaders[base.Type]
	if !ok {
		return nil, fmt.Errorf("pgQuestionRepository.FindQuestion: unknown question type %q", base.Type)
	}
	v, err := load(ctx, r.db, base)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.FindQuestion: %w", err)
	}
	return v, nil
}

func loadCodeDetail(ctx context.Context, q dbtx, base model.Question) (model.QuestionVariant, error) {
	query := `SELECT solution_code, allowed_languages, public_test_case, private_test_case
	          FROM code_questions WHERE question_id = $1`
	cq := &model.CodeQuestion{Question: base}
	var langs, public, private []byte
	if err := q.QueryRowContext(ctx, query, base.ID).Scan(&cq.SolutionCode, &langs, &public, &private); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Code question detail not found")
		}
		return nil, err
	}
	for _, f := range []struct {
		raw []byte
		dst interface{}
	}{{langs, &cq.AllowedLanguages}, {public, &cq.PublicTestCases}, {private, &cq.PrivateTestCases}} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode code question %s: %w", base.ID, err)
		}
	}
	return cq, nil
}

func loadMcqDetail(ctx context.Context, q dbtx, base model.Question) (model.QuestionVariant, error) {
	mq := &model.McqQuestion{Question: base}
	err := q.QueryRowContext(ctx, `SELECT multiple_correct FROM mcq_questions WHERE question_id = $1`, base.ID).
		Scan(&mq.MultipleCorrect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("MCQ question detail not found")
		}
		return nil, err
	}

	opts, err := loadOptions(ctx, q, []string{base.ID})
	if err != nil {
		return nil, err
	}
	mq.Options = opts[base.ID]
	return mq, nil
}

func loadOptions(ctx context.Context, q dbtx, questionIDs []string) (map[string][]model.McqOption, error) {
	query := `SELECT id, question_id, option_text, is_correct, sort_order
	          FROM mcq_options WHERE question_id IN (` + placeholders(1, len(questionIDs)) + `)
	          ORDER BY question_id, sort_order`
	rows, err := q.QueryContext(ctx, query, stringArgs(questionIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.McqOption, len(questionIDs))
	for rows.Next() {
		var (
			opt        model.McqOption
			questionID string
			correct    bool
		)
		if err := rows.Scan(&opt.ID, &questionID, &opt.Text, &correct, &opt.SortOrder); err != nil {
			return nil, err
		}
		opt.IsCorrect = &correct
		out[questionID] = append(out[questionID], opt)
	}
	return out, rows.Err()
}

func (r *pgQuestionRepository) ListByTest(ctx context.Context, testID string) ([]model.Question, error) {
	query := `SELECT id, test_id, question_type, question, question_title, marks, created_at
	          FROM questions WHERE test_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, testID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListByTest: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Type, &q.Prompt, &q.Title, &q.Marks, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListByTest scan: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// FindMcqQuestions returns the requested MCQ questions with options; ids that are not MCQs are absent.
func (r *pgQuestionRepository) FindMcqQuestions(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*model.McqQuestion, error) {
	out := map[string]*model.McqQuestion{}
	if len(ids) == 0 {
		return out, nil
	}
	c := conn(r.db, tx)

	query := `SELECT q.id, q.test_id, q.question_type, q.question, q.question_title, q.marks, q.created_at, m.multiple_correct
	          FROM questions q JOIN mcq_questions m ON m.question_id = q.id
	          WHERE q.id IN (` + placeholders(1, len(ids)) + `)`
	rows, err := c.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.FindMcqQuestions: %w", err)
	}
	for rows.Next() {
		mq := &model.McqQuestion{}
		if err := rows.Scan(&mq.ID, &mq.TestID, &mq.Type, &mq.Prompt, &mq.Title, &mq.Marks, &mq.CreatedAt, &mq.MultipleCorrect); err != nil {
			rows.Close()
			return nil, fmt.Errorf("pgQuestionRepository.FindMcqQuestions scan: %w", err)
		}
		out[mq.ID] = mq
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.FindMcqQuestions: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	found := make([]string, 0, len(out))
	for id := range out {
		found = append(found, id)
	}
	opts, err := loadOptions(ctx, c, found)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.FindMcqQuestions options: %w", err)
	}
	for id, mq := range out {
		mq.Options = opts[id]
	}
	return out, nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
