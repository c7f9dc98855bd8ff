package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"

	"github.com/google/uuid"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	AddSubmissionTokens(ctx context.Context, tx *sql.Tx, submissionID string, tokens []string) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissionsForStudent(ctx context.Context, studentID, classroomTestID string) ([]model.Submission, error)

	// ListPendingSubmissions returns ungraded code submissions with their token index.
	ListPendingSubmissions(ctx context.Context, studentID, classroomTestID string) ([]model.PendingSubmission, error)
	CreateSubmissionResults(ctx context.Context, tx *sql.Tx, results []model.SubmissionResult) error
	ListResultStatuses(ctx context.Context, tx *sql.Tx, submissionID string) ([]string, error)
	UpdateMarksAwarded(ctx context.Context, tx *sql.Tx, submissionID string, marks float64) error

	ReplaceMcqAnswers(ctx context.Context, tx *sql.Tx, studentID, classroomTestID, questionID string, optionIDs []string, marks float64) error
	MarkTestSubmitted(ctx context.Context, tx *sql.Tx, classroomTestID, studentID string) error
	IsTestSubmitted(ctx context.Context, classroomTestID, studentID string) (bool, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO code_submissions (id, student_id, question_id, classroom_test_id, language_id, source_code, j_tokens)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		sub.ID, sub.StudentID, sub.QuestionID, sub.ClassroomTestID, sub.LanguageID, sub.SourceCode, model.EncodeTokens(sub.Tokens),
	).Scan(&sub.CreatedAt)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Question or scheduled test not found")
		}
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

// AddSubmissionTokens records position i for tokens[i].
func (r *pgSubmissionRepository) AddSubmissionTokens(ctx context.Context, tx *sql.Tx, submissionID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(tokens)*3)
	for i, tok := range tokens {
		args = append(args, tok, submissionID, i)
	}
	query := `INSERT INTO submission_tokens (token, submission_id, position) VALUES ` + valuesClause(len(tokens), 3)
	if _, err := conn(r.db, tx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgSubmissionRepository.AddSubmissionTokens: %w", err)
	}
	return nil
}

const submissionColumns = `id, student_id, question_id, classroom_test_id, language_id, source_code, j_tokens, marks_awarded, created_at`

func scanSubmission(row interface{ Scan(...interface{}) error }) (*model.Submission, error) {
	s := &model.Submission{}
	var blob string
	var marks sql.NullFloat64
	if err := row.Scan(&s.ID, &s.StudentID, &s.QuestionID, &s.ClassroomTestID, &s.LanguageID, &s.SourceCode, &blob, &marks, &s.CreatedAt); err != nil {
		return nil, err
	}
	if marks.Valid {
		s.MarksAwarded = &marks.Float64
	}
	tokens, err := model.DecodeTokens(blob)
	if err != nil {
		return nil, err
	}
	s.Tokens = tokens
	return s, nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM code_submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Submission not found")
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) ListSubmissionsForStudent(ctx context.Context, studentID, classroomTestID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM code_submissions
	          WHERE student_id = $1 AND classroom_test_id = $2
	          ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, studentID, classroomTestID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsForStudent: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsForStudent scan: %w", err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) ListPendingSubmissions(ctx context.Context, studentID, classroomTestID string) ([]model.PendingSubmission, error) {
	query := `SELECT s.id, s.question_id, q.marks, st.token
	          FROM code_submissions s
	          JOIN questions q ON q.id = s.question_id
	          LEFT JOIN submission_tokens st ON st.submission_id = s.id
	          WHERE s.student_id = $1 AND s.classroom_test_id = $2 AND s.marks_awarded IS NULL
	          ORDER BY s.created_at, s.id, st.position`
	rows, err := r.db.QueryContext(ctx, query, studentID, classroomTestID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListPendingSubmissions: %w", err)
	}
	defer rows.Close()

	pending := []model.PendingSubmission{}
	for rows.Next() {
		var (
			id, questionID string
			marks          float64
			token          sql.NullString
		)
		if err := rows.Scan(&id, &questionID, &marks, &token); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListPendingSubmissions scan: %w", err)
		}
		if n := len(pending); n == 0 || pending[n-1].ID != id {
			pending = append(pending, model.PendingSubmission{ID: id, QuestionID: questionID, QuestionMarks: marks})
		}
		if token.Valid {
			last := &pending[len(pending)-1]
			last.Tokens = append(last.Tokens, token.String)
		}
	}
	return pending, rows.Err()
}

// CreateSubmissionResults ignores rows whose judge token is already stored.
func (r *pgSubmissionRepository) CreateSubmissionResults(ctx context.Context, tx *sql.Tx, results []model.SubmissionResult) error {
	if len(results) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(results)*6)
	for i := range results {
		res := &results[i]
		if res.ID == "" {
			res.ID = uuid.NewString()
		}
		args = append(args, res.ID, res.SubmissionID, res.Status, nullString(res.Time), res.Memory, res.Token)
	}
	query := `INSERT INTO code_submission_results (id, submission_id, status, time, memory, j_token) VALUES ` +
		valuesClause(len(results), 6) +
		` ON CONFLICT (j_token) DO NOTHING`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmissionResults: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ListResultStatuses(ctx context.Context, tx *sql.Tx, submissionID string) ([]string, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx,
		`SELECT status FROM code_submission_results WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListResultStatuses: %w", err)
	}
	defer rows.Close()

	statuses := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListResultStatuses scan: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *pgSubmissionRepository) UpdateMarksAwarded(ctx context.Context, tx *sql.Tx, submissionID string, marks float64) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE code_submissions SET marks_awarded = $1 WHERE id = $2`, marks, submissionID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateMarksAwarded: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Submission not found"))
}

// ReplaceMcqAnswers stores one row per selected option, all carrying the same mark.
func (r *pgSubmissionRepository) ReplaceMcqAnswers(ctx context.Context, tx *sql.Tx, studentID, classroomTestID, questionID string, optionIDs []string, marks float64) error {
	c := conn(r.db, tx)
	_, err := c.ExecContext(ctx,
		`DELETE FROM mcq_submissions WHERE student_id = $1 AND classroom_test_id = $2 AND question_id = $3`,
		studentID, classroomTestID, questionID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.ReplaceMcqAnswers delete: %w", err)
	}
	if len(optionIDs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(optionIDs)*6)
	for _, opt := range optionIDs {
		args = append(args, uuid.NewString(), studentID, questionID, opt, classroomTestID, marks)
	}
	query := `INSERT INTO mcq_submissions (id, student_id, question_id, option_id, classroom_test_id, marks_awarded) VALUES ` +
		valuesClause(len(optionIDs), 6)
	if _, err := c.ExecContext(ctx, query, args...); err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.Validationf("Unknown option for question %s", questionID)
		}
		return fmt.Errorf("pgSubmissionRepository.ReplaceMcqAnswers insert: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) MarkTestSubmitted(ctx context.Context, tx *sql.Tx, classroomTestID, studentID string) error {
	query := `INSERT INTO test_submissions (classroom_test_id, student_id) VALUES ($1, $2)
	          ON CONFLICT (classroom_test_id, student_id) DO UPDATE SET submitted_at = NOW()`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, classroomTestID, studentID); err != nil {
		return fmt.Errorf("pgSubmissionRepository.MarkTestSubmitted: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) IsTestSubmitted(ctx context.Context, classroomTestID, studentID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM test_submissions WHERE classroom_test_id = $1 AND student_id = $2)`,
		classroomTestID, studentID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.IsTestSubmitted: %w", err)
	}
	return ok, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
