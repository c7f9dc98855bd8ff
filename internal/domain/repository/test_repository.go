package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"
)

type TestRepository interface {
	CreateTest(ctx context.Context, t *model.Test) error
	UpdateTest(ctx context.Context, t *model.Test) error
	DeleteTest(ctx context.Context, id string) error
	FindTestByID(ctx context.Context, id string) (*model.Test, error)
	ListTests(ctx context.Context, createdBy string) ([]model.Test, error)

	CreateSchedule(ctx context.Context, ct *model.ClassroomTest) error
	UpdateSchedule(ctx context.Context, ct *model.ClassroomTest) error
	DeleteSchedule(ctx context.Context, id string) error
	FindScheduleByID(ctx context.Context, id string) (*model.ClassroomTest, error)
	FindScheduleByPair(ctx context.Context, classroomID, testID string) (*model.ClassroomTest, error)
	ListSchedulesByClassroom(ctx context.Context, classroomID string) ([]model.ClassroomTest, error)

	// ListStudentSchedules returns tests scheduled in the student's classrooms.
	// classroomID narrows to one classroom when non-empty.
	ListStudentSchedules(ctx context.Context, studentID, classroomID string) ([]StudentSchedule, error)
	ListSupervisedTests(ctx context.Context, supervisorID string) ([]model.SupervisedTest, error)
}

// StudentSchedule is a scheduled test with the student's attendance and submission state.
type StudentSchedule struct {
	model.ClassroomTest
	Present   bool
	Submitted bool
}

type pgTestRepository struct {
	db *sql.DB
}

func NewPgTestRepository(db *sql.DB) TestRepository {
	return &pgTestRepository{db: db}
}

func (r *pgTestRepository) CreateTest(ctx context.Context, t *model.Test) error {
	query := `INSERT INTO tests (id, title, description, duration_in_minutes, created_by)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, t.ID, t.Title, t.Description, t.DurationInMinutes, t.CreatedBy).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgTestRepository.CreateTest: %w", err)
	}
	return nil
}

func (r *pgTestRepository) UpdateTest(ctx context.Context, t *model.Test) error {
	query := `UPDATE tests SET title = $1, description = $2, duration_in_minutes = $3, updated_at = NOW()
	          WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, t.Title, t.Description, t.DurationInMinutes, t.ID)
	if err != nil {
		return fmt.Errorf("pgTestRepository.UpdateTest: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Test not found"))
}

func (r *pgTestRepository) DeleteTest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTestRepository.DeleteTest: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Test not found"))
}

func (r *pgTestRepository) FindTestByID(ctx context.Context, id string) (*model.Test, error) {
	query := `SELECT id, title, description, duration_in_minutes, created_by, created_at, updated_at
	          FROM tests WHERE id = $1`
	t := &model.Test{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.DurationInMinutes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Test not found")
		}
		return nil, fmt.Errorf("pgTestRepository.FindTestByID: %w", err)
	}
	return t, nil
}

func (r *pgTestRepository) ListTests(ctx context.Context, createdBy string) ([]model.Test, error) {
	query := `SELECT id, title, description, duration_in_minutes, created_by, created_at, updated_at
	          FROM tests`
	var args []interface{}
	if createdBy != "" {
		query += ` WHERE created_by = $1`
		args = append(args, createdBy)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTestRepository.ListTests: %w", err)
	}
	defer rows.Close()

	tests := []model.Test{}
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DurationInMinutes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgTestRepository.ListTests scan: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *pgTestRepository) CreateSchedule(ctx context.Context, ct *model.ClassroomTest) error {
	query := `INSERT INTO classroom_tests (id, classroom_id, test_id, scheduled_at, created_by, supervisor_id)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, ct.ID, ct.ClassroomID, ct.TestID, ct.ScheduledAt, ct.CreatedBy, ct.SupervisorID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Conflictf("Test is already scheduled in this classroom")
		}
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Classroom, test or supervisor not found")
		}
		return fmt.Errorf("pgTestRepository.CreateSchedule: %w", err)
	}
	return nil
}

func (r *pgTestRepository) UpdateSchedule(ctx context.Context, ct *model.ClassroomTest) error {
	query := `UPDATE classroom_tests SET scheduled_at = $1, supervisor_id = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, ct.ScheduledAt, ct.SupervisorID, ct.ID)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Supervisor not found")
		}
		return fmt.Errorf("pgTestRepository.UpdateSchedule: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Scheduled test not found"))
}

func (r *pgTestRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classroom_tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTestRepository.DeleteSchedule: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Scheduled test not found"))
}

const scheduleColumns = `ct.id, ct.classroom_id, ct.test_id, ct.scheduled_at, ct.created_by, ct.supervisor_id,
	t.title, t.description, t.duration_in_minutes, c.name`

const scheduleJoins = ` FROM classroom_tests ct
	JOIN tests t ON t.id = ct.test_id
	JOIN classrooms c ON c.id = ct.classroom_id`

func scanSchedule(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*model.ClassroomTest, error) {
	ct := &model.ClassroomTest{}
	dest := []interface{}{
		&ct.ID, &ct.ClassroomID, &ct.TestID, &ct.ScheduledAt, &ct.CreatedBy, &ct.SupervisorID,
		&ct.Title, &ct.Description, &ct.DurationInMinutes, &ct.ClassroomName,
	}
	err := row.Scan(append(dest, extra...)...)
	return ct, err
}

func (r *pgTestRepository) FindScheduleByID(ctx context.Context, id string) (*model.ClassroomTest, error) {
	query := `SELECT ` + scheduleColumns + scheduleJoins + ` WHERE ct.id = $1`
	ct, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Scheduled test not found")
		}
		return nil, fmt.Errorf("pgTestRepository.FindScheduleByID: %w", err)
	}
	return ct, nil
}

func (r *pgTestRepository) FindScheduleByPair(ctx context.Context, classroomID, testID string) (*model.ClassroomTest, error) {
	query := `SELECT ` + scheduleColumns + scheduleJoins + ` WHERE ct.classroom_id = $1 AND ct.test_id = $2`
	ct, err := scanSchedule(r.db.QueryRowContext(ctx, query, classroomID, testID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Scheduled test not found")
		}
		return nil, fmt.Errorf("pgTestRepository.FindScheduleByPair: %w", err)
	}
	return ct, nil
}

func (r *pgTestRepository) ListSchedulesByClassroom(ctx context.Context, classroomID string) ([]model.ClassroomTest, error) {
	query := `SELECT ` + scheduleColumns + scheduleJoins + ` WHERE ct.classroom_id = $1 ORDER BY ct.scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, classroomID)
	if err != nil {
		return nil, fmt.Errorf("pgTestRepository.ListSchedulesByClassroom: %w", err)
	}
	defer rows.Close()

	schedules := []model.ClassroomTest{}
	for rows.Next() {
		ct, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("pgTestRepository.ListSchedulesByClassroom scan: %w", err)
		}
		schedules = append(schedules, *ct)
	}
	return schedules, rows.Err()
}

func (r *pgTestRepository) ListStudentSchedules(ctx context.Context, studentID, classroomID string) ([]StudentSchedule, error) {
	query := `SELECT ` + scheduleColumns + `,
	                 COALESCE(a.is_present, FALSE),
	                 (ts.student_id IS NOT NULL)` + scheduleJoins + `
	          JOIN classroom_students cs ON cs.classroom_id = ct.classroom_id AND cs.student_id = $1
	          LEFT JOIN attendance a ON a.classroom_test_id = ct.id AND a.student_id = $1
	          LEFT JOIN test_submissions ts ON ts.classroom_test_id = ct.id AND ts.student_id = $1`
	args := []interface{}{studentID}
	if classroomID != "" {
		query += ` WHERE ct.classroom_id = $2`
		args = append(args, classroomID)
	}
	query += ` ORDER BY ct.scheduled_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTestRepository.ListStudentSchedules: %w", err)
	}
	defer rows.Close()

	out := []StudentSchedule{}
	for rows.Next() {
		var s StudentSchedule
		ct, err := scanSchedule(rows, &s.Present, &s.Submitted)
		if err != nil {
			return nil, fmt.Errorf("pgTestRepository.ListStudentSchedules scan: %w", err)
		}
		s.ClassroomTest = *ct
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgTestRepository) ListSupervisedTests(ctx context.Context, supervisorID string) ([]model.SupervisedTest, error) {
	query := `SELECT ` + scheduleColumns + `,
	                 (SELECT COUNT(*) FROM classroom_students cs WHERE cs.classroom_id = ct.classroom_id)` + scheduleJoins + `
	          WHERE ct.supervisor_id = $1
	          ORDER BY ct.scheduled_at`
	rows, err := r.db.QueryContext(ctx, query, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("pgTestRepository.ListSupervisedTests: %w", err)
	}
	defer rows.Close()

	out := []model.SupervisedTest{}
	for rows.Next() {
		var st model.SupervisedTest
		ct, err := scanSchedule(rows, &st.StudentCount)
		if err != nil {
			return nil, fmt.Errorf("pgTestRepository.ListSupervisedTests scan: %w", err)
		}
		st.ClassroomTest = *ct
		out = append(out, st)
	}
	return out, rows.Err()
}
