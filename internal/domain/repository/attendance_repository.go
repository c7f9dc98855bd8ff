package repository

import (
	"context"
	"database/sql"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"
)

type AttendanceRepository interface {
	Mark(ctx context.Context, classroomTestID, studentID string, present bool) error
	IncrementTabSwitch(ctx context.Context, classroomTestID, studentID string) (int, error)
	List(ctx context.Context, classroomTestID string) ([]model.Attendance, error)
}

type pgAttendanceRepository struct {
	db *sql.DB
}

func NewPgAttendanceRepository(db *sql.DB) AttendanceRepository {
	return &pgAttendanceRepository{db: db}
}

func (r *pgAttendanceRepository) Mark(ctx context.Context, classroomTestID, studentID string, present bool) error {
	query := `INSERT INTO attendance (classroom_test_id, student_id, is_present) VALUES ($1, $2, $3)
	          ON CONFLICT (classroom_test_id, student_id)
	          DO UPDATE SET is_present = EXCLUDED.is_present, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, classroomTestID, studentID, present); err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Scheduled test or student not found")
		}
		return fmt.Errorf("pgAttendanceRepository.Mark: %w", err)
	}
	return nil
}

// IncrementTabSwitch returns the updated count. A first switch also marks the student present.
func (r *pgAttendanceRepository) IncrementTabSwitch(ctx context.Context, classroomTestID, studentID string) (int, error) {
	query := `INSERT INTO attendance (classroom_test_id, student_id, is_present, tab_switch_count) VALUES ($1, $2, TRUE, 1)
	          ON CONFLICT (classroom_test_id, student_id)
	          DO UPDATE SET tab_switch_count = attendance.tab_switch_count + 1, updated_at = NOW()
	          RETURNING tab_switch_count`
	var n int
	if err := r.db.QueryRowContext(ctx, query, classroomTestID, studentID).Scan(&n); err != nil {
		if common.IsForeignKeyViolation(err) {
			return 0, common.NotFoundf("Scheduled test or student not found")
		}
		return 0, fmt.Errorf("pgAttendanceRepository.IncrementTabSwitch: %w", err)
	}
	return n, nil
}

func (r *pgAttendanceRepository) List(ctx context.Context, classroomTestID string) ([]model.Attendance, error) {
	query := `SELECT a.classroom_test_id, a.student_id, u.roll_no, u.user_name, a.is_present, a.tab_switch_count, a.updated_at
	          FROM attendance a JOIN users u ON u.id = a.student_id
	          WHERE a.classroom_test_id = $1
	          ORDER BY u.roll_no`
	rows, err := r.db.QueryContext(ctx, query, classroomTestID)
	if err != nil {
		return nil, fmt.Errorf("pgAttendanceRepository.List: %w", err)
	}
	defer rows.Close()

	out := []model.Attendance{}
	for rows.Next() {
		var a model.Attendance
		if err := rows.Scan(&a.ClassroomTestID, &a.StudentID, &a.RollNo, &a.UserName, &a.IsPresent, &a.TabSwitchCount, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgAttendanceRepository.List scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
