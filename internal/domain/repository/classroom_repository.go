package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"
)

type ClassroomRepository interface {
	Create(ctx context.Context, c *model.Classroom) error
	Update(ctx context.Context, c *model.Classroom) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Classroom, error)
	FindBySlug(ctx context.Context, slug string) (*model.Classroom, error)
	ListAll(ctx context.Context) ([]model.Classroom, error)
	ListForUser(ctx context.Context, userID string) ([]model.Classroom, error)

	AddStaff(ctx context.Context, classroomID, staffID string) error
	RemoveStaff(ctx context.Context, classroomID, staffID string) error
	ListStaff(ctx context.Context, classroomID string) ([]model.Member, error)

	AddStudents(ctx context.Context, classroomID string, studentIDs []string) (int, error)
	RemoveStudent(ctx context.Context, classroomID, studentID string) error
	ListStudents(ctx context.Context, classroomID string) ([]model.Member, error)
	IsMember(ctx context.Context, classroomID, userID string) (bool, error)
}

type pgClassroomRepository struct {
	db *sql.DB
}

func NewPgClassroomRepository(db *sql.DB) ClassroomRepository {
	return &pgClassroomRepository{db: db}
}

const classroomColumns = `c.id, c.name, c.slug, c.description, c.created_by, c.created_at, c.updated_at`

func scanClassroom(row interface{ Scan(...interface{}) error }) (*model.Classroom, error) {
	c := &model.Classroom{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *pgClassroomRepository) Create(ctx context.Context, c *model.Classroom) error {
	query := `INSERT INTO classrooms (id, name, slug, description, created_by)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.CreatedBy).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Conflictf("Classroom with this slug already exists")
		}
		return fmt.Errorf("pgClassroomRepository.Create: %w", err)
	}
	return nil
}

func (r *pgClassroomRepository) Update(ctx context.Context, c *model.Classroom) error {
	query := `UPDATE classrooms SET name = $1, slug = $2, description = $3, updated_at = NOW()
	          WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Slug, c.Description, c.ID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Conflictf("Classroom with this slug already exists")
		}
		return fmt.Errorf("pgClassroomRepository.Update: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Classroom not found"))
}

func (r *pgClassroomRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgClassroomRepository.Delete: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Classroom not found"))
}

func (r *pgClassroomRepository) FindByID(ctx context.Context, id string) (*model.Classroom, error) {
	return r.findOne(ctx, "pgClassroomRepository.FindByID", `SELECT `+classroomColumns+` FROM classrooms c WHERE c.id = $1`, id)
}

func (r *pgClassroomRepository) FindBySlug(ctx context.Context, slug string) (*model.Classroom, error) {
	return r.findOne(ctx, "pgClassroomRepository.FindBySlug", `SELECT `+classroomColumns+` FROM classrooms c WHERE c.slug = $1`, slug)
}

func (r *pgClassroomRepository) findOne(ctx context.Context, op, query string, arg string) (*model.Classroom, error) {
	c, err := scanClassroom(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Classroom not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *pgClassroomRepository) ListAll(ctx context.Context) ([]model.Classroom, error) {
	return r.list(ctx, "pgClassroomRepository.ListAll",
		`SELECT `+classroomColumns+` FROM classrooms c ORDER BY c.created_at DESC`)
}

// ListForUser returns classrooms the user created, teaches or attends.
func (r *pgClassroomRepository) ListForUser(ctx context.Context, userID string) ([]model.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms c
	          WHERE c.created_by = $1
	             OR EXISTS (SELECT 1 FROM classroom_staff cs WHERE cs.classroom_id = c.id AND cs.staff_id = $1)
	             OR EXISTS (SELECT 1 FROM classroom_students st WHERE st.classroom_id = c.id AND st.student_id = $1)
	          ORDER BY c.created_at DESC`
	return r.list(ctx, "pgClassroomRepository.ListForUser", query, userID)
}

func (r *pgClassroomRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Classroom, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	classrooms := []model.Classroom{}
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		classrooms = append(classrooms, *c)
	}
	return classrooms, rows.Err()
}

func (r *pgClassroomRepository) AddStaff(ctx context.Context, classroomID, staffID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO classroom_staff (classroom_id, staff_id) VALUES ($1, $2)`, classroomID, staffID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Forbiddenf("Staff is already a part of the classroom")
		}
		if common.IsForeignKeyViolation(err) {
			return common.NotFoundf("Classroom not found")
		}
		return fmt.Errorf("pgClassroomRepository.AddStaff: %w", err)
	}
	return nil
}

func (r *pgClassroomRepository) RemoveStaff(ctx context.Context, classroomID, staffID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM classroom_staff WHERE classroom_id = $1 AND staff_id = $2`, classroomID, staffID)
	if err != nil {
		return fmt.Errorf("pgClassroomRepository.RemoveStaff: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Staff is not a part of the classroom"))
}

func (r *pgClassroomRepository) ListStaff(ctx context.Context, classroomID string) ([]model.Member, error) {
	query := `SELECT u.id, u.roll_no, u.user_name, u.email
	          FROM classroom_staff cs JOIN users u ON u.id = cs.staff_id
	          WHERE cs.classroom_id = $1 ORDER BY u.user_name`
	return r.members(ctx, "pgClassroomRepository.ListStaff", query, classroomID)
}

// AddStudents skips students already enrolled and reports how many rows were added.
func (r *pgClassroomRepository) AddStudents(ctx context.Context, classroomID string, studentIDs []string) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(studentIDs)*2)
	for _, id := range studentIDs {
		args = append(args, classroomID, id)
	}
	query := `INSERT INTO classroom_students (classroom_id, student_id) VALUES ` +
		valuesClause(len(studentIDs), 2) +
		` ON CONFLICT (classroom_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return 0, common.NotFoundf("Classroom not found")
		}
		return 0, fmt.Errorf("pgClassroomRepository.AddStudents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgClassroomRepository.AddStudents: %w", err)
	}
	return int(n), nil
}

func (r *pgClassroomRepository) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM classroom_students WHERE classroom_id = $1 AND student_id = $2`, classroomID, studentID)
	if err != nil {
		return fmt.Errorf("pgClassroomRepository.RemoveStudent: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Student is not a part of the classroom"))
}

func (r *pgClassroomRepository) ListStudents(ctx context.Context, classroomID string) ([]model.Member, error) {
	query := `SELECT u.id, u.roll_no, u.user_name, u.email
	          FROM classroom_students cs JOIN users u ON u.id = cs.student_id
	          WHERE cs.classroom_id = $1 ORDER BY u.roll_no`
	return r.members(ctx, "pgClassroomRepository.ListStudents", query, classroomID)
}

func (r *pgClassroomRepository) IsMember(ctx context.Context, classroomID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM classroom_students WHERE classroom_id = $1 AND student_id = $2)
	              OR EXISTS (SELECT 1 FROM classroom_staff WHERE classroom_id = $1 AND staff_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, classroomID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("pgClassroomRepository.IsMember: %w", err)
	}
	return ok, nil
}

func (r *pgClassroomRepository) members(ctx context.Context, op, query, classroomID string) ([]model.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, classroomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.RollNo, &m.UserName, &m.Email); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
