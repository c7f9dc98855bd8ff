package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	AssignRole(ctx context.Context, tx *sql.Tx, userID, role string) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]model.User, error)
	FindByRollNo(ctx context.Context, tx *sql.Tx, rollNo string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
	SetActive(ctx context.Context, tx *sql.Tx, userID string, active bool) error
	DeleteByEmail(ctx context.Context, email string) error
	CountByRole(ctx context.Context) ([]model.RoleCount, error)
	ListStaff(ctx context.Context) ([]model.StaffSummary, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, roll_no, user_name, email, password_hash, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.RollNo, &user.UserName, &user.Email, &user.HashedPassword, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, roll_no, user_name, email, password_hash, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := conn(r.db, tx).ExecContext(ctx, query, user.ID, user.RollNo, user.UserName, user.Email, user.HashedPassword, user.IsActive)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Conflictf("User with this email or roll number already exists")
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) AssignRole(ctx context.Context, tx *sql.Tx, userID, role string) error {
	query := `INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
	          ON CONFLICT (user_id, role_name) DO NOTHING`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, userID, role); err != nil {
		if common.IsForeignKeyViolation(err) {
			return common.Validationf("Unknown role %q", role)
		}
		return fmt.Errorf("pgUserRepository.AssignRole: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE email IN (` + placeholders(1, len(emails)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(emails)...)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.FindByEmails: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.FindByEmails scan: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) FindByRollNo(ctx context.Context, tx *sql.Tx, rollNo string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE roll_no = $1`
	user, err := scanUser(conn(r.db, tx).QueryRowContext(ctx, query, rollNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByRollNo: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) GetRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.GetRoles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("pgUserRepository.GetRoles scan: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgUserRepository) SetActive(ctx context.Context, tx *sql.Tx, userID string, active bool) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.SetActive: %w", err)
	}
	return rowsAffected(res, common.ErrNotFound)
}

func (r *pgUserRepository) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("pgUserRepository.DeleteByEmail: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("User not found"))
}

func (r *pgUserRepository) CountByRole(ctx context.Context) ([]model.RoleCount, error) {
	query := `SELECT ro.name, COUNT(ur.user_id)
	          FROM roles ro
	          LEFT JOIN user_roles ur ON ur.role_name = ro.name
	          GROUP BY ro.name
	          ORDER BY ro.name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.CountByRole: %w", err)
	}
	defer rows.Close()

	counts := []model.RoleCount{}
	for rows.Next() {
		var rc model.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, fmt.Errorf("pgUserRepository.CountByRole scan: %w", err)
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

func (r *pgUserRepository) ListStaff(ctx context.Context) ([]model.StaffSummary, error) {
	query := `SELECT u.id, u.user_name, u.email,
	                 (SELECT COUNT(*) FROM classroom_staff cs WHERE cs.staff_id = u.id),
	                 (SELECT COUNT(*) FROM tests t WHERE t.created_by = u.id)
	          FROM users u
	          JOIN user_roles ur ON ur.user_id = u.id AND ur.role_name = 'staff'
	          ORDER BY u.user_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListStaff: %w", err)
	}
	defer rows.Close()

	staff := []model.StaffSummary{}
	for rows.Next() {
		var s model.StaffSummary
		if err := rows.Scan(&s.ID, &s.UserName, &s.Email, &s.ClassroomCount, &s.TestCount); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListStaff scan: %w", err)
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}
