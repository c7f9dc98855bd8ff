package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"igress/internal/common"
	"igress/internal/domain/model"
)

type BlockRepository interface {
	Create(ctx context.Context, tx *sql.Tx, b *model.Block) error
	FindActiveByID(ctx context.Context, tx *sql.Tx, blockID string) (*model.Block, error)
	Deactivate(ctx context.Context, tx *sql.Tx, blockID, unblockedBy string) error
	CountActiveForUser(ctx context.Context, tx *sql.Tx, userID string) (int, error)
	ListActive(ctx context.Context) ([]model.Block, error)
}

type pgBlockRepository struct {
	db *sql.DB
}

func NewPgBlockRepository(db *sql.DB) BlockRepository {
	return &pgBlockRepository{db: db}
}

func (r *pgBlockRepository) Create(ctx context.Context, tx *sql.Tx, b *model.Block) error {
	query := `INSERT INTO user_blocks (id, user_id, block_reason, blocked_by, classroom_test_id, is_active)
	          VALUES ($1, $2, $3, $4, $5, TRUE)
	          RETURNING blocked_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, b.ID, b.UserID, b.Reason, b.BlockedBy, b.ClassroomTestID).Scan(&b.BlockedAt)
	if err != nil {
		return fmt.Errorf("pgBlockRepository.Create: %w", err)
	}
	b.IsActive = true
	return nil
}

// FindActiveByID locks the row when called inside a transaction.
func (r *pgBlockRepository) FindActiveByID(ctx context.Context, tx *sql.Tx, blockID string) (*model.Block, error) {
	query := `SELECT id, user_id, block_reason, blocked_by, classroom_test_id, is_active, blocked_at
	          FROM user_blocks WHERE id = $1 AND is_active`
	if tx != nil {
		query += ` FOR UPDATE`
	}
	b := &model.Block{}
	err := conn(r.db, tx).QueryRowContext(ctx, query, blockID).Scan(
		&b.ID, &b.UserID, &b.Reason, &b.BlockedBy, &b.ClassroomTestID, &b.IsActive, &b.BlockedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFoundf("Active block not found")
		}
		return nil, fmt.Errorf("pgBlockRepository.FindActiveByID: %w", err)
	}
	return b, nil
}

func (r *pgBlockRepository) Deactivate(ctx context.Context, tx *sql.Tx, blockID, unblockedBy string) error {
	query := `UPDATE user_blocks SET is_active = FALSE, unblocked_by = $1, unblocked_at = NOW()
	          WHERE id = $2 AND is_active`
	res, err := conn(r.db, tx).ExecContext(ctx, query, unblockedBy, blockID)
	if err != nil {
		return fmt.Errorf("pgBlockRepository.Deactivate: %w", err)
	}
	return rowsAffected(res, common.NotFoundf("Active block not found"))
}

func (r *pgBlockRepository) CountActiveForUser(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var n int
	err := conn(r.db, tx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_blocks WHERE user_id = $1 AND is_active`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgBlockRepository.CountActiveForUser: %w", err)
	}
	return n, nil
}

func (r *pgBlockRepository) ListActive(ctx context.Context) ([]model.Block, error) {
	query := `SELECT b.id, b.user_id, u.roll_no, u.user_name, u.email, b.block_reason, b.blocked_by,
	                 b.classroom_test_id, b.is_active, b.blocked_at
	          FROM user_blocks b
	          JOIN users u ON u.id = b.user_id
	          JOIN user_roles ur ON ur.user_id = u.id AND ur.role_name = 'student'
	          WHERE b.is_active
	          ORDER BY b.blocked_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgBlockRepository.ListActive: %w", err)
	}
	defer rows.Close()

	blocks := []model.Block{}
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.UserID, &b.RollNo, &b.UserName, &b.Email, &b.Reason, &b.BlockedBy,
			&b.ClassroomTestID, &b.IsActive, &b.BlockedAt); err != nil {
			return nil, fmt.Errorf("pgBlockRepository.ListActive scan: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
