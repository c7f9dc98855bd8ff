package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/database"
	"igress/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockService keeps users.is_active and the user_blocks audit trail in step.
type BlockService struct {
	userRepo  repository.UserRepository
	blockRepo repository.BlockRepository
	tx        database.Transactor
	access    *AccessService
}

func NewBlockService(userRepo repository.UserRepository, blockRepo repository.BlockRepository, tx database.Transactor, access *AccessService) *BlockService {
	return &BlockService{userRepo: userRepo, blockRepo: blockRepo, tx: tx, access: access}
}

type BlockRequest struct {
	Reason string `json:"reason"`
}

// Block deactivates the user with rollNo. classroomTestID is set when a supervisor blocks during a test.
func (s *BlockService) Block(ctx context.Context, actorID, rollNo, reason string, classroomTestID *string) (*model.Block, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return nil, common.Validationf("Roll number is required")
	}

	var block *model.Block
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		user, err := s.userRepo.FindByRollNo(ctx, tx, rollNo)
		if errors.Is(err, common.ErrNotFound) {
			return common.NotFoundf("Student with given Roll Number doesn't exists.")
		}
		if err != nil {
			return err
		}
		active, err := s.blockRepo.CountActiveForUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return common.Conflictf("Student is already blocked")
		}
		if err := s.userRepo.SetActive(ctx, tx, user.ID, false); err != nil {
			return err
		}
		block = &model.Block{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			RollNo:          user.RollNo,
			UserName:        user.UserName,
			Email:           user.Email,
			Reason:          reason,
			BlockedBy:       actorID,
			ClassroomTestID: classroomTestID,
		}
		return s.blockRepo.Create(ctx, tx, block)
	})
	if err != nil {
		return nil, err
	}

	s.access.Invalidate(ctx, block.UserID)
	logger.Log.Info("user blocked",
		zap.String("user_id", block.UserID),
		zap.String("blocked_by", actorID),
		zap.String("block_id", block.ID))
	return block, nil
}

// Unblock closes one block. The user is reactivated once no active block remains.
func (s *BlockService) Unblock(ctx context.Context, actorID, blockID string) error {
	var userID string
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		b, err := s.blockRepo.FindActiveByID(ctx, tx, blockID)
		if err != nil {
			return err
		}
		userID = b.UserID
		if err := s.blockRepo.Deactivate(ctx, tx, blockID, actorID); err != nil {
			return err
		}
		remaining, err := s.blockRepo.CountActiveForUser(ctx, tx, b.UserID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return s.userRepo.SetActive(ctx, tx, b.UserID, true)
	})
	if err != nil {
		return err
	}

	s.access.Invalidate(ctx, userID)
	logger.Log.Info("user unblocked", zap.String("user_id", userID), zap.String("block_id", blockID))
	return nil
}

func (s *BlockService) ListBlocked(ctx context.Context) ([]model.Block, error) {
	return s.blockRepo.ListActive(ctx)
}
