package service

import (
	"context"
	"fmt"

	"igress/internal/domain/repository"
	"igress/internal/platform/cache"
	"igress/internal/platform/logger"

	"go.uber.org/zap"
)

// AccessService resolves who a token holder is allowed to act as.
type AccessService struct {
	userRepo repository.UserRepository
	cache    cache.PrincipalCache
}

// NewAccessService accepts a nil cache, in which case every lookup hits the database.
func NewAccessService(userRepo repository.UserRepository, c cache.PrincipalCache) *AccessService {
	return &AccessService{userRepo: userRepo, cache: c}
}

func (s *AccessService) Resolve(ctx context.Context, userID string) (*cache.Principal, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, userID)
		if err != nil {
			logger.Log.Warn("principal cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if p != nil {
			return p, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	roles, err := s.userRepo.GetRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}
	p := &cache.Principal{Roles: roles, IsActive: user.IsActive}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, p); err != nil {
			logger.Log.Warn("principal cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return p, nil
}

// Invalidate drops the cached principal after roles or the active flag change.
func (s *AccessService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.Log.Warn("principal cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
