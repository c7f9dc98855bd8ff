package service

import (
	"context"

	"igress/internal/domain/model"
	"igress/internal/domain/repository"
)

type AdminService struct {
	userRepo repository.UserRepository
	*BlockService
}

func NewAdminService(userRepo repository.UserRepository, blocks *BlockService) *AdminService {
	return &AdminService{userRepo: userRepo, BlockService: blocks}
}

type DashboardResponse struct {
	Counts map[string]int `json:"counts"`
}

// Dashboard reports the number of users per role. Roles without users report zero.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	rows, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(model.KnownRoles))
	for _, role := range model.KnownRoles {
		counts[role] = 0
	}
	for _, rc := range rows {
		counts[rc.Role] = rc.Count
	}
	return &DashboardResponse{Counts: counts}, nil
}

func (s *AdminService) ListStaff(ctx context.Context) ([]model.StaffSummary, error) {
	return s.userRepo.ListStaff(ctx)
}
