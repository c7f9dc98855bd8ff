package service

import (
	"context"
	"strings"
	"time"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TestService struct {
	testRepo repository.TestRepository
}

func NewTestService(testRepo repository.TestRepository) *TestService {
	return &TestService{testRepo: testRepo}
}

type TestRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	DurationInMinutes int    `json:"duration_in_minutes"`
}

type ScheduleRequest struct {
	ClassroomID  string    `json:"classroom_id"`
	TestID       string    `json:"test_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	SupervisorID *string   `json:"supervisor_id"`
}

func (s *TestService) Create(ctx context.Context, creatorID string, req TestRequest) (*model.Test, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.DurationInMinutes <= 0 {
		return nil, common.Validationf("Title and a positive duration are required")
	}
	t := &model.Test{
		ID:                uuid.NewString(),
		Title:             title,
		Description:       req.Description,
		DurationInMinutes: req.DurationInMinutes,
		CreatedBy:         creatorID,
	}
	if err := s.testRepo.CreateTest(ctx, t); err != nil {
		return nil, err
	}
	logger.Log.Info("test created", zap.String("test_id", t.ID))
	return t, nil
}

// Update applies only the fields present in req.
func (s *TestService) Update(ctx context.Context, id string, req TestRequest) (*model.Test, error) {
	t, err := s.testRepo.FindTestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		t.Title = title
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.DurationInMinutes < 0 {
		return nil, common.Validationf("Duration must be positive")
	}
	if req.DurationInMinutes > 0 {
		t.DurationInMinutes = req.DurationInMinutes
	}
	if err := s.testRepo.UpdateTest(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TestService) Delete(ctx context.Context, id string) error {
	return s.testRepo.DeleteTest(ctx, id)
}

func (s *TestService) Get(ctx context.Context, id string) (*model.Test, error) {
	return s.testRepo.FindTestByID(ctx, id)
}

func (s *TestService) List(ctx context.Context, createdBy string) ([]model.Test, error) {
	return s.testRepo.ListTests(ctx, createdBy)
}

func (s *TestService) Schedule(ctx context.Context, creatorID string, req ScheduleRequest) (*model.ClassroomTest, error) {
	if req.ClassroomID == "" || req.TestID == "" || req.ScheduledAt.IsZero() {
		return nil, common.Validationf("Classroom ID, Test ID, and Scheduled Time are required")
	}
	ct := &model.ClassroomTest{
		ID:           uuid.NewString(),
		ClassroomID:  req.ClassroomID,
		TestID:       req.TestID,
		ScheduledAt:  req.ScheduledAt.UTC(),
		CreatedBy:    creatorID,
		SupervisorID: req.SupervisorID,
	}
	if err := s.testRepo.CreateSchedule(ctx, ct); err != nil {
		return nil, err
	}
	logger.Log.Info("test scheduled",
		zap.String("classroom_test_id", ct.ID), zap.String("classroom_id", ct.ClassroomID), zap.Time("scheduled_at", ct.ScheduledAt))
	return ct, nil
}

func (s *TestService) UpdateSchedule(ctx context.Context, classroomID, testID string, req ScheduleRequest) (*model.ClassroomTest, error) {
	ct, err := s.testRepo.FindScheduleByPair(ctx, classroomID, testID)
	if err != nil {
		return nil, err
	}
	if !req.ScheduledAt.IsZero() {
		ct.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.SupervisorID != nil {
		ct.SupervisorID = req.SupervisorID
	}
	if err := s.testRepo.UpdateSchedule(ctx, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *TestService) CancelSchedule(ctx context.Context, classroomID, testID string) error {
	ct, err := s.testRepo.FindScheduleByPair(ctx, classroomID, testID)
	if err != nil {
		return err
	}
	return s.testRepo.DeleteSchedule(ctx, ct.ID)
}

func (s *TestService) GetSchedule(ctx context.Context, classroomID, testID string) (*model.ClassroomTest, error) {
	return s.testRepo.FindScheduleByPair(ctx, classroomID, testID)
}

func (s *TestService) ListSchedules(ctx context.Context, classroomID string) ([]model.ClassroomTest, error) {
	return s.testRepo.ListSchedulesByClassroom(ctx, classroomID)
}
