package service

import (
	"context"
	"errors"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/logger"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

type SupervisorService struct {
	testRepo       repository.TestRepository
	attendanceRepo repository.AttendanceRepository
	classroomRepo  repository.ClassroomRepository
	userRepo       repository.UserRepository
	blocks         *BlockService
}

func NewSupervisorService(
	testRepo repository.TestRepository,
	attendanceRepo repository.AttendanceRepository,
	classroomRepo repository.ClassroomRepository,
	userRepo repository.UserRepository,
	blocks *BlockService,
) *SupervisorService {
	return &SupervisorService{
		testRepo:       testRepo,
		attendanceRepo: attendanceRepo,
		classroomRepo:  classroomRepo,
		userRepo:       userRepo,
		blocks:         blocks,
	}
}

func (s *SupervisorService) SupervisedTests(ctx context.Context, supervisorID string) ([]model.SupervisedTest, error) {
	return s.testRepo.ListSupervisedTests(ctx, supervisorID)
}

// supervise loads the schedule and checks the caller supervises it. Staff and admins may act on any test.
func (s *SupervisorService) supervise(ctx context.Context, callerID string, roles []string, classroomTestID string) (*model.ClassroomTest, error) {
	ct, err := s.testRepo.FindScheduleByID(ctx, classroomTestID)
	if err != nil {
		return nil, err
	}
	if ct.SupervisorID != nil && *ct.SupervisorID == callerID {
		return ct, nil
	}
	if mapset.NewSet(roles...).ContainsAny(model.RoleAdmin, model.RoleStaff) {
		return ct, nil
	}
	return nil, common.Forbiddenf("Not the supervisor of this test")
}

// enrolledStudent rejects targets that are not students of the test's classroom.
func (s *SupervisorService) enrolledStudent(ctx context.Context, ct *model.ClassroomTest, userID string) error {
	roles, err := s.userRepo.GetRoles(ctx, userID)
	if err != nil {
		return err
	}
	if !mapset.NewSet(roles...).Contains(model.RoleStudent) {
		return common.NotFoundf("Student is not a part of the classroom")
	}
	member, err := s.classroomRepo.IsMember(ctx, ct.ClassroomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return common.NotFoundf("Student is not a part of the classroom")
	}
	return nil
}

func (s *SupervisorService) MarkAttendance(ctx context.Context, callerID string, roles []string, classroomTestID, studentID string, present bool) error {
	ct, err := s.supervise(ctx, callerID, roles, classroomTestID)
	if err != nil {
		return err
	}
	if err := s.enrolledStudent(ctx, ct, studentID); err != nil {
		return err
	}
	if err := s.attendanceRepo.Mark(ctx, ct.ID, studentID, present); err != nil {
		return err
	}
	logger.Log.Info("attendance marked",
		zap.String("classroom_test_id", ct.ID),
		zap.String("student_id", studentID),
		zap.Bool("present", present))
	return nil
}

type TabSwitchResponse struct {
	TabSwitchCount int `json:"tab_switch_count"`
}

// RecordTabSwitch is reported by the student's own client during a test.
func (s *SupervisorService) RecordTabSwitch(ctx context.Context, studentID, classroomTestID string) (*TabSwitchResponse, error) {
	ct, err := s.testRepo.FindScheduleByID(ctx, classroomTestID)
	if err != nil {
		return nil, err
	}
	member, err := s.classroomRepo.IsMember(ctx, ct.ClassroomID, studentID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, common.Forbiddenf("Not a member of this classroom")
	}
	n, err := s.attendanceRepo.IncrementTabSwitch(ctx, ct.ID, studentID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("tab switch recorded",
		zap.String("classroom_test_id", ct.ID),
		zap.String("student_id", studentID),
		zap.Int("count", n))
	return &TabSwitchResponse{TabSwitchCount: n}, nil
}

func (s *SupervisorService) Attendance(ctx context.Context, callerID string, roles []string, classroomTestID string) ([]model.Attendance, error) {
	ct, err := s.supervise(ctx, callerID, roles, classroomTestID)
	if err != nil {
		return nil, err
	}
	return s.attendanceRepo.List(ctx, ct.ID)
}

// BlockStudent blocks for misconduct during a supervised test.
func (s *SupervisorService) BlockStudent(ctx context.Context, callerID string, roles []string, classroomTestID, rollNo, reason string) (*model.Block, error) {
	ct, err := s.supervise(ctx, callerID, roles, classroomTestID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByRollNo(ctx, nil, rollNo)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFoundf("Student with given Roll Number doesn't exists.")
		}
		return nil, err
	}
	if err := s.enrolledStudent(ctx, ct, user.ID); err != nil {
		return nil, err
	}
	return s.blocks.Block(ctx, callerID, rollNo, reason, &ct.ID)
}
