package service

import (
	"context"
	"time"

	"igress/internal/app/grading"
	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
)

type StudentService struct {
	classroomRepo repository.ClassroomRepository
	testRepo      repository.TestRepository
	now           func() time.Time
}

func NewStudentService(classroomRepo repository.ClassroomRepository, testRepo repository.TestRepository) *StudentService {
	return &StudentService{classroomRepo: classroomRepo, testRepo: testRepo, now: time.Now}
}

type ClassroomTitle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *StudentService) Classrooms(ctx context.Context, studentID string) ([]model.Classroom, error) {
	return s.classroomRepo.ListForUser(ctx, studentID)
}

func (s *StudentService) requireMember(ctx context.Context, studentID, classroomID string) error {
	ok, err := s.classroomRepo.IsMember(ctx, classroomID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return common.NotFoundf("Classroom not found")
	}
	return nil
}

func (s *StudentService) ClassroomTitle(ctx context.Context, studentID, classroomID string) (*ClassroomTitle, error) {
	if err := s.requireMember(ctx, studentID, classroomID); err != nil {
		return nil, err
	}
	c, err := s.classroomRepo.FindByID(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	return &ClassroomTitle{ID: c.ID, Name: c.Name}, nil
}

func (s *StudentService) StaffDetails(ctx context.Context, studentID, classroomID string) ([]model.Member, error) {
	if err := s.requireMember(ctx, studentID, classroomID); err != nil {
		return nil, err
	}
	return s.classroomRepo.ListStaff(ctx, classroomID)
}

func (s *StudentService) annotate(schedules []repository.StudentSchedule) []model.StudentTest {
	now := s.now()
	tests := make([]model.StudentTest, 0, len(schedules))
	for i := range schedules {
		sc := &schedules[i]
		tests = append(tests, model.StudentTest{
			ClassroomTest: sc.ClassroomTest,
			Status:        grading.StudentTestStatus(now, &sc.ClassroomTest, sc.Present, sc.Submitted),
		})
	}
	return tests
}

// ClassroomTests lists every test scheduled in the classroom with the student's status.
func (s *StudentService) ClassroomTests(ctx context.Context, studentID, classroomID string) ([]model.StudentTest, error) {
	if err := s.requireMember(ctx, studentID, classroomID); err != nil {
		return nil, err
	}
	schedules, err := s.testRepo.ListStudentSchedules(ctx, studentID, classroomID)
	if err != nil {
		return nil, err
	}
	return s.annotate(schedules), nil
}

func (s *StudentService) byStatus(ctx context.Context, studentID string, want model.TestStatus) ([]model.StudentTest, error) {
	schedules, err := s.testRepo.ListStudentSchedules(ctx, studentID, "")
	if err != nil {
		return nil, err
	}
	out := []model.StudentTest{}
	for _, t := range s.annotate(schedules) {
		if t.Status == want {
			out = append(out, t)
		}
	}
	return out, nil
}

// OngoingTests are open right now and not yet submitted.
func (s *StudentService) OngoingTests(ctx context.Context, studentID string) ([]model.StudentTest, error) {
	return s.byStatus(ctx, studentID, model.TestOngoing)
}

func (s *StudentService) UpcomingTests(ctx context.Context, studentID string) ([]model.StudentTest, error) {
	return s.byStatus(ctx, studentID, model.TestUpcoming)
}
