package service

import (
	"context"
	"fmt"
	"strings"

	"igress/internal/common"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/logger"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type ClassroomService struct {
	classroomRepo repository.ClassroomRepository
	userRepo      repository.UserRepository
}

func NewClassroomService(classroomRepo repository.ClassroomRepository, userRepo repository.UserRepository) *ClassroomService {
	return &ClassroomService{classroomRepo: classroomRepo, userRepo: userRepo}
}

type ClassroomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// classroomSlug appends a short id so classrooms with equal names stay addressable.
func classroomSlug(name, id string) string {
	return slug.Make(name) + "-" + strings.SplitN(id, "-", 2)[0]
}

func (s *ClassroomService) Create(ctx context.Context, creatorID string, req ClassroomRequest) (*model.Classroom, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.Validationf("Name is required")
	}
	id := uuid.NewString()
	c := &model.Classroom{
		ID:          id,
		Name:        name,
		Slug:        classroomSlug(name, id),
		Description: req.Description,
		CreatedBy:   creatorID,
	}
	if err := s.classroomRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Log.Info("classroom created", zap.String("classroom_id", c.ID), zap.String("created_by", creatorID))
	return c, nil
}

func (s *ClassroomService) Update(ctx context.Context, id string, req ClassroomRequest) (*model.Classroom, error) {
	current, err := s.classroomRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" && name != current.Name {
		current.Name = name
		current.Slug = classroomSlug(name, current.ID)
	}
	if req.Description != "" {
		current.Description = req.Description
	}
	if err := s.classroomRepo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	return s.classroomRepo.Delete(ctx, id)
}

func (s *ClassroomService) Get(ctx context.Context, id string) (*model.Classroom, error) {
	return s.classroomRepo.FindByID(ctx, id)
}

func (s *ClassroomService) GetBySlug(ctx context.Context, sl string) (*model.Classroom, error) {
	return s.classroomRepo.FindBySlug(ctx, sl)
}

func (s *ClassroomService) ListAll(ctx context.Context) ([]model.Classroom, error) {
	return s.classroomRepo.ListAll(ctx)
}

func (s *ClassroomService) ListForUser(ctx context.Context, userID string) ([]model.Classroom, error) {
	return s.classroomRepo.ListForUser(ctx, userID)
}

func (s *ClassroomService) ListStaff(ctx context.Context, classroomID string) ([]model.Member, error) {
	return s.classroomRepo.ListStaff(ctx, classroomID)
}

func (s *ClassroomService) AddStaff(ctx context.Context, classroomID, staffEmail string) error {
	staffEmail = strings.TrimSpace(strings.ToLower(staffEmail))
	if staffEmail == "" {
		return common.Validationf("Staff email is required")
	}
	user, err := s.userRepo.FindByEmail(ctx, staffEmail)
	if err != nil {
		return common.NotFoundf("No staff member found with the provided email")
	}
	roles, err := s.userRepo.GetRoles(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("ClassroomService.AddStaff: %w", err)
	}
	if !mapset.NewSet(roles...).Contains(model.RoleStaff) {
		return common.NotFoundf("No staff member found with the provided email")
	}
	return s.classroomRepo.AddStaff(ctx, classroomID, user.ID)
}

func (s *ClassroomService) RemoveStaff(ctx context.Context, classroomID, staffID string) error {
	return s.classroomRepo.RemoveStaff(ctx, classroomID, staffID)
}

func (s *ClassroomService) ListStudents(ctx context.Context, classroomID string) ([]model.Member, error) {
	return s.classroomRepo.ListStudents(ctx, classroomID)
}

// AddStudents enrolls every registered student among emails and returns how many were added.
func (s *ClassroomService) AddStudents(ctx context.Context, classroomID string, emails []string) (int, error) {
	wanted := mapset.NewSet[string]()
	for _, e := range emails {
		if e = strings.TrimSpace(strings.ToLower(e)); e != "" {
			wanted.Add(e)
		}
	}
	if wanted.Cardinality() == 0 {
		return 0, common.Validationf("Student's email(s) is/are required")
	}

	users, err := s.userRepo.FindByEmails(ctx, wanted.ToSlice())
	if err != nil {
		return 0, fmt.Errorf("ClassroomService.AddStudents: %w", err)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		roles, err := s.userRepo.GetRoles(ctx, u.ID)
		if err != nil {
			return 0, fmt.Errorf("ClassroomService.AddStudents: %w", err)
		}
		if mapset.NewSet(roles...).Contains(model.RoleStudent) {
			ids = append(ids, u.ID)
		}
	}

	added, err := s.classroomRepo.AddStudents(ctx, classroomID, ids)
	if err != nil {
		return 0, err
	}
	if added == 0 {
		return 0, common.NotFoundf("No valid students found or all students are already added")
	}
	logger.Log.Info("students enrolled", zap.String("classroom_id", classroomID), zap.Int("added", added))
	return added, nil
}

func (s *ClassroomService) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	return s.classroomRepo.RemoveStudent(ctx, classroomID, studentID)
}
