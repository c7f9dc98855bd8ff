package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"igress/internal/common"
	"igress/internal/common/security"
	"igress/internal/domain/model"
	"igress/internal/domain/repository"
	"igress/internal/platform/database"
	"igress/internal/platform/logger"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var knownRoles = mapset.NewSet(model.KnownRoles...)

type AuthService struct {
	userRepo repository.UserRepository
	tx       database.Transactor
}

func NewAuthService(userRepo repository.UserRepository, tx database.Transactor) *AuthService {
	return &AuthService{userRepo: userRepo, tx: tx}
}

type RegisterRequest struct {
	RollNo   string `json:"roll_no"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	Roles   []string `json:"roles"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.RollNo = strings.TrimSpace(req.RollNo)
	if req.RollNo == "" || req.Email == "" || req.Password == "" {
		return nil, common.Validationf("Roll number, email and password are required")
	}
	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	if !knownRoles.Contains(req.Role) {
		return nil, common.Validationf("Unknown role %q", req.Role)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		RollNo:         req.RollNo,
		UserName:       req.UserName,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		IsActive:       true,
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		return s.userRepo.AssignRole(ctx, tx, user.ID, req.Role)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", req.Role))
	return &RegisterResponse{Message: "User registered", UserID: user.ID}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, common.Validationf("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrAccountBlocked
	}

	roles, err := s.userRepo.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &LoginResponse{Message: "Logged in successfully", Token: token, Roles: roles}, nil
}

func (s *AuthService) RemoveUser(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return common.Validationf("Email is required")
	}
	if err := s.userRepo.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	logger.Log.Info("user removed", zap.String("email", email))
	return nil
}
