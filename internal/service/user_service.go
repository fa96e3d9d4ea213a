package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opsconsole/internal/apperror"
	"opsconsole/internal/model"
	"opsconsole/internal/repository"
	"opsconsole/internal/validation"
)

type CreateUserRequest struct {
	FullName string `json:"full_name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required,oneof=staff ceo admin"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]model.User, int64, error)
	// EnsureBootstrapAdmin creates the first approver if the e-mail is unknown.
	EnsureBootstrapAdmin(ctx context.Context, email, fullName string) error
}

type userService struct {
	repo  repository.UserRepository
	audit repository.AuditRepository
	log   *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, audit repository.AuditRepository, log *zap.Logger) UserService {
	return &userService{repo: repo, audit: audit, log: named(log, "user")}
}

func (s *userService) CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.NewValidation("email", "is already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	user := &model.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	var by *model.Actor
	if actor.ID != uuid.Nil {
		by = &actor
	}
	s.auditCreate(ctx, by, user)
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit)
}

func (s *userService) EnsureBootstrapAdmin(ctx context.Context, email, fullName string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	if fullName == "" {
		fullName = "Administrator"
	}
	user := &model.User{FullName: fullName, Email: email, Role: model.RoleAdmin}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap admin created", zap.String("email", user.Email))
	s.auditCreate(ctx, nil, user)
	return nil
}

func (s *userService) auditCreate(ctx context.Context, by *model.Actor, user *model.User) {
	entry := &model.AuditLog{
		Action:     model.ActionCreateUser,
		EntityKind: "user",
		EntityID:   user.ID.String(),
		EntityName: user.FullName,
		Details:    fmt.Sprintf(`{"role":%q}`, user.Role),
	}
	if by != nil {
		entry.UserID = &by.ID
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("failed to audit user creation", zap.Error(err))
	}
}
