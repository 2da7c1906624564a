package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
	"recruitflow/pkg/rbac"
	"recruitflow/pkg/util"
)

// Service handles staff registration and login.
type Service struct {
	staff     repository.StaffStore
	jwtSecret string
	logger    *zap.Logger
}

func NewService(staff repository.StaffStore, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		staff:     staff,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Register creates a staff account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*model.StaffUser, error) {
	if !rbac.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.StaffUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.staff.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Staff user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
	)

	return user, nil
}

// Login verifies the credentials and issues a JWT.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.StaffUser, error) {
	user, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", nil, model.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !util.CheckPassword(user.PasswordHash, password) {
		return "", nil, model.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user.ID, user.Role, s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, user, nil
}
