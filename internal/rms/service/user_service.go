package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService 用户管理服务。仅OWNER可管理账号。
type UserService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// CreateUserReq 创建用户请求
type CreateUserReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Create 创建STAFF或CUSTOMER账号，邮箱重复返回冲突
func (s *UserService) Create(ctx context.Context, req CreateUserReq, op Operator) (*entity.User, error) {
	if op.Role != entity.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can manage users", ErrForbidden)
	}
	if req.Role != entity.RoleStaff && req.Role != entity.RoleCustomer {
		return nil, fmt.Errorf("%w: role must be STAFF or CUSTOMER", ErrValidation)
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email %s already registered", ErrConflict, req.Email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:           newID(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
		Status:       entity.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
		zap.String("operator", op.UserID))

	return user, nil
}

// ListUsersReq 用户列表请求
type ListUsersReq struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
	Status   string
}

// List 用户列表，仅OWNER可查
func (s *UserService) List(ctx context.Context, req ListUsersReq, op Operator) ([]entity.User, int64, error) {
	if op.Role != entity.RoleOwner {
		return nil, 0, fmt.Errorf("%w: only the owner can manage users", ErrForbidden)
	}
	filters := map[string]interface{}{
		"keyword": req.Keyword,
		"role":    req.Role,
		"status":  req.Status,
	}
	return s.userRepo.List(ctx, req.Page, req.PageSize, filters)
}

// SetStatus 启用/禁用账号
func (s *UserService) SetStatus(ctx context.Context, userID, status string, op Operator) (*entity.User, error) {
	if op.Role != entity.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can manage users", ErrForbidden)
	}
	if status != entity.UserStatusActive && status != entity.UserStatusDisabled {
		return nil, fmt.Errorf("%w: invalid status %s", ErrValidation, status)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	if user.ID == op.UserID {
		return nil, fmt.Errorf("%w: cannot change own status", ErrValidation)
	}

	user.Status = status
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}
