package service

import (
	"context"

	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"

	"gorm.io/gorm"
)

type UserService struct {
	userRepo *repository.UserRepository
	db       *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		userRepo: repository.NewUserRepository(db),
		db:       db,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// AdminListUsers 管理端全量用户列表
// 必须走在管理员中间件之后，服务层不再重复校验角色
func (s *UserService) AdminListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return s.userRepo.ListAll(ctx, page, pageSize)
}
