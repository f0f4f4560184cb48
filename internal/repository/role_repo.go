package repository

import (
	"context"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// HasRole 查询用户是否持有指定角色
// 角色行由运营侧直接维护，这里只做存在性判断
func (r *RoleRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
