package repository

import (
	"context"
	"errors"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
)

var ErrCategoryNotFound = errors.New("分类不存在")

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// ListForUser 系统默认分类 + 用户自建分类
func (r *CategoryRepository) ListForUser(ctx context.Context, userID string) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.WithContext(ctx).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("name").
		Find(&categories).Error
	return categories, err
}
