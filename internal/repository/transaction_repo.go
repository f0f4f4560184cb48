package repository

import (
	"context"
	"errors"
	"time"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("交易不存在")
	ErrEmptyUpdate         = errors.New("更新内容为空")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

// GetByID 按用户范围查询，普通接口只能访问自己的交易
func (r *TransactionRepository) GetByID(ctx context.Context, userID string, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetWithCategory 查询交易并带出分类的名称/图标/颜色
func (r *TransactionRepository) GetWithCategory(ctx context.Context, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// Update 按用户范围的部分更新
func (r *TransactionRepository) Update(ctx context.Context, userID string, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return ErrEmptyUpdate
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 重复应用相同的更新也会返回 0 行，需要区分"不存在"和"无变化"
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Transaction{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTransactionNotFound
		}
	}
	return nil
}

// UpdateAny 不带用户范围的部分更新，仅供管理员链路使用
func (r *TransactionRepository) UpdateAny(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return ErrEmptyUpdate
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Transaction{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTransactionNotFound
		}
	}
	return nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, from, to *time.Time, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date < ?", *to)
	}

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Preload("Category").
		Order("date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// MaxReferenceCode 当前表内最大的参考编号，空表返回 0
func (r *TransactionRepository) MaxReferenceCode(ctx context.Context) (int64, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).
		Order("reference_code DESC").
		Limit(1).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return trans.ReferenceCode, nil
}
