package repository

import (
	"context"
	"errors"
	"time"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
)

var ErrScheduledNotFound = errors.New("计划交易不存在")

type ScheduledRepository struct {
	db *gorm.DB
}

func NewScheduledRepository(db *gorm.DB) *ScheduledRepository {
	return &ScheduledRepository{db: db}
}

func (r *ScheduledRepository) Create(ctx context.Context, tx *gorm.DB, scheduled *model.ScheduledTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(scheduled).Error
}

func (r *ScheduledRepository) GetByID(ctx context.Context, userID string, id int64) (*model.ScheduledTransaction, error) {
	var scheduled model.ScheduledTransaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&scheduled).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduledNotFound
		}
		return nil, err
	}
	return &scheduled, nil
}

func (r *ScheduledRepository) Update(ctx context.Context, userID string, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return ErrEmptyUpdate
	}

	result := r.db.WithContext(ctx).
		Model(&model.ScheduledTransaction{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.ScheduledTransaction{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrScheduledNotFound
		}
	}
	return nil
}

func (r *ScheduledRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.ScheduledTransaction, int64, error) {
	var scheduled []*model.ScheduledTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ScheduledTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("next_run_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&scheduled).Error

	return scheduled, total, err
}

// GetDue 到期且未暂停的计划交易，供后台物化任务批量拉取
func (r *ScheduledRepository) GetDue(ctx context.Context, before time.Time, limit int) ([]*model.ScheduledTransaction, error) {
	var scheduled []*model.ScheduledTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND paused = ? AND next_run_at <= ?", model.ScheduledStatusActive, false, before).
		Limit(limit).
		Find(&scheduled).Error
	return scheduled, err
}

// Advance 推进下一次执行时间（周期任务物化成功后调用）
func (r *ScheduledRepository) Advance(ctx context.Context, tx *gorm.DB, id int64, nextRun time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.ScheduledTransaction{}).
		Where("id = ?", id).
		Update("next_run_at", nextRun).Error
}

// MarkDone 一次性计划交易物化后收尾
func (r *ScheduledRepository) MarkDone(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.ScheduledTransaction{}).
		Where("id = ?", id).
		Update("status", model.ScheduledStatusDone).Error
}

// MaxReferenceCode 当前表内最大的参考编号，空表返回 0
func (r *ScheduledRepository) MaxReferenceCode(ctx context.Context) (int64, error) {
	var scheduled model.ScheduledTransaction
	err := r.db.WithContext(ctx).
		Order("reference_code DESC").
		Limit(1).
		First(&scheduled).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return scheduled.ReferenceCode, nil
}
