package repository

import (
	"context"
	"errors"
	"time"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReminderNotFound = errors.New("提醒不存在")

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *ReminderRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Reminder, int64, error) {
	var reminders []*model.Reminder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Reminder{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("notify_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reminders).Error

	return reminders, total, err
}

// Cancel 取消尚未发送的提醒，按用户范围限定
func (r *ReminderRepository) Cancel(ctx context.Context, userID string, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.ReminderStatusPending).
		Update("status", model.ReminderStatusCanceled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// GetDue 到期未发送的提醒，供通知任务批量拉取
func (r *ReminderRepository) GetDue(ctx context.Context, before time.Time, limit int) ([]*model.Reminder, error) {
	var reminders []*model.Reminder
	err := r.db.WithContext(ctx).
		Where("status = ? AND notify_at <= ?", model.ReminderStatusPending, before).
		Limit(limit).
		Find(&reminders).Error
	return reminders, err
}

func (r *ReminderRepository) MarkSent(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ?", id).
		Update("status", model.ReminderStatusSent).Error
}

// ============================================================
// 推送令牌
// ============================================================

// UpsertToken 注册设备令牌，重复注册只刷新时间戳
func (r *ReminderRepository) UpsertToken(ctx context.Context, token *model.NotificationToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"platform", "updated_at"}),
		}).
		Create(token).Error
}

func (r *ReminderRepository) ListTokensByUser(ctx context.Context, userID string) ([]*model.NotificationToken, error) {
	var tokens []*model.NotificationToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&tokens).Error
	return tokens, err
}
