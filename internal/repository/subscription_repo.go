package repository

import (
	"context"
	"errors"

	"appfinanceiro/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound = errors.New("订阅不存在")
	ErrPlanNotFound         = errors.New("套餐不存在")
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByProcessorSubID(ctx context.Context, processorSubID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("processor_subscription_id = ?", processorSubID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Upsert 按处理器订阅ID幂等写入
// 同一 webhook 事件重放时落到同一行，保证处理是幂等的
func (r *SubscriptionRepository) Upsert(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "processor_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id", "status", "current_period_end", "cancel_at_period_end", "processor_customer_id",
			}),
		}).
		Create(sub).Error
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, processorSubID, status string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("processor_subscription_id = ?", processorSubID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) GetPlanByPriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).
		Where("processor_price_id = ?", priceID).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
