package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// 订阅 / 套餐
// ============================================================

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Plan 套餐表
// ProcessorPriceID 是支付处理器侧的价格标识，回调时据此定位套餐
type Plan struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProcessorPriceID string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"processor_price_id"`
	Name             string          `gorm:"type:varchar(64);not null" json:"name"`
	Period           string          `gorm:"type:varchar(16);not null" json:"period"` // monthly / yearly
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Plan) TableName() string {
	return "tbl_planos"
}

// Subscription 用户订阅表
// 由支付处理器的 webhook 事件驱动写入，一个用户至多一条
type Subscription struct {
	ID                      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                  string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	ProcessorCustomerID     string    `gorm:"type:varchar(64);index" json:"processor_customer_id"`
	ProcessorSubscriptionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"processor_subscription_id"`
	PlanID                  int64     `gorm:"index" json:"plan_id"`
	Plan                    *Plan     `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status                  string    `gorm:"type:varchar(16);index;not null" json:"status"`
	CurrentPeriodEnd        time.Time `json:"current_period_end"`
	CancelAtPeriodEnd       bool      `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "poupeja_subscriptions"
}
