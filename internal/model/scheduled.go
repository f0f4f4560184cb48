package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// 计划交易（未来/周期性支出收入）
// ============================================================

const (
	RecurrenceOnce    = "once"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

const (
	ScheduledStatusActive = "active"
	ScheduledStatusDone   = "done"
)

// ScheduledTransaction 计划交易表
// 到期后由后台任务物化成一笔 pending 交易，两者通过相同的
// ReferenceCode 关联
type ScheduledTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Type          string          `gorm:"type:varchar(16);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AccountName   string          `gorm:"type:varchar(64)" json:"account_name"`
	CategoryID    int64           `gorm:"index" json:"category_id"`
	Description   string          `gorm:"type:varchar(256)" json:"description"`
	ReferenceCode int64           `gorm:"uniqueIndex;not null" json:"reference_code"`
	Recurrence    string          `gorm:"type:varchar(16);not null;default:once" json:"recurrence"`
	NextRunAt     time.Time       `gorm:"index;not null" json:"next_run_at"`
	Paused        bool            `gorm:"not null;default:false" json:"paused"`
	Status        string          `gorm:"type:varchar(16);index;not null;default:active" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ScheduledTransaction) TableName() string {
	return "poupeja_scheduled_transactions"
}

// NextRunAfter 按周期计算下一次执行时间
func (s *ScheduledTransaction) NextRunAfter(from time.Time) time.Time {
	switch s.Recurrence {
	case RecurrenceDaily:
		return from.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return from.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}
