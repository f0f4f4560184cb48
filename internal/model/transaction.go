package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// 交易状态 / 类型常量
// ============================================================

const (
	TransactionStatusPending = "pending"
	TransactionStatusPaid    = "paid"
)

const (
	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"
)

// Transaction 交易表
// ReferenceCode 与 poupeja_scheduled_transactions 共用同一编号空间，
// 用于关联一笔交易和它对应的计划交易。两张表各自带唯一索引，
// 插入冲突时由服务层重新分配编号后重试
type Transaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Type          string          `gorm:"type:varchar(16);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AccountName   string          `gorm:"type:varchar(64)" json:"account_name"`
	CategoryID    int64           `gorm:"index" json:"category_id"`
	Category      *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	GoalID        *int64          `gorm:"index" json:"goal_id,omitempty"`
	Description   string          `gorm:"type:varchar(256)" json:"description"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	ReferenceCode int64           `gorm:"uniqueIndex;not null" json:"reference_code"`
	Status        string          `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "poupeja_transactions"
}
