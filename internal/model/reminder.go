package model

import (
	"time"
)

// ============================================================
// 提醒 / 推送令牌
// ============================================================

const (
	ReminderStatusPending  = "pending"
	ReminderStatusSent     = "sent"
	ReminderStatusCanceled = "canceled"
)

// Reminder 提醒表（lembrete）
// 到期的 pending 提醒由后台任务转换成推送消息
type Reminder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(128);not null" json:"title"`
	Body      string    `gorm:"type:varchar(512)" json:"body"`
	NotifyAt  time.Time `gorm:"index;not null" json:"notify_at"`
	Status    string    `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reminder) TableName() string {
	return "tbl_lembrete"
}

// NotificationToken 设备推送令牌表
// 同一用户同一令牌只保留一条，重复注册按 upsert 处理
type NotificationToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index:idx_user_token,unique;not null" json:"user_id"`
	Token     string    `gorm:"type:varchar(255);index:idx_user_token,unique;not null" json:"token"`
	Platform  string    `gorm:"type:varchar(16)" json:"platform"` // ios / android / web
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (NotificationToken) TableName() string {
	return "notification_tokens"
}
