package model

import (
	"time"
)

// Category 收支分类表
// UserID 为空表示系统默认分类，对所有用户可见
type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Icon      string    `gorm:"type:varchar(64)" json:"icon"`
	Color     string    `gorm:"type:varchar(16)" json:"color"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"` // income / expense
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "poupeja_categories"
}
