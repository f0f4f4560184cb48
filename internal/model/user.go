package model

import (
	"time"
)

// User 用户表
// ID 由外部认证平台签发（UUID），本服务只读不造
type User struct {
	ID           string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string        `gorm:"type:varchar(128)" json:"name"`
	Phone        string        `gorm:"type:varchar(32)" json:"phone"`
	Subscription *Subscription `gorm:"foreignKey:UserID" json:"subscription,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "poupeja_users"
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleAssignment 角色授权表
// 存在 (user_id, "admin") 行即代表管理员权限
// 行的增删由运营后台直接操作数据库完成，本服务只读
type RoleAssignment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index:idx_user_role,unique;not null" json:"user_id"`
	Role      string    `gorm:"type:varchar(32);index:idx_user_role,unique;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RoleAssignment) TableName() string {
	return "user_roles"
}
