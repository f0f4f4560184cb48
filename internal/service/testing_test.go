package service

import (
	"testing"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/infrastructure/database"
	"appfinanceiro/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 内存 sqlite + 完整表结构
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	// 内存库每个连接各自独立，限制连接池避免表"消失"
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层 DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				PushNotification:  "push_notification",
				SubscriptionEvent: "subscription_event",
			},
		},
		Business: config.BusinessConfig{
			RefCodeMaxRetries: 3,
			MaxRetryCount:     3,
		},
	}
}

func seedUser(t *testing.T, db *gorm.DB, id, email string) {
	t.Helper()
	if err := db.Create(&model.User{ID: id, Email: email, Name: "Test " + id}).Error; err != nil {
		t.Fatalf("写入用户失败: %v", err)
	}
}

func seedCategory(t *testing.T, db *gorm.DB) *model.Category {
	t.Helper()
	category := &model.Category{Name: "Moradia", Icon: "home", Color: "#3366FF", Type: model.TransactionTypeExpense}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("写入分类失败: %v", err)
	}
	return category
}
