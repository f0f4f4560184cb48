package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"
)

func TestNotifyDueFansOutPerToken(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	svc := NewReminderService(db, testConfig())

	if err := svc.RegisterToken(context.Background(), "user-1", "tok-ios", "ios"); err != nil {
		t.Fatalf("注册令牌失败: %v", err)
	}
	if err := svc.RegisterToken(context.Background(), "user-1", "tok-android", "android"); err != nil {
		t.Fatalf("注册令牌失败: %v", err)
	}

	reminder, err := svc.Create(context.Background(), "user-1", &CreateReminderRequest{
		Title:    "Pagar aluguel",
		Body:     "Vence hoje",
		NotifyAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("创建提醒失败: %v", err)
	}

	notified, err := svc.NotifyDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("推送入队失败: %v", err)
	}
	if notified != 1 {
		t.Fatalf("应处理 1 条提醒，实际 %d", notified)
	}

	// 每个设备令牌各展开一条发件箱消息
	var messages []model.OutboxMessage
	if err := db.Where("topic = ?", "push_notification").Find(&messages).Error; err != nil {
		t.Fatalf("查询发件箱失败: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("应入队 2 条推送消息，实际 %d", len(messages))
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(messages[0].Payload), &payload); err != nil {
		t.Fatalf("消息载荷不是合法 JSON: %v", err)
	}
	if payload["title"] != "Pagar aluguel" {
		t.Fatalf("载荷标题不符: %v", payload["title"])
	}

	var sent model.Reminder
	if err := db.First(&sent, reminder.ID).Error; err != nil {
		t.Fatalf("查询提醒失败: %v", err)
	}
	if sent.Status != model.ReminderStatusSent {
		t.Fatalf("提醒状态应为 sent，实际 %s", sent.Status)
	}

	// 已发送的提醒不再重复入队
	notified, err = svc.NotifyDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("二次扫描失败: %v", err)
	}
	if notified != 0 {
		t.Fatalf("已发送提醒不应重复处理，实际 %d", notified)
	}
}

func TestCancelOnlyPendingReminder(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	svc := NewReminderService(db, testConfig())

	reminder, err := svc.Create(context.Background(), "user-1", &CreateReminderRequest{
		Title:    "Revisar fatura",
		NotifyAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("创建提醒失败: %v", err)
	}

	if err := svc.Cancel(context.Background(), "user-1", reminder.ID); err != nil {
		t.Fatalf("取消失败: %v", err)
	}

	var canceled model.Reminder
	if err := db.First(&canceled, reminder.ID).Error; err != nil {
		t.Fatalf("查询提醒失败: %v", err)
	}
	if canceled.Status != model.ReminderStatusCanceled {
		t.Fatalf("状态应为 canceled，实际 %s", canceled.Status)
	}

	// 已取消的提醒再取消、或越过用户范围取消，都报不存在
	if err := svc.Cancel(context.Background(), "user-1", reminder.ID); err != repository.ErrReminderNotFound {
		t.Fatalf("重复取消应报不存在，实际 %v", err)
	}
	if err := svc.Cancel(context.Background(), "user-2", reminder.ID); err != repository.ErrReminderNotFound {
		t.Fatalf("越权取消应报不存在，实际 %v", err)
	}
}

func TestRegisterTokenUpsert(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	svc := NewReminderService(db, testConfig())

	if err := svc.RegisterToken(context.Background(), "user-1", "tok-1", "ios"); err != nil {
		t.Fatalf("注册令牌失败: %v", err)
	}
	if err := svc.RegisterToken(context.Background(), "user-1", "tok-1", "web"); err != nil {
		t.Fatalf("重复注册失败: %v", err)
	}

	var tokens []model.NotificationToken
	if err := db.Where("user_id = ?", "user-1").Find(&tokens).Error; err != nil {
		t.Fatalf("查询令牌失败: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("同一令牌应只保留 1 条，实际 %d", len(tokens))
	}
	if tokens[0].Platform != "web" {
		t.Fatalf("重复注册应刷新平台字段，实际 %s", tokens[0].Platform)
	}
}
