package service

import (
	"context"
	"testing"
	"time"

	"appfinanceiro/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seedPlan(t *testing.T, db *gorm.DB, priceID string) *model.Plan {
	t.Helper()
	plan := &model.Plan{
		ProcessorPriceID: priceID,
		Name:             "Premium",
		Period:           "monthly",
		Price:            decimal.NewFromFloat(29.90),
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("写入套餐失败: %v", err)
	}
	return plan
}

func subscriptionEvent(eventID, eventType, subID, priceID, userID, status string) *WebhookEvent {
	event := &WebhookEvent{ID: eventID, Type: eventType}
	event.Data.Object.ID = subID
	event.Data.Object.Customer = "cus_001"
	event.Data.Object.Status = status
	event.Data.Object.CurrentPeriodEnd = time.Now().Add(30 * 24 * time.Hour).Unix()
	event.Data.Object.Metadata.UserID = userID
	if priceID != "" {
		event.Data.Object.Items.Data = []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		}{{}}
		event.Data.Object.Items.Data[0].Price.ID = priceID
	}
	return event
}

func TestHandleEventCreatesSubscription(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	plan := seedPlan(t, db, "price_premium")
	svc := NewSubscriptionService(db, nil, testConfig())

	event := subscriptionEvent("evt_1", EventSubscriptionCreated, "sub_001", "price_premium", "user-1", "active")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("处理创建事件失败: %v", err)
	}

	sub, err := svc.GetForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("查询订阅失败: %v", err)
	}
	if sub.PlanID != plan.ID || sub.Status != model.SubscriptionStatusActive {
		t.Fatalf("订阅行不符: %+v", sub)
	}
	if sub.ProcessorSubscriptionID != "sub_001" {
		t.Fatalf("处理器订阅ID不符: %s", sub.ProcessorSubscriptionID)
	}

	// 变更事件应进发件箱
	var outboxCount int64
	db.Model(&model.OutboxMessage{}).Where("message_key = ?", "evt_1").Count(&outboxCount)
	if outboxCount != 1 {
		t.Fatalf("发件箱应有 1 条消息，实际 %d", outboxCount)
	}
}

func TestHandleEventUpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	seedPlan(t, db, "price_premium")
	svc := NewSubscriptionService(db, nil, testConfig())

	created := subscriptionEvent("evt_1", EventSubscriptionCreated, "sub_001", "price_premium", "user-1", "active")
	if err := svc.HandleEvent(context.Background(), created); err != nil {
		t.Fatalf("处理创建事件失败: %v", err)
	}

	// 锁失效后重放同一订阅的更新事件，仍落到同一行
	updated := subscriptionEvent("evt_2", EventSubscriptionUpdated, "sub_001", "price_premium", "", "past_due")
	if err := svc.HandleEvent(context.Background(), updated); err != nil {
		t.Fatalf("处理更新事件失败: %v", err)
	}

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	if count != 1 {
		t.Fatalf("订阅表应只有 1 行，实际 %d", count)
	}

	sub, err := svc.GetForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("查询订阅失败: %v", err)
	}
	if sub.Status != model.SubscriptionStatusPastDue {
		t.Fatalf("状态应映射为 past_due，实际 %s", sub.Status)
	}
}

func TestHandleEventDeletedCancels(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	seedPlan(t, db, "price_premium")
	svc := NewSubscriptionService(db, nil, testConfig())

	created := subscriptionEvent("evt_1", EventSubscriptionCreated, "sub_001", "price_premium", "user-1", "active")
	if err := svc.HandleEvent(context.Background(), created); err != nil {
		t.Fatalf("处理创建事件失败: %v", err)
	}

	deleted := subscriptionEvent("evt_2", EventSubscriptionDeleted, "sub_001", "", "", "canceled")
	if err := svc.HandleEvent(context.Background(), deleted); err != nil {
		t.Fatalf("处理取消事件失败: %v", err)
	}

	sub, err := svc.GetForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("查询订阅失败: %v", err)
	}
	if sub.Status != model.SubscriptionStatusCanceled {
		t.Fatalf("状态应为 canceled，实际 %s", sub.Status)
	}
}

func TestHandleEventUnknownPlanFails(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	svc := NewSubscriptionService(db, nil, testConfig())

	event := subscriptionEvent("evt_1", EventSubscriptionCreated, "sub_001", "price_missing", "user-1", "active")
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("未知套餐应报错，等处理器重发")
	}

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	if count != 0 {
		t.Fatalf("失败事件不应落库，实际 %d 行", count)
	}
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubscriptionService(db, nil, testConfig())

	event := subscriptionEvent("evt_1", "invoice.paid", "sub_001", "", "", "")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("未知事件类型应静默忽略: %v", err)
	}
}
