package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/infrastructure/lock"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrUnknownSubscriber = errors.New("无法确定订阅归属的用户")
)

// ============================================================
// Webhook 事件结构（支付处理器侧的订阅对象）
// ============================================================

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object ProcessorSubscription `json:"object"`
	} `json:"data"`
}

type ProcessorSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// PriceID 第一条订阅项的价格标识
func (p *ProcessorSubscription) PriceID() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	return p.Items.Data[0].Price.ID
}

type SubscriptionService struct {
	db               *gorm.DB
	redisClient      *redis.Client
	cfg              *config.Config
	subscriptionRepo *repository.SubscriptionRepository
	outboxRepo       *repository.OutboxRepository
}

func NewSubscriptionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{
		db:               db,
		redisClient:      redisClient,
		cfg:              cfg,
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		outboxRepo:       repository.NewOutboxRepository(db),
	}
}

func (s *SubscriptionService) GetForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.subscriptionRepo.GetByUser(ctx, userID)
}

// HandleEvent 处理支付处理器的订阅事件
//
// 【关键点】幂等性：
// 1. 事件ID上加分布式锁，重复投递的事件直接跳过
// 2. 订阅行按处理器订阅ID upsert，即使锁失效重放也落到同一行
// 3. 处理失败时释放锁，等待处理器重发
func (s *SubscriptionService) HandleEvent(ctx context.Context, event *WebhookEvent) error {
	if s.redisClient != nil {
		eventLock := lock.NewWebhookEventLock(s.redisClient, event.ID)
		acquired, err := eventLock.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("获取事件锁失败: %w", err)
		}
		if !acquired {
			log.Printf("[Subscription] 事件重复投递，跳过: id=%s", event.ID)
			return nil
		}
		if err := s.dispatch(ctx, event); err != nil {
			// 失败释放锁，等处理器重发；成功时锁留作去重标记，靠过期淘汰
			eventLock.Unlock(ctx)
			return err
		}
		return nil
	}

	return s.dispatch(ctx, event)
}

func (s *SubscriptionService) dispatch(ctx context.Context, event *WebhookEvent) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applySubscription(ctx, event)
	case EventSubscriptionDeleted:
		return s.cancelSubscription(ctx, event)
	default:
		log.Printf("[Subscription] 忽略未知事件类型: %s", event.Type)
		return nil
	}
}

// applySubscription 把处理器的订阅对象映射成内部订阅行
func (s *SubscriptionService) applySubscription(ctx context.Context, event *WebhookEvent) error {
	object := &event.Data.Object

	plan, err := s.subscriptionRepo.GetPlanByPriceID(ctx, object.PriceID())
	if err != nil {
		return fmt.Errorf("定位套餐失败 (price=%s): %w", object.PriceID(), err)
	}

	userID, err := s.resolveUserID(ctx, object)
	if err != nil {
		return err
	}

	sub := &model.Subscription{
		UserID:                  userID,
		ProcessorCustomerID:     object.Customer,
		ProcessorSubscriptionID: object.ID,
		PlanID:                  plan.ID,
		Status:                  mapProcessorStatus(object.Status),
		CurrentPeriodEnd:        time.Unix(object.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:       object.CancelAtPeriodEnd,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.subscriptionRepo.Upsert(ctx, tx, sub); err != nil {
			return fmt.Errorf("写入订阅失败: %w", err)
		}
		return s.emitEvent(ctx, tx, event.ID, userID, plan.Name, sub.Status)
	})
}

func (s *SubscriptionService) cancelSubscription(ctx context.Context, event *WebhookEvent) error {
	object := &event.Data.Object

	existing, err := s.subscriptionRepo.GetByProcessorSubID(ctx, object.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			log.Printf("[Subscription] 取消事件对应的订阅不存在: sub=%s", object.ID)
			return nil
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.subscriptionRepo.UpdateStatus(ctx, tx, object.ID, model.SubscriptionStatusCanceled); err != nil {
			return err
		}
		return s.emitEvent(ctx, tx, event.ID, existing.UserID, "", model.SubscriptionStatusCanceled)
	})
}

// resolveUserID 确定订阅归属的用户
// 优先取处理器侧 metadata 里带回的用户ID，其次查已有订阅行
func (s *SubscriptionService) resolveUserID(ctx context.Context, object *ProcessorSubscription) (string, error) {
	if object.Metadata.UserID != "" {
		return object.Metadata.UserID, nil
	}

	existing, err := s.subscriptionRepo.GetByProcessorSubID(ctx, object.ID)
	if err == nil {
		return existing.UserID, nil
	}
	if !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return "", err
	}

	return "", ErrUnknownSubscriber
}

// emitEvent 订阅变更事件入发件箱，由后台任务投递到 Kafka
func (s *SubscriptionService) emitEvent(ctx context.Context, tx *gorm.DB, eventID, userID, planName, status string) error {
	payload := map[string]interface{}{
		"event_id": eventID,
		"user_id":  userID,
		"plan":     planName,
		"status":   status,
		"at":       time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: eventID,
		Topic:      s.cfg.Kafka.Topic.SubscriptionEvent,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}

func mapProcessorStatus(processorStatus string) string {
	switch processorStatus {
	case "active", "trialing":
		return model.SubscriptionStatusActive
	case "past_due", "unpaid", "incomplete":
		return model.SubscriptionStatusPastDue
	default:
		return model.SubscriptionStatusCanceled
	}
}
