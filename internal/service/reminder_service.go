package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"

	"gorm.io/gorm"
)

type ReminderService struct {
	db           *gorm.DB
	cfg          *config.Config
	reminderRepo *repository.ReminderRepository
	outboxRepo   *repository.OutboxRepository
}

func NewReminderService(db *gorm.DB, cfg *config.Config) *ReminderService {
	return &ReminderService{
		db:           db,
		cfg:          cfg,
		reminderRepo: repository.NewReminderRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

type CreateReminderRequest struct {
	Title    string    `json:"title" binding:"required"`
	Body     string    `json:"body"`
	NotifyAt time.Time `json:"notify_at" binding:"required"`
}

func (s *ReminderService) Create(ctx context.Context, userID string, req *CreateReminderRequest) (*model.Reminder, error) {
	reminder := &model.Reminder{
		UserID:   userID,
		Title:    req.Title,
		Body:     req.Body,
		NotifyAt: req.NotifyAt,
		Status:   model.ReminderStatusPending,
	}
	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (s *ReminderService) List(ctx context.Context, userID string, page, pageSize int) ([]*model.Reminder, int64, error) {
	return s.reminderRepo.ListByUser(ctx, userID, page, pageSize)
}

func (s *ReminderService) Cancel(ctx context.Context, userID string, id int64) error {
	return s.reminderRepo.Cancel(ctx, userID, id)
}

// RegisterToken 注册设备推送令牌
func (s *ReminderService) RegisterToken(ctx context.Context, userID, token, platform string) error {
	return s.reminderRepo.UpsertToken(ctx, &model.NotificationToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	})
}

// NotifyDue 把到期提醒转成推送消息
//
// 每个提醒按用户注册的设备令牌展开成多条发件箱消息，
// 消息落库和提醒状态翻转在同一事务内，提醒不会丢也不会重发
func (s *ReminderService) NotifyDue(ctx context.Context, limit int) (int, error) {
	due, err := s.reminderRepo.GetDue(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, reminder := range due {
		if err := s.notify(ctx, reminder); err != nil {
			log.Printf("[Reminder] 提醒推送入队失败: id=%d, err=%v", reminder.ID, err)
			continue
		}
		notified++
	}
	return notified, nil
}

func (s *ReminderService) notify(ctx context.Context, reminder *model.Reminder) error {
	tokens, err := s.reminderRepo.ListTokensByUser(ctx, reminder.UserID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, token := range tokens {
			payload := map[string]interface{}{
				"token":       token.Token,
				"platform":    token.Platform,
				"user_id":     reminder.UserID,
				"reminder_id": reminder.ID,
				"title":       reminder.Title,
				"body":        reminder.Body,
			}
			payloadBytes, _ := json.Marshal(payload)

			msg := &model.OutboxMessage{
				MessageKey: strconv.FormatInt(reminder.ID, 10),
				Topic:      s.cfg.Kafka.Topic.PushNotification,
				Payload:    string(payloadBytes),
				Status:     model.OutboxStatusPending,
			}
			if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
				return err
			}
		}
		return s.reminderRepo.MarkSent(ctx, tx, reminder.ID)
	})
}
