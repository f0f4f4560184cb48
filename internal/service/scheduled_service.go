package service

import (
	"context"
	"errors"
	"log"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidRecurrence = errors.New("重复周期不合法")

type ScheduledService struct {
	db              *gorm.DB
	cfg             *config.Config
	scheduledRepo   *repository.ScheduledRepository
	transactionRepo *repository.TransactionRepository
	refCode         *RefCodeService
}

func NewScheduledService(db *gorm.DB, cfg *config.Config) *ScheduledService {
	return &ScheduledService{
		db:              db,
		cfg:             cfg,
		scheduledRepo:   repository.NewScheduledRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		refCode:         NewRefCodeService(db, cfg),
	}
}

type CreateScheduledRequest struct {
	Type          string          `json:"type" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	AccountName   string          `json:"account_name"`
	CategoryID    int64           `json:"category_id" binding:"required"`
	Description   string          `json:"description"`
	Recurrence    string          `json:"recurrence"`
	NextRunAt     time.Time       `json:"next_run_at" binding:"required"`
	ReferenceCode *int64          `json:"reference_code"`
}

func validRecurrence(r string) bool {
	switch r {
	case model.RecurrenceOnce, model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly:
		return true
	}
	return false
}

// Create 创建计划交易
// 客户端可以传入已有交易的参考编号完成关联，否则自动取号
func (s *ScheduledService) Create(ctx context.Context, userID string, req *CreateScheduledRequest) (*model.ScheduledTransaction, error) {
	if req.Type != model.TransactionTypeIncome && req.Type != model.TransactionTypeExpense {
		return nil, ErrInvalidTransactionType
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = model.RecurrenceOnce
	}
	if !validRecurrence(recurrence) {
		return nil, ErrInvalidRecurrence
	}

	autoAllocated := req.ReferenceCode == nil
	var code int64
	if autoAllocated {
		code = s.refCode.Next(ctx)
	} else {
		code = *req.ReferenceCode
	}

	scheduled := &model.ScheduledTransaction{
		UserID:        userID,
		Type:          req.Type,
		Amount:        req.Amount,
		AccountName:   req.AccountName,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		ReferenceCode: code,
		Recurrence:    recurrence,
		NextRunAt:     req.NextRunAt,
		Status:        model.ScheduledStatusActive,
	}

	err := s.scheduledRepo.Create(ctx, nil, scheduled)
	if err != nil && autoAllocated && errors.Is(err, gorm.ErrDuplicatedKey) {
		scheduled.ID = 0
		scheduled.ReferenceCode = s.refCode.Next(ctx)
		err = s.scheduledRepo.Create(ctx, nil, scheduled)
	}
	if err != nil {
		return nil, err
	}

	return scheduled, nil
}

// ScheduledUpdate 计划交易的部分更新载荷
type ScheduledUpdate struct {
	Amount      *decimal.Decimal `json:"amount"`
	AccountName *string          `json:"account_name"`
	CategoryID  *int64           `json:"category_id"`
	Description *string          `json:"description"`
	Recurrence  *string          `json:"recurrence"`
	NextRunAt   *time.Time       `json:"next_run_at"`
}

func (u *ScheduledUpdate) ToUpdates() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Amount != nil {
		updates["amount"] = *u.Amount
	}
	if u.AccountName != nil {
		updates["account_name"] = *u.AccountName
	}
	if u.CategoryID != nil {
		updates["category_id"] = *u.CategoryID
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Recurrence != nil {
		updates["recurrence"] = *u.Recurrence
	}
	if u.NextRunAt != nil {
		updates["next_run_at"] = *u.NextRunAt
	}
	return updates
}

// Update 当前用户更新自己的计划交易
func (s *ScheduledService) Update(ctx context.Context, userID string, id int64, update *ScheduledUpdate) (*model.ScheduledTransaction, error) {
	if update.Recurrence != nil && !validRecurrence(*update.Recurrence) {
		return nil, ErrInvalidRecurrence
	}
	if err := s.scheduledRepo.Update(ctx, userID, id, update.ToUpdates()); err != nil {
		return nil, err
	}
	return s.scheduledRepo.GetByID(ctx, userID, id)
}

func (s *ScheduledService) List(ctx context.Context, userID string, page, pageSize int) ([]*model.ScheduledTransaction, int64, error) {
	return s.scheduledRepo.ListByUser(ctx, userID, page, pageSize)
}

// SetPaused 暂停/恢复计划交易
func (s *ScheduledService) SetPaused(ctx context.Context, userID string, id int64, paused bool) error {
	return s.scheduledRepo.Update(ctx, userID, id, map[string]interface{}{"paused": paused})
}

// MaterializeDue 把到期的计划交易物化成 pending 交易
//
// 首期沿用计划交易的参考编号完成关联；周期任务的后续各期
// 编号会撞唯一索引，此时重新取号插入
func (s *ScheduledService) MaterializeDue(ctx context.Context, limit int) (int, error) {
	due, err := s.scheduledRepo.GetDue(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	posted := 0
	for _, scheduled := range due {
		if err := s.materialize(ctx, scheduled); err != nil {
			log.Printf("[Scheduled] 物化计划交易失败: id=%d, err=%v", scheduled.ID, err)
			continue
		}
		posted++
	}
	return posted, nil
}

func (s *ScheduledService) materialize(ctx context.Context, scheduled *model.ScheduledTransaction) error {
	code := scheduled.ReferenceCode
	for attempt := 0; attempt < 2; attempt++ {
		err := s.post(ctx, scheduled, code)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt > 0 {
			return err
		}
		// 【关键点】取号必须在事务外：取号查询走连接池，
		// 事务持有连接期间再借连接，在池打满时会互相等待
		code = s.refCode.Next(ctx)
	}
	return nil
}

// post 单个事务内落交易并推进/收尾计划交易
func (s *ScheduledService) post(ctx context.Context, scheduled *model.ScheduledTransaction, code int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		trans := &model.Transaction{
			UserID:        scheduled.UserID,
			Type:          scheduled.Type,
			Amount:        scheduled.Amount,
			AccountName:   scheduled.AccountName,
			CategoryID:    scheduled.CategoryID,
			Description:   scheduled.Description,
			Date:          scheduled.NextRunAt,
			ReferenceCode: code,
			Status:        model.TransactionStatusPending,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return err
		}

		if scheduled.Recurrence == model.RecurrenceOnce {
			return s.scheduledRepo.MarkDone(ctx, tx, scheduled.ID)
		}
		return s.scheduledRepo.Advance(ctx, tx, scheduled.ID, scheduled.NextRunAfter(scheduled.NextRunAt))
	})
}
