package service

import (
	"context"
	"errors"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransactionType = errors.New("交易类型不合法")
	ErrCategoryNotUsable      = errors.New("分类不存在或不可用")
)

type TransactionService struct {
	db              *gorm.DB
	cfg             *config.Config
	transactionRepo *repository.TransactionRepository
	categoryRepo    *repository.CategoryRepository
	refCode         *RefCodeService
}

func NewTransactionService(db *gorm.DB, cfg *config.Config) *TransactionService {
	return &TransactionService{
		db:              db,
		cfg:             cfg,
		transactionRepo: repository.NewTransactionRepository(db),
		categoryRepo:    repository.NewCategoryRepository(db),
		refCode:         NewRefCodeService(db, cfg),
	}
}

type CreateTransactionRequest struct {
	Type          string          `json:"type" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	AccountName   string          `json:"account_name"`
	CategoryID    int64           `json:"category_id" binding:"required"`
	GoalID        *int64          `json:"goal_id"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date" binding:"required"`
	ReferenceCode *int64          `json:"reference_code"`
	Status        string          `json:"status"`
}

// TransactionUpdate 部分更新载荷
// 指针字段区分"未提供"和"置空"，字段名写错会在编译期暴露
type TransactionUpdate struct {
	Amount      *decimal.Decimal `json:"amount"`
	AccountName *string          `json:"account_name"`
	CategoryID  *int64           `json:"category_id"`
	GoalID      *int64           `json:"goal_id"`
	Description *string          `json:"description"`
	Date        *time.Time       `json:"date"`
	Status      *string          `json:"status"`
}

// ToUpdates 转换成 gorm 的列更新映射
func (u *TransactionUpdate) ToUpdates() map[string]interface{} {
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
	if u.GoalID != nil {
		updates["goal_id"] = *u.GoalID
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Date != nil {
		updates["date"] = *u.Date
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	return updates
}

// Create 创建当前用户的交易
// 未指定参考编号时自动取号；自动取号的插入撞唯一索引会换号重试一次，
// 客户端显式指定的编号冲突则直接报错
func (s *TransactionService) Create(ctx context.Context, userID string, req *CreateTransactionRequest) (*model.Transaction, error) {
	if req.Type != model.TransactionTypeIncome && req.Type != model.TransactionTypeExpense {
		return nil, ErrInvalidTransactionType
	}
	if err := s.checkCategory(ctx, userID, req.CategoryID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.TransactionStatusPending
	}

	autoAllocated := req.ReferenceCode == nil
	var code int64
	if autoAllocated {
		code = s.refCode.Next(ctx)
	} else {
		code = *req.ReferenceCode
	}

	trans := &model.Transaction{
		UserID:        userID,
		Type:          req.Type,
		Amount:        req.Amount,
		AccountName:   req.AccountName,
		CategoryID:    req.CategoryID,
		GoalID:        req.GoalID,
		Description:   req.Description,
		Date:          req.Date,
		ReferenceCode: code,
		Status:        status,
	}

	err := s.transactionRepo.Create(ctx, nil, trans)
	if err != nil && autoAllocated && errors.Is(err, gorm.ErrDuplicatedKey) {
		trans.ID = 0
		trans.ReferenceCode = s.refCode.Next(ctx)
		err = s.transactionRepo.Create(ctx, nil, trans)
	}
	if err != nil {
		return nil, err
	}

	return s.transactionRepo.GetWithCategory(ctx, trans.ID)
}

// checkCategory 分类必须存在，且是系统默认分类或该用户自建的分类
func (s *TransactionService) checkCategory(ctx context.Context, userID string, categoryID int64) error {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotUsable
		}
		return err
	}
	if category.UserID != nil && *category.UserID != userID {
		return ErrCategoryNotUsable
	}
	return nil
}

// AdminCreate 管理员代任意用户创建交易
// 调用方必须已通过管理员校验
func (s *TransactionService) AdminCreate(ctx context.Context, targetUserID string, req *CreateTransactionRequest) (*model.Transaction, error) {
	return s.Create(ctx, targetUserID, req)
}

// Update 当前用户更新自己的交易，返回更新后的行
func (s *TransactionService) Update(ctx context.Context, userID string, id int64, update *TransactionUpdate) (*model.Transaction, error) {
	if err := s.transactionRepo.Update(ctx, userID, id, update.ToUpdates()); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetWithCategory(ctx, id)
}

// AdminUpdate 管理员更新任意交易
// 对相同载荷重复调用是幂等的
func (s *TransactionService) AdminUpdate(ctx context.Context, id int64, update *TransactionUpdate) (*model.Transaction, error) {
	if err := s.transactionRepo.UpdateAny(ctx, id, update.ToUpdates()); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetWithCategory(ctx, id)
}

func (s *TransactionService) Get(ctx context.Context, userID string, id int64) (*model.Transaction, error) {
	if _, err := s.transactionRepo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetWithCategory(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, userID string, from, to *time.Time, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.ListByUser(ctx, userID, from, to, page, pageSize)
}

// MarkPaid 把 pending 交易标记为已支付
func (s *TransactionService) MarkPaid(ctx context.Context, userID string, id int64) (*model.Transaction, error) {
	status := model.TransactionStatusPaid
	return s.Update(ctx, userID, id, &TransactionUpdate{Status: &status})
}

// NextReferenceCode 预取一个参考编号，供客户端在创建前关联两类记录
func (s *TransactionService) NextReferenceCode(ctx context.Context) int64 {
	return s.refCode.Next(ctx)
}
