package handler

import (
	"errors"
	"strconv"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"
	"appfinanceiro/internal/service"
	"appfinanceiro/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	transactionService  *service.TransactionService
	scheduledService    *service.ScheduledService
	userService         *service.UserService
	subscriptionService *service.SubscriptionService
	reminderService     *service.ReminderService
	categoryRepo        *repository.CategoryRepository
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		transactionService:  service.NewTransactionService(db, cfg),
		scheduledService:    service.NewScheduledService(db, cfg),
		userService:         service.NewUserService(db),
		subscriptionService: service.NewSubscriptionService(db, rdb, cfg),
		reminderService:     service.NewReminderService(db, cfg),
		categoryRepo:        repository.NewCategoryRepository(db),
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ============================================================
// 交易相关接口
// ============================================================

// CreateTransaction 创建交易
// POST /api/v1/transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	trans, err := h.transactionService.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransactionType) || errors.Is(err, service.ErrCategoryNotUsable) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// ListTransactions 查询当前用户的交易列表
// GET /api/v1/transactions?page=1&page_size=20&from=...&to=...
func (h *Handler) ListTransactions(c *gin.Context) {
	page, pageSize := pagination(c)

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.ParamError(c, "from must be RFC3339")
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.ParamError(c, "to must be RFC3339")
			return
		}
		to = &t
	}

	transactions, total, err := h.transactionService.List(c.Request.Context(), currentUserID(c), from, to, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTransaction 查询单笔交易
// GET /api/v1/transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	trans, err := h.transactionService.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// UpdateTransaction 部分更新当前用户的交易
// POST /api/v1/transactions/update  body: {id, update}
func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req struct {
		ID     int64                     `json:"id" binding:"required"`
		Update service.TransactionUpdate `json:"update" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	trans, err := h.transactionService.Update(c.Request.Context(), currentUserID(c), req.ID, &req.Update)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		if errors.Is(err, repository.ErrEmptyUpdate) {
			response.ParamError(c, "update payload is empty")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// PayTransaction 把交易标记为已支付
// POST /api/v1/transactions/:id/pay
func (h *Handler) PayTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	trans, err := h.transactionService.MarkPaid(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// NextReferenceCode 预取参考编号
// GET /api/v1/transactions/next-reference-code
func (h *Handler) NextReferenceCode(c *gin.Context) {
	code := h.transactionService.NextReferenceCode(c.Request.Context())
	response.Success(c, gin.H{"reference_code": code})
}

// ============================================================
// 计划交易相关接口
// ============================================================

// CreateScheduled 创建计划交易
// POST /api/v1/scheduled-transactions
func (h *Handler) CreateScheduled(c *gin.Context) {
	var req service.CreateScheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	scheduled, err := h.scheduledService.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransactionType) || errors.Is(err, service.ErrInvalidRecurrence) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, scheduled)
}

// ListScheduled 查询当前用户的计划交易
// GET /api/v1/scheduled-transactions
func (h *Handler) ListScheduled(c *gin.Context) {
	page, pageSize := pagination(c)

	scheduled, total, err := h.scheduledService.List(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      scheduled,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// UpdateScheduled 部分更新当前用户的计划交易
// POST /api/v1/scheduled-transactions/update  body: {id, update}
func (h *Handler) UpdateScheduled(c *gin.Context) {
	var req struct {
		ID     int64                   `json:"id" binding:"required"`
		Update service.ScheduledUpdate `json:"update" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	scheduled, err := h.scheduledService.Update(c.Request.Context(), currentUserID(c), req.ID, &req.Update)
	if err != nil {
		if errors.Is(err, repository.ErrScheduledNotFound) {
			response.NotFound(c, "scheduled transaction not found")
			return
		}
		if errors.Is(err, service.ErrInvalidRecurrence) || errors.Is(err, repository.ErrEmptyUpdate) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, scheduled)
}

// PauseScheduled 暂停/恢复计划交易
// POST /api/v1/scheduled-transactions/:id/pause  body: {paused}
func (h *Handler) PauseScheduled(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Paused *bool `json:"paused" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	err := h.scheduledService.SetPaused(c.Request.Context(), currentUserID(c), id, *req.Paused)
	if err != nil {
		if errors.Is(err, repository.ErrScheduledNotFound) {
			response.NotFound(c, "scheduled transaction not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"paused": *req.Paused})
}

// ============================================================
// 分类 / 订阅 / 用户
// ============================================================

// ListCategories 默认分类 + 用户自建分类
// GET /api/v1/categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.categoryRepo.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, categories)
}

// CreateCategory 创建用户自建分类
// POST /api/v1/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
		Type  string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}
	if req.Type != model.TransactionTypeIncome && req.Type != model.TransactionTypeExpense {
		response.ParamError(c, "type must be income or expense")
		return
	}

	userID := currentUserID(c)
	category := &model.Category{
		UserID: &userID,
		Name:   req.Name,
		Icon:   req.Icon,
		Color:  req.Color,
		Type:   req.Type,
	}
	if err := h.categoryRepo.Create(c.Request.Context(), category); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, category)
}

// GetSubscription 查询当前用户的订阅
// GET /api/v1/subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.subscriptionService.GetForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			response.NotFound(c, "no subscription")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, sub)
}

// GetProfile 查询当前用户资料
// GET /api/v1/profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, user)
}

// ============================================================
// 提醒 / 推送令牌
// ============================================================

// CreateReminder 创建提醒
// POST /api/v1/reminders
func (h *Handler) CreateReminder(c *gin.Context) {
	var req service.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	reminder, err := h.reminderService.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, reminder)
}

// ListReminders 查询当前用户的提醒
// GET /api/v1/reminders
func (h *Handler) ListReminders(c *gin.Context) {
	page, pageSize := pagination(c)

	reminders, total, err := h.reminderService.List(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      reminders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CancelReminder 取消未发送的提醒
// POST /api/v1/reminders/:id/cancel
func (h *Handler) CancelReminder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.reminderService.Cancel(c.Request.Context(), currentUserID(c), id); err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			response.NotFound(c, "reminder not found")
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"canceled": true})
}

// RegisterNotificationToken 注册设备推送令牌
// POST /api/v1/notifications/token
func (h *Handler) RegisterNotificationToken(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	if err := h.reminderService.RegisterToken(c.Request.Context(), currentUserID(c), req.Token, req.Platform); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"registered": true})
}

// ============================================================
// 管理端接口（必须走在管理员中间件之后）
// ============================================================

// AdminCreateTransactionRequest 管理员代建交易的请求
type AdminCreateTransactionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	service.CreateTransactionRequest
}

// AdminCreateTransaction 管理员代任意用户创建交易
// POST /api/v1/admin/transactions/create
func (h *Handler) AdminCreateTransaction(c *gin.Context) {
	var req AdminCreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	trans, err := h.transactionService.AdminCreate(c.Request.Context(), req.UserID, &req.CreateTransactionRequest)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransactionType) || errors.Is(err, service.ErrCategoryNotUsable) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// AdminUpdateTransaction 管理员更新任意交易
// POST /api/v1/admin/transactions/update  body: {id, update}
func (h *Handler) AdminUpdateTransaction(c *gin.Context) {
	var req struct {
		ID     int64                     `json:"id" binding:"required"`
		Update service.TransactionUpdate `json:"update" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid payload: "+err.Error())
		return
	}

	trans, err := h.transactionService.AdminUpdate(c.Request.Context(), req.ID, &req.Update)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		if errors.Is(err, repository.ErrEmptyUpdate) {
			response.ParamError(c, "update payload is empty")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, trans)
}

// AdminListUsers 管理端全量用户列表
// GET /api/v1/admin/users
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, pageSize := pagination(c)

	users, total, err := h.userService.AdminListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
