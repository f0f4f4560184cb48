package handler

import (
	"appfinanceiro/internal/config"
	"appfinanceiro/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)
	wh := NewWebhookHandler(service.NewSubscriptionService(db, rdb, cfg), cfg)

	// 支付处理器回调（签名校验，不走认证中间件）
	r.POST("/webhook/payment", wh.HandlePaymentWebhook)

	// API 路由组（全部需要认证）
	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(cfg))
	{
		// 交易相关
		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.CreateTransaction)
			transactions.GET("", h.ListTransactions)
			transactions.GET("/next-reference-code", h.NextReferenceCode)
			transactions.GET("/:id", h.GetTransaction)
			transactions.POST("/update", h.UpdateTransaction)
			transactions.POST("/:id/pay", h.PayTransaction)
		}

		// 计划交易
		scheduled := api.Group("/scheduled-transactions")
		{
			scheduled.POST("", h.CreateScheduled)
			scheduled.GET("", h.ListScheduled)
			scheduled.POST("/update", h.UpdateScheduled)
			scheduled.POST("/:id/pause", h.PauseScheduled)
		}

		// 分类 / 订阅 / 用户资料
		api.GET("/categories", h.ListCategories)
		api.POST("/categories", h.CreateCategory)
		api.GET("/subscription", h.GetSubscription)
		api.GET("/profile", h.GetProfile)

		// 提醒与推送令牌
		reminders := api.Group("/reminders")
		{
			reminders.POST("", h.CreateReminder)
			reminders.GET("", h.ListReminders)
			reminders.POST("/:id/cancel", h.CancelReminder)
		}
		api.POST("/notifications/token", h.RegisterNotificationToken)

		// 管理端（认证之上再校验 admin 角色）
		admin := api.Group("/admin")
		admin.Use(AdminMiddleware(db, rdb))
		{
			admin.POST("/transactions/create", h.AdminCreateTransaction)
			admin.POST("/transactions/update", h.AdminUpdateTransaction)
			admin.GET("/users", h.AdminListUsers)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
