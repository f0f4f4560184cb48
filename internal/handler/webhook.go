package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/service"
	"appfinanceiro/pkg/response"

	"github.com/gin-gonic/gin"
)

// 支付处理器回调的签名头
const webhookSignatureHeader = "X-Webhook-Signature"

// WebhookHandler 支付处理器回调处理器
// 不走认证中间件，身份校验靠共享密钥的 HMAC 签名
type WebhookHandler struct {
	subscriptionService *service.SubscriptionService
	secret              []byte
}

func NewWebhookHandler(subscriptionService *service.SubscriptionService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		secret:              []byte(cfg.Webhook.Secret),
	}
}

// HandlePaymentWebhook 接收订阅事件
// POST /webhook/payment
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.ParamError(c, "failed to read request body")
		return
	}

	if !h.verifySignature(body, c.GetHeader(webhookSignatureHeader)) {
		response.Unauthorized(c, "invalid webhook signature")
		return
	}

	var event service.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.ParamError(c, "invalid event payload")
		return
	}
	if event.ID == "" || event.Type == "" {
		response.ParamError(c, "event id and type are required")
		return
	}

	if err := h.subscriptionService.HandleEvent(c.Request.Context(), &event); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"received": true})
}

// verifySignature 对原始请求体做 HMAC-SHA256，与签名头比对
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
