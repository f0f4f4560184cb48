package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"appfinanceiro/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedWebhookPlan(t *testing.T, db *gorm.DB, priceID string) {
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
}

func subscriptionEventBody(eventID, eventType, subID, priceID, userID string) []byte {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	return []byte(`{
		"id": "` + eventID + `",
		"type": "` + eventType + `",
		"data": {
			"object": {
				"id": "` + subID + `",
				"customer": "cus_001",
				"status": "active",
				"current_period_end": ` + strconv.FormatInt(periodEnd, 10) + `,
				"items": {"data": [{"price": {"id": "` + priceID + `"}}]},
				"metadata": {"user_id": "` + userID + `"}
			}
		}
	}`)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, db := setupTestRouter(t)
	seedHandlerUser(t, db, "user-1", false)
	seedWebhookPlan(t, db, "price_premium")

	body := subscriptionEventBody("evt_1", "customer.subscription.created", "sub_001", "price_premium", "user-1")

	w := postWebhook(t, router, body, "deadbeef")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("坏签名应 401，实际 %d", w.Code)
	}
	w = postWebhook(t, router, body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("缺签名应 401，实际 %d", w.Code)
	}

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	if count != 0 {
		t.Fatalf("签名校验失败不应落库，实际 %d 行", count)
	}
}

func TestWebhookAppliesSubscriptionEvent(t *testing.T) {
	router, db := setupTestRouter(t)
	seedHandlerUser(t, db, "user-1", false)
	seedWebhookPlan(t, db, "price_premium")

	body := subscriptionEventBody("evt_1", "customer.subscription.created", "sub_001", "price_premium", "user-1")

	w := postWebhook(t, router, body, signWebhookBody(body))
	if w.Code != http.StatusOK {
		t.Fatalf("合法事件应 200，实际 %d (body=%s)", w.Code, w.Body.String())
	}

	respBody := decodeBody(t, w)
	if respBody["success"] != true {
		t.Fatalf("响应应带 success:true: %v", respBody)
	}

	var sub model.Subscription
	if err := db.Where("processor_subscription_id = ?", "sub_001").First(&sub).Error; err != nil {
		t.Fatalf("订阅行未落库: %v", err)
	}
	if sub.UserID != "user-1" || sub.Status != model.SubscriptionStatusActive {
		t.Fatalf("订阅行不符: %+v", sub)
	}
}

func TestWebhookRejectsIncompleteEvent(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := []byte(`{"id": "", "type": ""}`)
	w := postWebhook(t, router, body, signWebhookBody(body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺事件ID/类型应 400，实际 %d", w.Code)
	}
}
