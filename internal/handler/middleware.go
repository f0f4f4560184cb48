package handler

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/model"
	"appfinanceiro/internal/repository"
	"appfinanceiro/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const contextUserIDKey = "user_id"

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
// 预检请求返回 200 空响应体，允许的头与移动端/网页端使用的一致
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// AuthMiddleware 认证中间件
// 校验外部认证平台签发的 Bearer JWT，解析出用户身份放进请求上下文。
// 缺头、格式错、签名不对、过期，统一 401
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.Auth.JWTSecret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "Invalid Authorization header format")
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			response.Unauthorized(c, "Invalid user identity in token")
			c.Abort()
			return
		}

		c.Set(contextUserIDKey, sub)
		c.Next()
	}
}

// AdminMiddleware 管理员校验中间件
//
// 角色不进会话令牌，每次请求都查 user_roles 表确认，
// 撤销管理员权限即时生效。查询结果在 Redis 缓存 5 分钟
func AdminMiddleware(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	roleRepo := repository.NewRoleRepository(db)

	return func(c *gin.Context) {
		userID := c.GetString(contextUserIDKey)
		if userID == "" {
			response.Unauthorized(c, "Authorization required")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		cacheKey := fmt.Sprintf("user:%s:is_admin", userID)

		if redisClient != nil {
			cached, err := redisClient.Get(ctx, cacheKey).Result()
			if err == nil {
				if cached == "1" {
					c.Next()
					return
				}
				response.Forbidden(c, "Admin access required")
				c.Abort()
				return
			}
			if err != redis.Nil {
				log.Printf("[Auth] 读取角色缓存失败: %v", err)
			}
		}

		isAdmin, err := roleRepo.HasRole(ctx, userID, model.RoleAdmin)
		if err != nil {
			response.ServerError(c, "failed to verify admin role")
			c.Abort()
			return
		}

		if redisClient != nil {
			value := "0"
			if isAdmin {
				value = "1"
			}
			if err := redisClient.Set(ctx, cacheKey, value, 5*time.Minute).Err(); err != nil {
				log.Printf("[Auth] 写入角色缓存失败: %v", err)
			}
		}

		if !isAdmin {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
