package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"appfinanceiro/internal/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

// InitRedis 初始化 Redis 连接
// 未配置地址时返回 nil，管理员角色缓存和 webhook 幂等锁退化为直查数据库
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		log.Println("Redis 未配置，跳过初始化")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	RedisClient = client
	log.Println("Redis 连接成功")
	return client
}
