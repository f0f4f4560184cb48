package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 场景：支付处理器的 webhook 会对同一事件重复投递（网络抖动、超时重发），
// 两个实例可能同时收到同一个事件。
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本保证"检查+删除"原子性
//
// webhook 事件锁在处理成功后不主动释放，靠过期时间自然淘汰，
// 锁本身就是"该事件已处理"的去重标记
// ============================================================================

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Unlock 释放锁
// Lua 脚本先校验 value 再删除，避免删掉其他持有者的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewWebhookEventLock 创建 webhook 事件锁（按事件ID维度）
// value 用随机 UUID 标识持有者；过期时间给 24 小时，覆盖支付处理器的重发窗口
func NewWebhookEventLock(client *redis.Client, eventID string) *DistributedLock {
	key := fmt.Sprintf("webhook:event:%s", eventID)
	return NewDistributedLock(client, key, uuid.NewString(), 24*time.Hour)
}
