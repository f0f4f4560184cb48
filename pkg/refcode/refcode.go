package refcode

import (
	"math/rand"
	"sync"
	"time"
)

// ============================================================================
// 参考编号（reference code）生成
// ============================================================================
//
// 参考编号用于把一笔交易和它对应的计划交易关联起来，
// poupeja_transactions 和 poupeja_scheduled_transactions 共用同一编号空间。
//
// 编号规则：
//   候选值 = max(下限 10,000,000, 两表当前最大编号) + [1,100] 的随机偏移
//
// 随机偏移不保证无冲突，两张表各自的唯一索引兜底，
// 插入冲突时由调用方重新取号重试。
//
// 兜底值（两表最大值都查不到时）：
//   10,000,000 + 当前毫秒时间戳 mod 1,000,000
// ============================================================================

const (
	// Floor 编号下限，保证编号量级不随表内容波动
	Floor = 10_000_000

	maxOffset    = 100
	fallbackSpan = 1_000_000
)

// generator 带锁的随机源
// math/rand 的 Rand 非并发安全，多个请求并发取号时需要互斥
type generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

var defaultGenerator = &generator{
	rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
}

func (g *generator) offset() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Int63n(maxOffset) + 1
}

// Offset 返回 [1,100] 的随机偏移
func Offset() int64 {
	return defaultGenerator.offset()
}

// Candidate 根据若干个已知最大编号计算候选值
func Candidate(maxima ...int64) int64 {
	base := int64(Floor)
	for _, m := range maxima {
		if m > base {
			base = m
		}
	}
	return base + Offset()
}

// Fallback 查询连续失败后的兜底编号
func Fallback(now time.Time) int64 {
	return Floor + now.UnixMilli()%fallbackSpan
}
