package service

import (
	"context"
	"log"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/repository"
	"appfinanceiro/pkg/refcode"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxCodeSource 提供单表最大参考编号
type maxCodeSource interface {
	MaxReferenceCode(ctx context.Context) (int64, error)
}

// RefCodeService 参考编号分配器
//
// 【关键点】取号流程：
// 1. 并发查询两张表当前的最大编号
// 2. 候选值 = max(下限, 两表最大值) + [1,100] 随机偏移
// 3. 查询失败按 100ms × (尝试次数+1) 线性退避重试
// 4. 重试耗尽后返回时间戳兜底值，绝不向上抛错
//
// 并发取号可能拿到重叠的最大值进而产生重复候选，
// 去重靠表上的唯一索引 + 插入冲突后重新取号（见 TransactionService）
type RefCodeService struct {
	transactions maxCodeSource
	scheduled    maxCodeSource
	maxRetries   int
}

func NewRefCodeService(db *gorm.DB, cfg *config.Config) *RefCodeService {
	return &RefCodeService{
		transactions: repository.NewTransactionRepository(db),
		scheduled:    repository.NewScheduledRepository(db),
		maxRetries:   cfg.Business.RefCodeMaxRetries,
	}
}

// Next 分配下一个参考编号
// 只读不写，把编号持久化是调用方的事
func (s *RefCodeService) Next(ctx context.Context) int64 {
	retries := s.maxRetries
	if retries <= 0 {
		retries = 3
	}

	for attempt := 0; attempt < retries; attempt++ {
		var transactionMax, scheduledMax int64

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			transactionMax, err = s.transactions.MaxReferenceCode(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			scheduledMax, err = s.scheduled.MaxReferenceCode(gctx)
			return err
		})

		err := g.Wait()
		if err == nil {
			return refcode.Candidate(transactionMax, scheduledMax)
		}

		log.Printf("[RefCode] 查询最大编号失败 (第%d次): %v", attempt+1, err)

		if attempt == retries-1 {
			break
		}

		// 线性退避
		select {
		case <-ctx.Done():
			return refcode.Fallback(time.Now())
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}

	return refcode.Fallback(time.Now())
}
