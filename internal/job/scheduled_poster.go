package job

import (
	"context"
	"log"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/service"

	"gorm.io/gorm"
)

// ScheduledPostJob 计划交易物化任务
// 到期的计划交易生成一笔 pending 交易，沿用参考编号完成关联
type ScheduledPostJob struct {
	scheduledService *service.ScheduledService
	stopCh           chan struct{}
	interval         time.Duration
	batchSize        int
}

func NewScheduledPostJob(db *gorm.DB, cfg *config.Config) *ScheduledPostJob {
	interval := 60 * time.Second
	if cfg.Business.ScheduledScanSeconds > 0 {
		interval = time.Duration(cfg.Business.ScheduledScanSeconds) * time.Second
	}

	return &ScheduledPostJob{
		scheduledService: service.NewScheduledService(db, cfg),
		stopCh:           make(chan struct{}),
		interval:         interval,
		batchSize:        100,
	}
}

func (j *ScheduledPostJob) Start(ctx context.Context) {
	log.Println("[ScheduledPostJob] 计划交易物化任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ScheduledPostJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ScheduledPostJob] 任务停止")
			return
		case <-ticker.C:
			j.scan(ctx)
		}
	}
}

func (j *ScheduledPostJob) Stop() {
	close(j.stopCh)
}

func (j *ScheduledPostJob) scan(ctx context.Context) {
	posted, err := j.scheduledService.MaterializeDue(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ScheduledPostJob] 扫描到期计划交易失败: %v", err)
		return
	}
	if posted > 0 {
		log.Printf("[ScheduledPostJob] 本次物化 %d 笔计划交易", posted)
	}
}
