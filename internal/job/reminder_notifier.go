package job

import (
	"context"
	"log"
	"time"

	"appfinanceiro/internal/config"
	"appfinanceiro/internal/service"

	"gorm.io/gorm"
)

// ReminderNotifyJob 提醒扫描任务
// 周期性把到期的 pending 提醒转成推送消息（经发件箱投递到 Kafka）
type ReminderNotifyJob struct {
	reminderService *service.ReminderService
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewReminderNotifyJob(db *gorm.DB, cfg *config.Config) *ReminderNotifyJob {
	interval := 30 * time.Second
	if cfg.Business.ReminderScanSeconds > 0 {
		interval = time.Duration(cfg.Business.ReminderScanSeconds) * time.Second
	}

	return &ReminderNotifyJob{
		reminderService: service.NewReminderService(db, cfg),
		stopCh:          make(chan struct{}),
		interval:        interval,
		batchSize:       100,
	}
}

func (j *ReminderNotifyJob) Start(ctx context.Context) {
	log.Println("[ReminderNotifyJob] 提醒扫描任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReminderNotifyJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReminderNotifyJob] 任务停止")
			return
		case <-ticker.C:
			j.scan(ctx)
		}
	}
}

func (j *ReminderNotifyJob) Stop() {
	close(j.stopCh)
}

func (j *ReminderNotifyJob) scan(ctx context.Context) {
	notified, err := j.reminderService.NotifyDue(ctx, j.batchSize)
	if err != nil {
		log.Printf("[ReminderNotifyJob] 扫描到期提醒失败: %v", err)
		return
	}
	if notified > 0 {
		log.Printf("[ReminderNotifyJob] 本次入队 %d 条提醒推送", notified)
	}
}
