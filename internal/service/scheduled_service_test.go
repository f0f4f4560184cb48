package service

import (
	"context"
	"testing"
	"time"

	"appfinanceiro/internal/model"

	"github.com/shopspring/decimal"
)

func TestCreateScheduledRejectsBadRecurrence(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	category := seedCategory(t, db)
	svc := NewScheduledService(db, testConfig())

	_, err := svc.Create(context.Background(), "user-1", &CreateScheduledRequest{
		Type:       model.TransactionTypeExpense,
		Amount:     decimal.NewFromInt(10),
		CategoryID: category.ID,
		Recurrence: "fortnightly",
		NextRunAt:  time.Now(),
	})
	if err != ErrInvalidRecurrence {
		t.Fatalf("非法周期应报 ErrInvalidRecurrence，实际 %v", err)
	}
}

func TestMaterializeOnceKeepsReferenceCode(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	category := seedCategory(t, db)
	svc := NewScheduledService(db, testConfig())

	scheduled, err := svc.Create(context.Background(), "user-1", &CreateScheduledRequest{
		Type:       model.TransactionTypeExpense,
		Amount:     decimal.NewFromInt(100),
		CategoryID: category.ID,
		Recurrence: model.RecurrenceOnce,
		NextRunAt:  time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("创建计划交易失败: %v", err)
	}

	posted, err := svc.MaterializeDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("物化失败: %v", err)
	}
	if posted != 1 {
		t.Fatalf("应物化 1 条，实际 %d", posted)
	}

	// 首期交易沿用计划交易的参考编号完成关联
	var trans model.Transaction
	if err := db.Where("reference_code = ?", scheduled.ReferenceCode).First(&trans).Error; err != nil {
		t.Fatalf("未找到关联交易: %v", err)
	}
	if trans.Status != model.TransactionStatusPending || trans.UserID != "user-1" {
		t.Fatalf("物化出的交易不符: %+v", trans)
	}

	// 一次性计划交易收尾后不再参与后续扫描
	var done model.ScheduledTransaction
	if err := db.First(&done, scheduled.ID).Error; err != nil {
		t.Fatalf("查询计划交易失败: %v", err)
	}
	if done.Status != model.ScheduledStatusDone {
		t.Fatalf("状态应为 done，实际 %s", done.Status)
	}

	posted, err = svc.MaterializeDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("二次扫描失败: %v", err)
	}
	if posted != 0 {
		t.Fatalf("收尾后不应再物化，实际 %d", posted)
	}
}

func TestMaterializeRecurringAdvancesAndReallocates(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	category := seedCategory(t, db)
	svc := NewScheduledService(db, testConfig())

	firstRun := time.Now().Add(-time.Minute)
	scheduled, err := svc.Create(context.Background(), "user-1", &CreateScheduledRequest{
		Type:       model.TransactionTypeExpense,
		Amount:     decimal.NewFromInt(50),
		CategoryID: category.ID,
		Recurrence: model.RecurrenceMonthly,
		NextRunAt:  firstRun,
	})
	if err != nil {
		t.Fatalf("创建计划交易失败: %v", err)
	}

	if _, err := svc.MaterializeDue(context.Background(), 100); err != nil {
		t.Fatalf("首期物化失败: %v", err)
	}

	var advanced model.ScheduledTransaction
	if err := db.First(&advanced, scheduled.ID).Error; err != nil {
		t.Fatalf("查询计划交易失败: %v", err)
	}
	if advanced.Status != model.ScheduledStatusActive {
		t.Fatalf("周期任务物化后应保持 active，实际 %s", advanced.Status)
	}
	if !advanced.NextRunAt.After(time.Now()) {
		t.Fatalf("下次执行时间应已推进到未来，实际 %v", advanced.NextRunAt)
	}

	// 模拟下一期到期：首期交易占用了编号，第二期应换号插入。
	// 测试库连接池只有 1 条连接，换号流程若在事务内借连接会卡死，
	// 因此带期限跑第二期
	if err := db.Model(&model.ScheduledTransaction{}).
		Where("id = ?", scheduled.ID).
		Update("next_run_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("回拨执行时间失败: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := svc.MaterializeDue(context.Background(), 100)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("第二期物化失败: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("第二期物化未在期限内完成")
	}

	var transactions []model.Transaction
	if err := db.Order("id ASC").Find(&transactions).Error; err != nil {
		t.Fatalf("查询交易失败: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("两期应各落一笔交易，实际 %d", len(transactions))
	}
	if transactions[0].ReferenceCode != scheduled.ReferenceCode {
		t.Fatalf("首期编号应与计划交易一致: %d != %d", transactions[0].ReferenceCode, scheduled.ReferenceCode)
	}
	if transactions[1].ReferenceCode == scheduled.ReferenceCode {
		t.Fatal("第二期编号应与首期不同")
	}
}

func TestPausedScheduledSkipped(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "user-1", "user1@example.com")
	category := seedCategory(t, db)
	svc := NewScheduledService(db, testConfig())

	scheduled, err := svc.Create(context.Background(), "user-1", &CreateScheduledRequest{
		Type:       model.TransactionTypeExpense,
		Amount:     decimal.NewFromInt(10),
		CategoryID: category.ID,
		Recurrence: model.RecurrenceDaily,
		NextRunAt:  time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("创建计划交易失败: %v", err)
	}
	if err := svc.SetPaused(context.Background(), "user-1", scheduled.ID, true); err != nil {
		t.Fatalf("暂停失败: %v", err)
	}

	posted, err := svc.MaterializeDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("物化失败: %v", err)
	}
	if posted != 0 {
		t.Fatalf("暂停中的计划交易不应物化，实际 %d", posted)
	}
}
