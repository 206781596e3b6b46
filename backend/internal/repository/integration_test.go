//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	pkgerrors "tachora/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=tachora password=tachora_password dbname=tachora_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.Store{},
		&model.Role{},
		&model.Employee{},
		&model.EmployeeAvailability{},
		&model.ShiftTemplate{},
		&model.ShiftAssignment{},
		&model.ScheduleWeek{},
		&model.ScheduleChangeLog{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupTestData 创建门店、岗位、员工并返回清理函数
func setupTestData(t *testing.T) (store *model.Store, role *model.Role, emp *model.Employee, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	store = &model.Store{Name: fmt.Sprintf("测试门店-%d", time.Now().UnixNano())}
	if err := testDB.WithContext(ctx).Create(store).Error; err != nil {
		t.Fatalf("创建门店失败: %v", err)
	}

	role = &model.Role{StoreID: store.StoreID, Name: "Cashier"}
	if err := testDB.WithContext(ctx).Create(role).Error; err != nil {
		t.Fatalf("创建岗位失败: %v", err)
	}

	emp = &model.Employee{
		Name:                "Alice",
		HomeStoreID:         store.StoreID,
		ContractType:        "FULL_TIME",
		WeeklyMinutesTarget: 2400,
		Availability: []model.EmployeeAvailability{
			{Day: 0, StartMinute: 9 * 60, EndMinute: 19 * 60},
			{Day: 6, IsOff: true},
		},
		Roles: []model.Role{*role},
	}
	if err := testDB.WithContext(ctx).Create(emp).Error; err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("store_id = ?", store.StoreID).Delete(&model.ScheduleChangeLog{})
		testDB.Unscoped().Where("store_id = ?", store.StoreID).Delete(&model.ShiftAssignment{})
		testDB.Unscoped().Where("store_id = ?", store.StoreID).Delete(&model.ScheduleWeek{})
		testDB.Unscoped().Where("store_id = ?", store.StoreID).Delete(&model.ShiftTemplate{})
		testDB.Exec("DELETE FROM employee_roles WHERE employee_id = ?", emp.EmployeeID)
		testDB.Unscoped().Where("employee_id = ?", emp.EmployeeID).Delete(&model.EmployeeAvailability{})
		testDB.Unscoped().Where("employee_id = ?", emp.EmployeeID).Delete(&model.Employee{})
		testDB.Unscoped().Where("role_id = ?", role.RoleID).Delete(&model.Role{})
		testDB.Unscoped().Where("store_id = ?", store.StoreID).Delete(&model.Store{})
	}
	return
}

func newOpenAssignment(storeID string) *model.ShiftAssignment {
	return &model.ShiftAssignment{
		StoreID:     storeID,
		WeekID:      "2026-W42",
		Day:         0,
		StartMinute: 9 * 60,
		EndMinute:   15 * 60,
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	store, _, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	a := newOpenAssignment(store.StoreID)
	if err := txRepo.Assignment.Create(ctx, a); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建排班段失败: %v", err)
	}

	tx.Rollback()

	if _, err := repo.Assignment.GetByID(ctx, a.AssignmentID); err == nil {
		t.Fatal("期望回滚后查不到排班段，但实际查到了")
	}
}

func TestTransaction_Commit(t *testing.T) {
	store, _, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	a := newOpenAssignment(store.StoreID)
	if err := txRepo.Assignment.Create(ctx, a); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建排班段失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	found, err := repo.Assignment.GetByID(ctx, a.AssignmentID)
	if err != nil {
		t.Fatalf("提交后查询排班段失败: %v", err)
	}
	if found.EmployeeID != nil {
		t.Errorf("新建排班段应为空缺，得到 employee_id=%s", *found.EmployeeID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Assignment_ConflictDetected(t *testing.T) {
	store, _, emp, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	a := newOpenAssignment(store.StoreID)
	if err := repo.Assignment.Create(ctx, a); err != nil {
		t.Fatalf("创建排班段失败: %v", err)
	}

	copy1, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)
	copy2, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)

	copy1.EmployeeID = &emp.EmployeeID
	if err := repo.Assignment.UpdateEmployee(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	copy2.EmployeeID = nil
	err := repo.Assignment.UpdateEmployee(ctx, copy2)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

func TestScheduleWeek_BumpRevision(t *testing.T) {
	store, _, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if _, err := repo.ScheduleWeek.Get(ctx, store.StoreID, "2026-W42"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望 ErrRecordNotFound，得到: %v", err)
	}

	week := &model.ScheduleWeek{StoreID: store.StoreID, WeekID: "2026-W42"}
	if err := repo.ScheduleWeek.Create(ctx, week); err != nil {
		t.Fatalf("创建周排班失败: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, _ := repo.ScheduleWeek.Get(ctx, store.StoreID, "2026-W42")
		if err := repo.ScheduleWeek.BumpRevision(ctx, got); err != nil {
			t.Fatalf("第 %d 次自增失败: %v", i+1, err)
		}
	}

	final, _ := repo.ScheduleWeek.Get(ctx, store.StoreID, "2026-W42")
	if final.Revision != 3 {
		t.Errorf("期望 revision=3，得到: %d", final.Revision)
	}
	if final.Version != 4 {
		t.Errorf("期望 version=4，得到: %d", final.Version)
	}

	stale := *final
	stale.Version = 1
	if err := repo.ScheduleWeek.BumpRevision(ctx, &stale); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本应触发乐观锁冲突，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Lookups
// ═══════════════════════════════════════════════════════════

func TestRole_GetByNameCaseInsensitive(t *testing.T) {
	store, role, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	got, err := repo.Role.GetByName(ctx, store.StoreID, "  cAsHiEr ")
	if err != nil {
		t.Fatalf("按名称查找岗位失败: %v", err)
	}
	if got.RoleID != role.RoleID {
		t.Errorf("期望 %s，得到 %s", role.RoleID, got.RoleID)
	}

	if _, err := repo.Role.GetByName(ctx, store.StoreID, "Baker"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，得到: %v", err)
	}
}

func TestEmployee_ListEligibleForStorePreloads(t *testing.T) {
	store, _, emp, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	emps, err := repo.Employee.ListEligibleForStore(context.Background(), store.StoreID)
	if err != nil {
		t.Fatalf("查询员工失败: %v", err)
	}

	var found *model.Employee
	for i := range emps {
		if emps[i].EmployeeID == emp.EmployeeID {
			found = &emps[i]
		}
	}
	if found == nil {
		t.Fatal("未查到本店员工")
	}
	if len(found.Availability) != 2 {
		t.Errorf("期望 2 条可用时间，得到 %d", len(found.Availability))
	}
	if len(found.Roles) != 1 || found.Roles[0].Name != "Cashier" {
		t.Errorf("岗位预加载不正确: %+v", found.Roles)
	}
}

func TestAssignment_ListByWeekForEmployees(t *testing.T) {
	store, _, emp, cleanup := setupTestData(t)
	defer cleanup()
	other, _, _, cleanupOther := setupTestData(t)
	defer cleanupOther()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	here := newOpenAssignment(store.StoreID)
	here.EmployeeID = &emp.EmployeeID
	elsewhere := newOpenAssignment(other.StoreID)
	elsewhere.EmployeeID = &emp.EmployeeID
	elsewhere.Day = 2
	open := newOpenAssignment(other.StoreID)
	for _, a := range []*model.ShiftAssignment{here, elsewhere, open} {
		if err := repo.Assignment.Create(ctx, a); err != nil {
			t.Fatalf("创建排班段失败: %v", err)
		}
	}

	items, err := repo.Assignment.ListByWeekForEmployees(ctx, "2026-W42", []string{emp.EmployeeID})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("期望员工在两家门店共 2 个排班段，得到 %d", len(items))
	}
	if items[0].AssignmentID != here.AssignmentID || items[1].AssignmentID != elsewhere.AssignmentID {
		t.Errorf("排序不符: %s, %s", items[0].AssignmentID, items[1].AssignmentID)
	}

	empty, err := repo.Assignment.ListByWeekForEmployees(ctx, "2026-W42", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("空员工列表应返回空结果: %v %d", err, len(empty))
	}
}

func TestChangeLog_ListByWeek(t *testing.T) {
	store, _, emp, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		log := &model.ScheduleChangeLog{
			StoreID:       store.StoreID,
			WeekID:        "2026-W42",
			PreviewID:     fmt.Sprintf("prv-%d", i),
			NewEmployeeID: &emp.EmployeeID,
			ChangeType:    "assign_shift",
			Source:        "user",
			OperatorID:    "mgr-1",
			Revision:      i + 1,
		}
		if err := repo.ChangeLog.Create(ctx, log); err != nil {
			t.Fatalf("写入变更日志失败: %v", err)
		}
	}

	logs, total, err := repo.ChangeLog.ListByWeek(ctx, store.StoreID, "2026-W42", 0, 2)
	if err != nil {
		t.Fatalf("查询变更日志失败: %v", err)
	}
	if total != 3 || len(logs) != 2 {
		t.Errorf("期望 total=3 len=2，得到 total=%d len=%d", total, len(logs))
	}
}
