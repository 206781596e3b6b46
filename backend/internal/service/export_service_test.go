package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *memDB) {
	db := newMemDB()
	seedBasicData(db)
	repo := db.toRepository()
	logger := zap.NewNop()
	return NewExportService(repo, NewSnapshotLoader(repo, logger), logger), db
}

func assignTo(db *memDB, assignmentID, employeeID string) {
	a := db.assignments[assignmentID]
	a.EmployeeID = &employeeID
	db.assignments[assignmentID] = a
}

// ── ExportWeek 测试 ──

func TestExportService_ExportWeek_Empty(t *testing.T) {
	svc, db := setupTestExportService()
	delete(db.templates, "tpl-mon")

	_, _, err := svc.ExportWeek(context.Background(), testStoreID, testWeekID)
	if !errors.Is(err, ErrExportEmpty) {
		t.Errorf("期望 ErrExportEmpty，实际: %v", err)
	}
}

func TestExportService_ExportWeek_StoreNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportWeek(context.Background(), "store-x", testWeekID)
	if !errors.Is(err, ErrStoreNotFound) {
		t.Errorf("期望 ErrStoreNotFound，实际: %v", err)
	}
}

func TestExportService_ExportWeek_Success(t *testing.T) {
	svc, db := setupTestExportService()
	seedOpenAssignment(db, "as-thu")
	assignTo(db, "as-thu", "emp-alice")

	buf, filename, err := svc.ExportWeek(context.Background(), testStoreID, testWeekID)
	if err != nil {
		t.Fatalf("ExportWeek 应成功: %v", err)
	}
	if filename != "schedule_2026-W42.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}
	// Excel .xlsx 文件以 PK (0x504B) 开头
	if buf.Len() < 2 || buf.Bytes()[0] != 0x50 || buf.Bytes()[1] != 0x4B {
		t.Fatal("输出内容不是有效的 xlsx 文件格式（应以 PK 开头）")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("读取导出文件失败: %v", err)
	}
	defer f.Close()

	// 周一模板班次无人，周四排班段为 Alice
	rows := [][]string{
		{"Monday", "09:00-15:00", "Cashier", "待排"},
		{"Thursday", "09:00-13:00", "Cashier", "Alice"},
	}
	for i, want := range rows {
		for j, v := range want {
			got, _ := f.GetCellValue("排班表", cell(colName(j), i+3))
			if got != v {
				t.Errorf("第 %d 行第 %d 列期望 %q，实际 %q", i+3, j+1, v, got)
			}
		}
	}

	name, _ := f.GetCellValue("工时汇总", "A2")
	hours, _ := f.GetCellValue("工时汇总", "B2")
	if name != "Alice" || hours != "4h" {
		t.Errorf("工时汇总不符: %s %s", name, hours)
	}
}

// ── ExportEmployeeCalendar 测试 ──

func TestExportService_ExportEmployeeCalendar_Success(t *testing.T) {
	svc, db := setupTestExportService()
	seedOpenAssignment(db, "as-mon")
	a := db.assignments["as-mon"]
	a.Day = 0
	db.assignments["as-mon"] = a
	assignTo(db, "as-mon", "emp-alice")

	buf, filename, err := svc.ExportEmployeeCalendar(context.Background(), testStoreID, testWeekID, "emp-alice")
	if err != nil {
		t.Fatalf("ExportEmployeeCalendar 应成功: %v", err)
	}
	if filename != "shifts_2026-W42_emp-alice.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:Cashier shift",
		// 2026-W42 周一为 10 月 12 日，巴黎夏令时 09:00 = 07:00Z
		"20261012T070000Z",
		"20261012T110000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("日历内容缺少 %q", want)
		}
	}
}

func TestExportService_ExportEmployeeCalendar_NoShifts(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportEmployeeCalendar(context.Background(), testStoreID, testWeekID, "emp-bob")
	if !errors.Is(err, ErrExportNoShifts) {
		t.Errorf("期望 ErrExportNoShifts，实际: %v", err)
	}
}

func TestExportService_ExportEmployeeCalendar_SkipsOtherStores(t *testing.T) {
	svc, db := setupTestExportService()
	seedOtherStoreAssignment(db, "as-uptown-tue", "emp-bob", 1, 9*60, 13*60)

	_, _, err := svc.ExportEmployeeCalendar(context.Background(), testStoreID, testWeekID, "emp-bob")
	if !errors.Is(err, ErrExportNoShifts) {
		t.Errorf("外店排班不应导出到本店日历，期望 ErrExportNoShifts，实际: %v", err)
	}
}

func TestExportService_ExportEmployeeCalendar_EmployeeNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportEmployeeCalendar(context.Background(), testStoreID, testWeekID, "emp-x")
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("期望 ErrEmployeeNotFound，实际: %v", err)
	}
}

func TestExportService_ExportEmployeeCalendar_InvalidWeek(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportEmployeeCalendar(context.Background(), testStoreID, "2026-42", "emp-alice")
	if !errors.Is(err, ErrInvalidWeekID) {
		t.Errorf("期望 ErrInvalidWeekID，实际: %v", err)
	}
}
