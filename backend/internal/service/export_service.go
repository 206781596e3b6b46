package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tachora/backend/internal/repository"
	"tachora/backend/internal/scheduling"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("该周暂无班次")
	ErrExportNoShifts     = errors.New("该员工本周没有排班")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 周排班导出为 Excel (.xlsx)：Sheet1 按天列出排班段，Sheet2 为员工工时汇总
//   - 员工个人排班导出为 iCalendar (.ics)，时间按门店时区换算
//   - 内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	ExportWeek(ctx context.Context, storeID, weekID string) (*bytes.Buffer, string, error)
	ExportEmployeeCalendar(ctx context.Context, storeID, weekID, employeeID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loader SnapshotLoader
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loader SnapshotLoader, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loader: loader, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportWeek：周排班导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "排班表"：星期 | 时间 | 岗位 | 员工（空缺显示"待排"）
//   - Sheet "工时汇总"：员工 | 本周工时 | 目标工时 | 排班天数 | 冲突

func (s *exportService) ExportWeek(ctx context.Context, storeID, weekID string) (*bytes.Buffer, string, error) {
	snap, err := s.loader.Load(ctx, storeID, weekID)
	if err != nil {
		return nil, "", err
	}

	segments := append([]scheduling.AssignmentSegment(nil), snap.Assignments...)
	// 尚未生成排班段的模板班次按空缺导出
	for _, sh := range snap.Shifts {
		if len(snap.LinkedAssignments(sh)) == 0 {
			segments = append(segments, scheduling.AssignmentSegment{
				ID: sh.ID, Day: sh.Day, StartMinute: sh.StartMinute, EndMinute: sh.EndMinute,
				TemplateID: sh.TemplateID, RoleID: sh.RoleID, RoleName: sh.RoleName,
			})
		}
	}
	if len(segments) == 0 {
		return nil, "", ErrExportEmpty
	}
	sortSegments(segments)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排班表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "D", 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 排班表（版本 %s）", weekID, snap.Version))
	f.MergeCell(sheetName, "A1", "D1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	row := 2
	for i, h := range []string{"星期", "时间", "岗位", "员工"} {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell("D", row), headerStyle)

	row = 3
	for _, seg := range segments {
		who := "待排"
		if emp, ok := snap.Employee(seg.EmployeeID); ok {
			who = emp.Name
		}
		f.SetCellValue(sheetName, cell("A", row), seg.Day.Name())
		f.SetCellValue(sheetName, cell("B", row), fmt.Sprintf("%s-%s", scheduling.FormatMinute(seg.StartMinute), scheduling.FormatMinute(seg.EndMinute)))
		f.SetCellValue(sheetName, cell("C", row), seg.RoleName)
		f.SetCellValue(sheetName, cell("D", row), who)
		row++
	}

	// 工时汇总
	summary := "工时汇总"
	f.NewSheet(summary)
	f.SetColWidth(summary, "A", "A", 16)
	f.SetColWidth(summary, "B", "D", 12)
	f.SetColWidth(summary, "E", "E", 60)
	for i, h := range []string{"员工", "本周工时", "目标工时", "排班天数", "冲突"} {
		f.SetCellValue(summary, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summary, "A1", "E1", headerStyle)

	facts := scheduling.BuildFacts(snap)
	for i, ef := range facts.Employees {
		r := i + 2
		f.SetCellValue(summary, cell("A", r), ef.Name)
		f.SetCellValue(summary, cell("B", r), scheduling.FormatDuration(ef.WeeklyMinutes))
		f.SetCellValue(summary, cell("C", r), scheduling.FormatDuration(ef.TargetWeeklyMinutes))
		f.SetCellValue(summary, cell("D", r), ef.DaysWorked)
		f.SetCellValue(summary, cell("E", r), strings.Join(ef.Conflicts, "\n"))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("schedule_%s.xlsx", weekID), nil
}

// ═══════════════════════════════════════════════════════════
// ExportEmployeeCalendar：员工本周排班导出为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportEmployeeCalendar(ctx context.Context, storeID, weekID, employeeID string) (*bytes.Buffer, string, error) {
	monday, err := ParseWeekID(weekID)
	if err != nil {
		return nil, "", err
	}
	snap, err := s.loader.Load(ctx, storeID, weekID)
	if err != nil {
		return nil, "", err
	}
	emp, ok := snap.Employee(employeeID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrEmployeeNotFound, employeeID)
	}
	// 只导出本店的排班段
	var segments []scheduling.AssignmentSegment
	for _, seg := range snap.EmployeeState(employeeID).Segments {
		if seg.StoreID == "" || seg.StoreID == storeID {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return nil, "", ErrExportNoShifts
	}

	loc := time.UTC
	if store, err := s.repo.Store.GetByID(ctx, storeID); err == nil && store.Timezone != "" {
		if l, err := time.LoadLocation(store.Timezone); err == nil {
			loc = l
		} else {
			s.logger.Warn("门店时区无效，按 UTC 导出", zap.String("timezone", store.Timezone))
		}
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//tachora//schedule export//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s %s", emp.Name, weekID))

	stamp := time.Now().UTC()
	base := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
	for _, seg := range segments {
		day := base.AddDate(0, 0, seg.Day.Index())
		evt := cal.AddEvent(fmt.Sprintf("%s-%s@tachora", seg.ID, employeeID))
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(day.Add(time.Duration(seg.StartMinute) * time.Minute))
		evt.SetEndAt(day.Add(time.Duration(seg.EndMinute) * time.Minute))
		summary := "Shift"
		if seg.RoleName != "" {
			summary = seg.RoleName + " shift"
		}
		evt.SetSummary(summary)
		evt.SetDescription(fmt.Sprintf("%s %s-%s (%s)", seg.Day.Name(),
			scheduling.FormatMinute(seg.StartMinute), scheduling.FormatMinute(seg.EndMinute),
			scheduling.FormatDuration(seg.Duration())))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("shifts_%s_%s.ics", weekID, employeeID), nil
}

// ── 辅助 ──

func sortSegments(segs []scheduling.AssignmentSegment) {
	sort.Slice(segs, func(i, j int) bool {
		a, b := segs[i], segs[j]
		am, bm := scheduling.AbsoluteMinute(a.Day, a.StartMinute), scheduling.AbsoluteMinute(b.Day, b.StartMinute)
		if am != bm {
			return am < bm
		}
		return a.ID < b.ID
	})
}

func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
