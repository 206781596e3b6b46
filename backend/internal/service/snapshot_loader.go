package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	"tachora/backend/internal/scheduling"
)

// ── 快照模块业务错误 ──

var (
	ErrStoreNotFound     = errors.New("门店不存在")
	ErrInvalidWeekID     = errors.New("周标识格式错误，应为 YYYY-Www")
	ErrEmployeeNotFound  = errors.New("员工不存在")
	ErrInvalidDayOfWeek  = errors.New("星期取值非法")
	ErrSnapshotCorrupted = errors.New("排班数据存在非法记录")
)

// SnapshotLoader 读取门店某周的排班快照
//
// 设计说明：
//   - 一次加载在同一个只读事务内完成，保证快照内部一致
//   - 同一 store+week 的并发加载通过 singleflight 合并，返回的快照只读共享
//   - 不做跨请求缓存；版本号由内容哈希决定，调用方按需比较
type SnapshotLoader interface {
	Load(ctx context.Context, storeID, weekID string) (*scheduling.Snapshot, error)
	Facts(ctx context.Context, storeID, weekID string) (*scheduling.Facts, error)
}

type snapshotLoader struct {
	repo   *repository.Repository
	logger *zap.Logger
	group  singleflight.Group
}

// NewSnapshotLoader 创建 SnapshotLoader 实例
func NewSnapshotLoader(repo *repository.Repository, logger *zap.Logger) SnapshotLoader {
	return &snapshotLoader{repo: repo, logger: logger}
}

func (l *snapshotLoader) Load(ctx context.Context, storeID, weekID string) (*scheduling.Snapshot, error) {
	if _, err := ParseWeekID(weekID); err != nil {
		return nil, err
	}
	v, err, shared := l.group.Do(storeID+"|"+weekID, func() (interface{}, error) {
		return l.loadConsistent(ctx, storeID, weekID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("合并并发快照加载", zap.String("store_id", storeID), zap.String("week_id", weekID))
	}
	return v.(*scheduling.Snapshot), nil
}

func (l *snapshotLoader) Facts(ctx context.Context, storeID, weekID string) (*scheduling.Facts, error) {
	snap, err := l.Load(ctx, storeID, weekID)
	if err != nil {
		return nil, err
	}
	facts := scheduling.BuildFacts(snap)
	return &facts, nil
}

// loadConsistent 在只读事务中读取全部行
func (l *snapshotLoader) loadConsistent(ctx context.Context, storeID, weekID string) (*scheduling.Snapshot, error) {
	tx, err := l.repo.BeginTx(ctx)
	if err != nil {
		l.logger.Error("开启快照读取事务失败", zap.Error(err))
		return nil, err
	}
	snap, err := loadSnapshot(ctx, l.repo.WithTx(tx), storeID, weekID)
	if tx != nil {
		tx.Rollback()
	}
	if err != nil {
		if !isDomainError(err) {
			l.logger.Error("加载排班快照失败",
				zap.String("store_id", storeID), zap.String("week_id", weekID), zap.Error(err))
		}
		return nil, err
	}
	return snap, nil
}

// loadSnapshot 通过给定的 Repository（可能已绑定事务）读取快照
func loadSnapshot(ctx context.Context, repo *repository.Repository, storeID, weekID string) (*scheduling.Snapshot, error) {
	if _, err := repo.Store.GetByID(ctx, storeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
		}
		return nil, err
	}

	revision := 0
	week, err := repo.ScheduleWeek.Get(ctx, storeID, weekID)
	switch {
	case err == nil:
		revision = week.Revision
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	templates, err := repo.Template.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	assignments, err := repo.Assignment.ListByWeek(ctx, storeID, weekID)
	if err != nil {
		return nil, err
	}
	employees, err := repo.Employee.ListEligibleForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	roles, err := repo.Role.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	// 员工在其他门店的排班同样占用工时、影响重叠与休息
	employeeIDs := make([]string, 0, len(employees))
	for _, e := range employees {
		employeeIDs = append(employeeIDs, e.EmployeeID)
	}
	elsewhere, err := repo.Assignment.ListByWeekForEmployees(ctx, weekID, employeeIDs)
	if err != nil {
		return nil, err
	}

	in := scheduling.SnapshotInput{
		StoreID:     storeID,
		WeekID:      weekID,
		Revision:    revision,
		Templates:   make([]scheduling.ShiftTemplateInput, 0, len(templates)),
		Assignments: make([]scheduling.AssignmentSegment, 0, len(assignments)),
		Employees:   make([]scheduling.EmployeeProfile, 0, len(employees)),
		Roles:       make([]scheduling.RoleRef, 0, len(roles)),
	}
	for _, t := range templates {
		in.Templates = append(in.Templates, toTemplateInput(t))
	}
	for _, a := range assignments {
		seg, err := toSegment(a)
		if err != nil {
			return nil, err
		}
		in.Assignments = append(in.Assignments, seg)
	}
	for _, a := range elsewhere {
		if a.StoreID == storeID {
			continue
		}
		seg, err := toSegment(a)
		if err != nil {
			return nil, err
		}
		in.ExternalAssignments = append(in.ExternalAssignments, seg)
	}
	for _, e := range employees {
		in.Employees = append(in.Employees, toProfile(e))
	}
	for _, r := range roles {
		in.Roles = append(in.Roles, scheduling.RoleRef{ID: r.RoleID, Name: r.Name})
	}
	return scheduling.BuildSnapshot(in), nil
}

// withReferencedEmployees 补读操作点名但不在快照内的员工（外店且不可跨店），
// 使校验给出逐条原因（如 store:mismatch）而不是"员工不存在"；版本号不变
func withReferencedEmployees(ctx context.Context, repo *repository.Repository, snap *scheduling.Snapshot, ops ...scheduling.Operation) (*scheduling.Snapshot, error) {
	var extra []scheduling.EmployeeProfile
	seen := make(map[string]bool)
	for _, op := range ops {
		assign, ok := op.(scheduling.AssignShift)
		if !ok || assign.EmployeeID == "" || seen[assign.EmployeeID] {
			continue
		}
		seen[assign.EmployeeID] = true
		if _, ok := snap.Employee(assign.EmployeeID); ok {
			continue
		}
		emp, err := repo.Employee.GetByID(ctx, assign.EmployeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		extra = append(extra, toProfile(*emp))
	}
	if len(extra) == 0 {
		return snap, nil
	}
	return snap.WithEmployees(extra...), nil
}

// ── 持久化模型 → 排班读模型 ──

func weekdayOf(day int) (scheduling.Weekday, error) {
	if day < 0 || day > 6 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, day)
	}
	return scheduling.WeekdayFromIndex(day), nil
}

func toTemplateInput(t model.ShiftTemplate) scheduling.ShiftTemplateInput {
	in := scheduling.ShiftTemplateInput{
		ID:          t.TemplateID,
		StartMinute: t.StartMinute,
		EndMinute:   t.EndMinute,
	}
	if t.RoleID != nil {
		in.RoleID = *t.RoleID
	}
	if t.Role != nil {
		in.RoleName = t.Role.Name
	}
	for _, d := range t.Days {
		// 非法星期由 BuildSnapshot 忽略
		if wd, err := weekdayOf(d); err == nil {
			in.Days = append(in.Days, wd)
		}
	}
	return in
}

func toSegment(a model.ShiftAssignment) (scheduling.AssignmentSegment, error) {
	day, err := weekdayOf(a.Day)
	if err != nil {
		return scheduling.AssignmentSegment{}, fmt.Errorf("%w: assignment %s: %v", ErrSnapshotCorrupted, a.AssignmentID, err)
	}
	seg := scheduling.AssignmentSegment{
		ID:          a.AssignmentID,
		StoreID:     a.StoreID,
		Day:         day,
		StartMinute: a.StartMinute,
		EndMinute:   a.EndMinute,
		EmployeeID:  deref(a.EmployeeID),
		TemplateID:  deref(a.TemplateID),
		RoleID:      deref(a.RoleID),
	}
	if a.Role != nil {
		seg.RoleName = a.Role.Name
	}
	return seg, nil
}

func toProfile(e model.Employee) scheduling.EmployeeProfile {
	p := scheduling.EmployeeProfile{
		ID:                  e.EmployeeID,
		Name:                e.Name,
		HomeStoreID:         e.HomeStoreID,
		CanWorkAcrossStores: e.CanWorkAcrossStores,
		ContractType:        e.ContractType,
		WeeklyMinutesTarget: e.WeeklyMinutesTarget,
	}
	for _, a := range e.Availability {
		day, err := weekdayOf(a.Day)
		if err != nil {
			continue
		}
		p.Availability = append(p.Availability, scheduling.AvailabilitySlot{
			Day:         day,
			IsOff:       a.IsOff,
			StartMinute: a.StartMinute,
			EndMinute:   a.EndMinute,
		})
	}
	for _, r := range e.Roles {
		p.RoleIDs = append(p.RoleIDs, r.RoleID)
		p.RoleNames = append(p.RoleNames, r.Name)
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
