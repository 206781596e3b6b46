package repository

import (
	"context"

	"gorm.io/gorm"

	"tachora/backend/internal/model"
	pkgerrors "tachora/backend/pkg/errors"
)

// ShiftTemplateRepository 班次模板数据访问接口
type ShiftTemplateRepository interface {
	Create(ctx context.Context, tpl *model.ShiftTemplate) error
	ListActiveByStore(ctx context.Context, storeID string) ([]model.ShiftTemplate, error)
}

// ShiftAssignmentRepository 排班段数据访问接口
type ShiftAssignmentRepository interface {
	Create(ctx context.Context, a *model.ShiftAssignment) error
	GetByID(ctx context.Context, id string) (*model.ShiftAssignment, error)
	ListByWeek(ctx context.Context, storeID, weekID string) ([]model.ShiftAssignment, error)
	// ListByWeekForEmployees 指定员工本周在所有门店的已排班段
	ListByWeekForEmployees(ctx context.Context, weekID string, employeeIDs []string) ([]model.ShiftAssignment, error)
	// UpdateEmployee 乐观锁更新员工（nil 表示置空）
	UpdateEmployee(ctx context.Context, a *model.ShiftAssignment) error
}

// ScheduleWeekRepository 周排班版本数据访问接口
type ScheduleWeekRepository interface {
	// Get 不存在时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context, storeID, weekID string) (*model.ScheduleWeek, error)
	Create(ctx context.Context, week *model.ScheduleWeek) error
	// BumpRevision 乐观锁自增 revision
	BumpRevision(ctx context.Context, week *model.ScheduleWeek) error
}

// ScheduleChangeLogRepository 排班变更日志数据访问接口
type ScheduleChangeLogRepository interface {
	Create(ctx context.Context, log *model.ScheduleChangeLog) error
	ListByWeek(ctx context.Context, storeID, weekID string, offset, limit int) ([]model.ScheduleChangeLog, int64, error)
}

// ── ShiftTemplate Repository 实现 ──

type shiftTemplateRepo struct {
	db *gorm.DB
}

func NewShiftTemplateRepo(db *gorm.DB) ShiftTemplateRepository {
	return &shiftTemplateRepo{db: db}
}

func (r *shiftTemplateRepo) Create(ctx context.Context, tpl *model.ShiftTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *shiftTemplateRepo) ListActiveByStore(ctx context.Context, storeID string) ([]model.ShiftTemplate, error) {
	var tpls []model.ShiftTemplate
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("start_minute ASC, template_id ASC").
		Find(&tpls).Error
	return tpls, err
}

// ── ShiftAssignment Repository 实现 ──

type shiftAssignmentRepo struct {
	db *gorm.DB
}

func NewShiftAssignmentRepo(db *gorm.DB) ShiftAssignmentRepository {
	return &shiftAssignmentRepo{db: db}
}

func (r *shiftAssignmentRepo) Create(ctx context.Context, a *model.ShiftAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *shiftAssignmentRepo) GetByID(ctx context.Context, id string) (*model.ShiftAssignment, error) {
	var a model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *shiftAssignmentRepo) ListByWeek(ctx context.Context, storeID, weekID string) ([]model.ShiftAssignment, error) {
	var items []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("store_id = ? AND week_id = ?", storeID, weekID).
		Order("day ASC, start_minute ASC, assignment_id ASC").
		Find(&items).Error
	return items, err
}

func (r *shiftAssignmentRepo) ListByWeekForEmployees(ctx context.Context, weekID string, employeeIDs []string) ([]model.ShiftAssignment, error) {
	var items []model.ShiftAssignment
	if len(employeeIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("week_id = ? AND employee_id IN ?", weekID, employeeIDs).
		Order("day ASC, start_minute ASC, assignment_id ASC").
		Find(&items).Error
	return items, err
}

func (r *shiftAssignmentRepo) UpdateEmployee(ctx context.Context, a *model.ShiftAssignment) error {
	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(a).
		Where("assignment_id = ? AND version = ?", a.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"employee_id": a.EmployeeID,
			"updated_by":  a.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}

// ── ScheduleWeek Repository 实现 ──

type scheduleWeekRepo struct {
	db *gorm.DB
}

func NewScheduleWeekRepo(db *gorm.DB) ScheduleWeekRepository {
	return &scheduleWeekRepo{db: db}
}

func (r *scheduleWeekRepo) Get(ctx context.Context, storeID, weekID string) (*model.ScheduleWeek, error) {
	var week model.ScheduleWeek
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND week_id = ?", storeID, weekID).
		First(&week).Error
	if err != nil {
		return nil, err
	}
	return &week, nil
}

func (r *scheduleWeekRepo) Create(ctx context.Context, week *model.ScheduleWeek) error {
	return r.db.WithContext(ctx).Create(week).Error
}

func (r *scheduleWeekRepo) BumpRevision(ctx context.Context, week *model.ScheduleWeek) error {
	oldVersion := week.Version
	result := r.db.WithContext(ctx).
		Model(week).
		Where("schedule_week_id = ? AND version = ?", week.ScheduleWeekID, oldVersion).
		Updates(map[string]interface{}{
			"revision":   week.Revision + 1,
			"updated_by": week.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	week.Revision++
	week.Version = oldVersion + 1
	return nil
}

// ── ScheduleChangeLog Repository 实现 ──

type scheduleChangeLogRepo struct {
	db *gorm.DB
}

func NewScheduleChangeLogRepo(db *gorm.DB) ScheduleChangeLogRepository {
	return &scheduleChangeLogRepo{db: db}
}

func (r *scheduleChangeLogRepo) Create(ctx context.Context, log *model.ScheduleChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *scheduleChangeLogRepo) ListByWeek(ctx context.Context, storeID, weekID string, offset, limit int) ([]model.ScheduleChangeLog, int64, error) {
	var logs []model.ScheduleChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ScheduleChangeLog{}).
		Where("store_id = ? AND week_id = ?", storeID, weekID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}
