package service

import (
	"context"

	"go.uber.org/zap"

	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	"tachora/backend/internal/scheduling"
)

// ScheduleService 排班只读查询：快照、派生事实、约束解释、变更日志
type ScheduleService interface {
	GetSnapshot(ctx context.Context, storeID, weekID string) (*scheduling.Snapshot, error)
	GetFacts(ctx context.Context, storeID, weekID string) (*scheduling.Facts, error)
	// CheckAssign 独立于预览的"为什么不能排"解释
	CheckAssign(ctx context.Context, op scheduling.AssignShift) (*ConstraintCheck, error)
	CheckSwap(ctx context.Context, op scheduling.SwapShifts) (*ConstraintCheck, error)
	ListChangeLogs(ctx context.Context, storeID, weekID string, page, pageSize int) ([]model.ScheduleChangeLog, int64, error)
}

// ConstraintCheck 约束校验结果及所依据的快照版本
type ConstraintCheck struct {
	Version string                           `json:"version"`
	Result  scheduling.ConstraintCheckResult `json:"result"`
}

type scheduleService struct {
	repo   *repository.Repository
	loader SnapshotLoader
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, loader SnapshotLoader, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, loader: loader, logger: logger}
}

func (s *scheduleService) GetSnapshot(ctx context.Context, storeID, weekID string) (*scheduling.Snapshot, error) {
	return s.loader.Load(ctx, storeID, weekID)
}

func (s *scheduleService) GetFacts(ctx context.Context, storeID, weekID string) (*scheduling.Facts, error) {
	return s.loader.Facts(ctx, storeID, weekID)
}

func (s *scheduleService) CheckAssign(ctx context.Context, op scheduling.AssignShift) (*ConstraintCheck, error) {
	snap, err := s.loader.Load(ctx, op.StoreID, op.WeekID)
	if err != nil {
		return nil, err
	}
	if snap, err = withReferencedEmployees(ctx, s.repo, snap, op); err != nil {
		s.logger.Error("补读员工失败", zap.String("employee_id", op.EmployeeID), zap.Error(err))
		return nil, err
	}
	return &ConstraintCheck{Version: snap.Version, Result: scheduling.CheckAssignConstraints(op, snap)}, nil
}

func (s *scheduleService) CheckSwap(ctx context.Context, op scheduling.SwapShifts) (*ConstraintCheck, error) {
	snap, err := s.loader.Load(ctx, op.StoreID, op.WeekID)
	if err != nil {
		return nil, err
	}
	return &ConstraintCheck{Version: snap.Version, Result: scheduling.CheckSwapConstraints(op, snap)}, nil
}

func (s *scheduleService) ListChangeLogs(ctx context.Context, storeID, weekID string, page, pageSize int) ([]model.ScheduleChangeLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	logs, total, err := s.repo.ChangeLog.ListByWeek(ctx, storeID, weekID, offset, pageSize)
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.String("store_id", storeID), zap.String("week_id", weekID), zap.Error(err))
		return nil, 0, err
	}
	return logs, total, nil
}
