package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tachora/backend/config"
	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	"tachora/backend/internal/scheduling"
	pkgerrors "tachora/backend/pkg/errors"
	"tachora/backend/pkg/kvstore"
)

// CreatePreviewRequest 创建预览参数
type CreatePreviewRequest struct {
	StoreID         string
	WeekID          string
	Operations      []scheduling.Operation
	SnapshotVersion string
	ActorID         string
	Source          scheduling.Source
	UndoOf          string
}

// PreviewResult 创建成功的预览及其提醒
type PreviewResult struct {
	Preview  *scheduling.Preview `json:"preview"`
	Warnings []string            `json:"warnings"`
}

// ApplyResult 应用结果
type ApplyResult struct {
	PreviewID  string `json:"preview_id"`
	AppliedOps int    `json:"applied_ops"`
	Version    string `json:"version"`
	Revision   int    `json:"revision"`
}

// DiscardResult 丢弃结果；预览已不存在时 Success=false
type DiscardResult struct {
	PreviewID string `json:"preview_id"`
	Success   bool   `json:"success"`
}

// UndoResult 撤销结果：新建并应用的反向预览
type UndoResult struct {
	UndonePreviewID string              `json:"undone_preview_id"`
	Preview         *scheduling.Preview `json:"preview"`
	Apply           *ApplyResult        `json:"apply"`
}

// PreviewService 排班预览业务接口
//
// 设计说明：
//   - 预览只存于带 TTL 的键值存储：待应用 30 分钟，已应用 1 小时（撤销窗口）
//   - 创建时校验调用方持有的快照版本，应用时在事务内再次校验实时版本
//   - 任一操作存在阻断项则整个预览被拒绝，不落任何数据
//   - 所有失败都交由调用方重新决策，不做自动重试
type PreviewService interface {
	Create(ctx context.Context, req *CreatePreviewRequest) (*PreviewResult, error)
	Apply(ctx context.Context, previewID, actorID, expectedVersion string) (*ApplyResult, error)
	Discard(ctx context.Context, previewID string) (*DiscardResult, error)
	Undo(ctx context.Context, previewID, actorID string) (*UndoResult, error)
	Get(ctx context.Context, previewID string) (*scheduling.Preview, error)
}

type previewService struct {
	repo       *repository.Repository
	loader     SnapshotLoader
	kv         kvstore.Store
	ttl        time.Duration
	appliedTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewPreviewService 创建 PreviewService 实例
func NewPreviewService(
	cfg *config.SchedulingConfig,
	repo *repository.Repository,
	loader SnapshotLoader,
	kv kvstore.Store,
	logger *zap.Logger,
) PreviewService {
	return &previewService{
		repo:       repo,
		loader:     loader,
		kv:         kv,
		ttl:        cfg.PreviewTTL,
		appliedTTL: cfg.AppliedPreviewTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func previewKey(id string) string { return "preview:" + id }

// ════════════════════════════════════════════════════════════
// Create：版本校验 → 逐操作推演 → 全有或全无 → 持久化
// ════════════════════════════════════════════════════════════

func (s *previewService) Create(ctx context.Context, req *CreatePreviewRequest) (*PreviewResult, error) {
	if len(req.Operations) == 0 {
		return nil, ErrNoOperations
	}
	for _, op := range req.Operations {
		m := op.Meta()
		if (m.StoreID != "" && m.StoreID != req.StoreID) || (m.WeekID != "" && m.WeekID != req.WeekID) {
			return nil, fmt.Errorf("%w: %s", ErrOperationScope, op.Type())
		}
	}

	snap, err := s.loader.Load(ctx, req.StoreID, req.WeekID)
	if err != nil {
		return nil, err
	}
	if snap.Version != req.SnapshotVersion {
		return nil, fmt.Errorf("%w: expected %s, current %s", ErrVersionMismatch, req.SnapshotVersion, snap.Version)
	}
	if snap, err = withReferencedEmployees(ctx, s.repo, snap, req.Operations...); err != nil {
		s.logger.Error("补读员工失败", zap.Error(err))
		return nil, err
	}

	diffs, after := scheduling.BuildDiffs(req.Operations, snap)
	if blockers := scheduling.Blockers(diffs); len(blockers) > 0 {
		s.logger.Info("预览被约束拒绝",
			zap.String("store_id", req.StoreID),
			zap.String("week_id", req.WeekID),
			zap.Strings("blockers", blockers),
		)
		return nil, &ConstraintViolationError{Blockers: blockers}
	}

	now := s.now().UTC()
	source := req.Source
	if source == "" {
		source = scheduling.SourceUser
	}
	p := &scheduling.Preview{
		ID:              "prv_" + uuid.NewString(),
		StoreID:         req.StoreID,
		WeekID:          req.WeekID,
		SnapshotVersion: snap.Version,
		Operations:      scheduling.OperationList(req.Operations),
		Diffs:           diffs,
		Visualization:   scheduling.BuildVisualization(diffs, snap, after),
		Status:          scheduling.PreviewPending,
		Source:          source,
		CreatedBy:       req.ActorID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
		UndoOf:          req.UndoOf,
	}
	if err := s.save(ctx, p, s.ttl); err != nil {
		s.logger.Error("保存预览失败", zap.String("preview_id", p.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("预览已创建",
		zap.String("preview_id", p.ID),
		zap.String("store_id", p.StoreID),
		zap.String("week_id", p.WeekID),
		zap.Int("operations", len(p.Operations)),
	)
	return &PreviewResult{Preview: p, Warnings: nonNil(p.Warnings())}, nil
}

// ════════════════════════════════════════════════════════════
// Apply：事务内复核实时版本，逐操作写库，revision 自增
// ════════════════════════════════════════════════════════════

func (s *previewService) Apply(ctx context.Context, previewID, actorID, expectedVersion string) (*ApplyResult, error) {
	p, err := s.load(ctx, previewID)
	if err != nil {
		return nil, err
	}
	if p.Status != scheduling.PreviewPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrPreviewNotPending, previewID, p.Status)
	}
	if p.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrPreviewExpired, previewID)
	}
	if expectedVersion != "" && expectedVersion != p.SnapshotVersion {
		return nil, fmt.Errorf("%w: expected %s, preview built on %s", ErrVersionMismatch, expectedVersion, p.SnapshotVersion)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	txRepo := s.repo.WithTx(tx)
	result, err := s.applyInTx(ctx, txRepo, p, actorID)
	if err != nil {
		rollback()
		if !isDomainError(err) {
			s.logger.Error("应用预览失败", zap.String("preview_id", previewID), zap.Error(err))
		}
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.String("preview_id", previewID), zap.Error(err))
			return nil, err
		}
	}

	appliedAt := s.now().UTC()
	p.Status = scheduling.PreviewApplied
	p.AppliedAt = &appliedAt
	p.AppliedBy = actorID
	p.AppliedVersion = result.Version
	if err := s.save(ctx, p, s.appliedTTL); err != nil {
		// 数据已提交，仅影响撤销窗口
		s.logger.Error("更新预览状态失败，撤销将不可用", zap.String("preview_id", previewID), zap.Error(err))
	}

	s.logger.Info("预览已应用",
		zap.String("preview_id", previewID),
		zap.String("actor_id", actorID),
		zap.Int("applied_ops", result.AppliedOps),
		zap.String("version", result.Version),
	)
	return result, nil
}

func (s *previewService) applyInTx(ctx context.Context, txRepo *repository.Repository, p *scheduling.Preview, actorID string) (*ApplyResult, error) {
	live, err := loadSnapshot(ctx, txRepo, p.StoreID, p.WeekID)
	if err != nil {
		return nil, err
	}
	if live.Version != p.SnapshotVersion {
		return nil, fmt.Errorf("%w: preview built on %s, current %s", ErrVersionMismatch, p.SnapshotVersion, live.Version)
	}

	week, err := s.ensureWeek(ctx, txRepo, p.StoreID, p.WeekID)
	if err != nil {
		return nil, err
	}

	a := &operationApplier{
		ctx:      ctx,
		repo:     txRepo,
		working:  live,
		preview:  p,
		actorID:  actorID,
		revision: week.Revision + 1,
		created:  make(map[string]string),
	}
	for _, op := range p.Operations {
		if _, err := scheduling.Visit[struct{}](op, a); err != nil {
			return nil, err
		}
		_, a.working = scheduling.BuildDiffs([]scheduling.Operation{op}, a.working)
	}
	for i := range a.logs {
		if err := txRepo.ChangeLog.Create(ctx, &a.logs[i]); err != nil {
			return nil, err
		}
	}

	week.UpdatedBy = strPtr(actorID)
	if err := txRepo.ScheduleWeek.BumpRevision(ctx, week); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, fmt.Errorf("%w: concurrent apply on %s/%s", ErrVersionMismatch, p.StoreID, p.WeekID)
		}
		return nil, err
	}

	after, err := loadSnapshot(ctx, txRepo, p.StoreID, p.WeekID)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{
		PreviewID:  p.ID,
		AppliedOps: len(p.Operations),
		Version:    after.Version,
		Revision:   after.Revision,
	}, nil
}

func (s *previewService) ensureWeek(ctx context.Context, repo *repository.Repository, storeID, weekID string) (*model.ScheduleWeek, error) {
	week, err := repo.ScheduleWeek.Get(ctx, storeID, weekID)
	if err == nil {
		return week, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	week = &model.ScheduleWeek{StoreID: storeID, WeekID: weekID}
	if err := repo.ScheduleWeek.Create(ctx, week); err != nil {
		return nil, err
	}
	return week, nil
}

// ════════════════════════════════════════════════════════════
// Discard / Get
// ════════════════════════════════════════════════════════════

func (s *previewService) Discard(ctx context.Context, previewID string) (*DiscardResult, error) {
	ok, err := s.kv.Delete(ctx, previewKey(previewID))
	if err != nil {
		s.logger.Error("删除预览失败", zap.String("preview_id", previewID), zap.Error(err))
		return nil, err
	}
	if ok {
		s.logger.Info("预览已丢弃", zap.String("preview_id", previewID))
	}
	return &DiscardResult{PreviewID: previewID, Success: ok}, nil
}

func (s *previewService) Get(ctx context.Context, previewID string) (*scheduling.Preview, error) {
	p, err := s.load(ctx, previewID)
	if err != nil {
		return nil, err
	}
	if p.Status == scheduling.PreviewPending && p.Expired(s.now()) {
		p.Status = scheduling.PreviewExpired
	}
	return p, nil
}

// ════════════════════════════════════════════════════════════
// Undo：反向操作组成新预览，走完整校验流程后应用
// ════════════════════════════════════════════════════════════

func (s *previewService) Undo(ctx context.Context, previewID, actorID string) (*UndoResult, error) {
	p, err := s.load(ctx, previewID)
	if err != nil {
		return nil, err
	}
	if p.Status != scheduling.PreviewApplied {
		return nil, fmt.Errorf("%w: %s is %s", ErrPreviewNotApplied, previewID, p.Status)
	}
	inverse := p.InverseOperations()
	if len(inverse) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingToUndo, previewID)
	}

	snap, err := s.loader.Load(ctx, p.StoreID, p.WeekID)
	if err != nil {
		return nil, err
	}
	created, err := s.Create(ctx, &CreatePreviewRequest{
		StoreID:         p.StoreID,
		WeekID:          p.WeekID,
		Operations:      inverse,
		SnapshotVersion: snap.Version,
		ActorID:         actorID,
		Source:          p.Source,
		UndoOf:          p.ID,
	})
	if err != nil {
		return nil, err
	}
	applied, err := s.Apply(ctx, created.Preview.ID, actorID, snap.Version)
	if err != nil {
		return nil, err
	}

	s.logger.Info("预览已撤销", zap.String("preview_id", previewID), zap.String("undo_preview_id", created.Preview.ID))
	return &UndoResult{UndonePreviewID: previewID, Preview: created.Preview, Apply: applied}, nil
}

// ── 持久化辅助 ──

func (s *previewService) save(ctx context.Context, p *scheduling.Preview, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.SetWithTTL(ctx, previewKey(p.ID), b, ttl)
}

func (s *previewService) load(ctx context.Context, previewID string) (*scheduling.Preview, error) {
	b, err := s.kv.Get(ctx, previewKey(previewID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPreviewNotFound, previewID)
		}
		s.logger.Error("读取预览失败", zap.String("preview_id", previewID), zap.Error(err))
		return nil, err
	}
	var p scheduling.Preview
	if err := json.Unmarshal(b, &p); err != nil {
		s.logger.Error("预览反序列化失败", zap.String("preview_id", previewID), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
