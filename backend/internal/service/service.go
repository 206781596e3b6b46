package service

import (
	"go.uber.org/zap"

	"tachora/backend/config"
	"tachora/backend/internal/conversation"
	"tachora/backend/internal/repository"
	"tachora/backend/pkg/kvstore"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Loader       SnapshotLoader
	Schedule     ScheduleService
	Preview      PreviewService
	Candidate    CandidateService
	Conversation ConversationService
	Export       ExportService
}

// NewService 创建 Service 聚合
//
// 预览与对话记忆共用同一个键值存储；快照加载器由所有服务共享，
// 以便并发加载合并生效。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	kv kvstore.Store,
	logger *zap.Logger,
) *Service {
	loader := NewSnapshotLoader(repo, logger)
	preview := NewPreviewService(&cfg.Scheduling, repo, loader, kv, logger)
	candidate := NewCandidateService(loader, logger)
	memory := conversation.NewMemoryStore(kv, cfg.Scheduling.TurnMemoryTTL, cfg.Scheduling.FocusMemoryTTL)
	interpreter := conversation.NewInterpreter(conversation.DefaultTables())

	return &Service{
		Loader:       loader,
		Schedule:     NewScheduleService(repo, loader, logger),
		Preview:      preview,
		Candidate:    candidate,
		Conversation: NewConversationService(candidate, preview, loader, memory, interpreter, logger),
		Export:       NewExportService(repo, loader, logger),
	}
}
