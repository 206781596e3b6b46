package handler

import "tachora/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule     *ScheduleHandler
	Preview      *PreviewHandler
	Conversation *ConversationHandler
	Export       *ExportHandler
	Health       *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, defaultLocale string, checks map[string]HealthCheck) *Handler {
	return &Handler{
		Schedule:     NewScheduleHandler(svc.Schedule, svc.Candidate),
		Preview:      NewPreviewHandler(svc.Preview),
		Conversation: NewConversationHandler(svc.Conversation, defaultLocale),
		Export:       NewExportHandler(svc.Export),
		Health:       NewHealthHandler(checks),
	}
}
