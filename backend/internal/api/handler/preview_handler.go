package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/dto"
	"tachora/backend/internal/scheduling"
	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

// PreviewHandler 排班预览 HTTP 处理器
//
// 预览按 ID 存取；路径中的 store_id 必须与预览所属门店一致，
// 否则按不存在处理，避免跨门店探测预览 ID。
type PreviewHandler struct {
	previewSvc service.PreviewService
}

// NewPreviewHandler 创建 PreviewHandler
func NewPreviewHandler(previewSvc service.PreviewService) *PreviewHandler {
	return &PreviewHandler{previewSvc: previewSvc}
}

// Create 创建预览
// POST /api/v1/stores/:store_id/weeks/:week_id/previews
func (h *PreviewHandler) Create(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	result, err := h.previewSvc.Create(c.Request.Context(), &service.CreatePreviewRequest{
		StoreID:         storeID,
		WeekID:          weekID,
		Operations:      req.Operations,
		SnapshotVersion: req.SnapshotVersion,
		ActorID:         userID,
		Source:          scheduling.SourceUser,
	})
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 获取预览
// GET /api/v1/stores/:store_id/previews/:preview_id
func (h *PreviewHandler) Get(c *gin.Context) {
	p, ok := h.mustLoad(c)
	if !ok {
		return
	}
	response.OK(c, p)
}

// Apply 应用预览
// POST /api/v1/stores/:store_id/previews/:preview_id/apply
func (h *PreviewHandler) Apply(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ApplyPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	p, ok := h.mustLoad(c)
	if !ok {
		return
	}

	result, err := h.previewSvc.Apply(c.Request.Context(), p.ID, userID, req.ExpectedVersion)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// Discard 丢弃预览；重复丢弃返回 success=false
// DELETE /api/v1/stores/:store_id/previews/:preview_id
func (h *PreviewHandler) Discard(c *gin.Context) {
	previewID := c.Param("preview_id")
	p, err := h.previewSvc.Get(c.Request.Context(), previewID)
	switch {
	case err == nil && p.StoreID != c.Param("store_id"):
		response.NotFound(c, 14003, "预览不存在")
		return
	case err != nil && !errors.Is(err, service.ErrPreviewNotFound):
		handleSchedulingError(c, err)
		return
	}

	result, err := h.previewSvc.Discard(c.Request.Context(), previewID)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// Undo 撤销已应用的预览
// POST /api/v1/stores/:store_id/previews/:preview_id/undo
func (h *PreviewHandler) Undo(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	p, ok := h.mustLoad(c)
	if !ok {
		return
	}

	result, err := h.previewSvc.Undo(c.Request.Context(), p.ID, userID)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// mustLoad 读取预览并校验门店归属
func (h *PreviewHandler) mustLoad(c *gin.Context) (*scheduling.Preview, bool) {
	previewID := c.Param("preview_id")
	if previewID == "" {
		response.BadRequest(c, 14000, "预览ID不能为空")
		return nil, false
	}

	p, err := h.previewSvc.Get(c.Request.Context(), previewID)
	if err != nil {
		handleSchedulingError(c, err)
		return nil, false
	}
	if p.StoreID != c.Param("store_id") {
		response.NotFound(c, 14003, "预览不存在")
		return nil, false
	}
	return p, true
}
