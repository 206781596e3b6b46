package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/dto"
	"tachora/backend/internal/scheduling"
	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

// ConversationHandler 对话式排班 HTTP 处理器
type ConversationHandler struct {
	conversationSvc service.ConversationService
	defaultLocale   string
}

// NewConversationHandler 创建 ConversationHandler
func NewConversationHandler(conversationSvc service.ConversationService, defaultLocale string) *ConversationHandler {
	return &ConversationHandler{conversationSvc: conversationSvc, defaultLocale: defaultLocale}
}

// PresentCandidates 列出编号候选并写入轮次记忆
// POST /api/v1/stores/:store_id/weeks/:week_id/conversation/candidates
func (h *ConversationHandler) PresentCandidates(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PresentCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}
	var day scheduling.Weekday
	if req.Day != "" {
		d, err := scheduling.ParseWeekday(req.Day)
		if err != nil {
			response.BadRequest(c, 14017, "星期取值非法")
			return
		}
		day = d
	}

	result, err := h.conversationSvc.PresentCandidates(c.Request.Context(), &service.PresentCandidatesRequest{
		UserID:     userID,
		StoreID:    storeID,
		WeekID:     weekID,
		ThreadID:   req.ThreadID,
		EmployeeID: req.EmployeeID,
		Day:        day,
		Role:       req.Role,
	})
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// Reply 解析用户对候选列表的回复
// POST /api/v1/stores/:store_id/weeks/:week_id/conversation/reply
func (h *ConversationHandler) Reply(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	result, err := h.conversationSvc.Reply(c.Request.Context(), &service.ReplyRequest{
		UserID:   userID,
		StoreID:  storeID,
		WeekID:   weekID,
		ThreadID: req.ThreadID,
		Text:     req.Text,
		Locale:   requestLocale(c, req.Locale, h.defaultLocale),
	})
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// GetFocus 获取会话焦点（最近讨论的员工与星期）
// GET /api/v1/stores/:store_id/conversation/focus?thread_id=
func (h *ConversationHandler) GetFocus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConversationScopeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	focus, err := h.conversationSvc.GetFocus(c.Request.Context(), userID, c.Param("store_id"), req.ThreadID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNoEmployee) {
			response.NotFound(c, 14021, "当前会话没有焦点")
			return
		}
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, focus)
}

// Reset 清除轮次与焦点记忆
// DELETE /api/v1/stores/:store_id/weeks/:week_id/conversation?thread_id=
func (h *ConversationHandler) Reset(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConversationScopeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	if err := h.conversationSvc.Reset(c.Request.Context(), userID, storeID, weekID, req.ThreadID); err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, nil)
}
