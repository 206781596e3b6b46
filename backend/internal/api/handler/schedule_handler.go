package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/dto"
	"tachora/backend/internal/scheduling"
	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

// ScheduleHandler 排班读取与约束校验 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc  service.ScheduleService
	candidateSvc service.CandidateService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, candidateSvc service.CandidateService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, candidateSvc: candidateSvc}
}

// GetSnapshot 获取排班快照
// GET /api/v1/stores/:store_id/weeks/:week_id/snapshot
func (h *ScheduleHandler) GetSnapshot(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	snap, err := h.scheduleSvc.GetSnapshot(c.Request.Context(), storeID, weekID)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	c.Header("ETag", `"`+snap.Version+`"`)
	response.OK(c, snap)
}

// GetFacts 获取排班事实（员工工时、人手缺口等）
// GET /api/v1/stores/:store_id/weeks/:week_id/facts
func (h *ScheduleHandler) GetFacts(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	facts, err := h.scheduleSvc.GetFacts(c.Request.Context(), storeID, weekID)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, facts)
}

// CheckConstraints 校验单个排班或换班是否可行，不产生预览
// POST /api/v1/stores/:store_id/weeks/:week_id/constraints/check
func (h *ScheduleHandler) CheckConstraints(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	var req dto.ConstraintCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	meta := scheduling.OperationMeta{StoreID: storeID, WeekID: weekID, At: time.Now().UTC(), Source: scheduling.SourceUser}
	var (
		result *service.ConstraintCheck
		err    error
	)
	switch scheduling.OperationType(req.Kind) {
	case scheduling.OpAssignShift:
		if req.ShiftID == "" || req.EmployeeID == "" {
			response.BadRequest(c, 14000, "shift_id 与 employee_id 不能为空")
			return
		}
		result, err = h.scheduleSvc.CheckAssign(c.Request.Context(), scheduling.AssignShift{
			OperationMeta: meta, ShiftRef: req.ShiftID, EmployeeID: req.EmployeeID,
		})
	default:
		if req.AssignmentAID == "" || req.AssignmentBID == "" {
			response.BadRequest(c, 14000, "assignment_a_id 与 assignment_b_id 不能为空")
			return
		}
		result, err = h.scheduleSvc.CheckSwap(c.Request.Context(), scheduling.SwapShifts{
			OperationMeta: meta, AssignmentAID: req.AssignmentAID, AssignmentBID: req.AssignmentBID,
		})
	}
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OK(c, result)
}

// ListChangeLogs 获取已应用变更日志（最新在前）
// GET /api/v1/stores/:store_id/weeks/:week_id/change-logs
func (h *ScheduleHandler) ListChangeLogs(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	var req dto.ChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	page, pageSize := req.GetPage(), req.GetPageSize()
	logs, total, err := h.scheduleSvc.ListChangeLogs(c.Request.Context(), storeID, weekID, page, pageSize)
	if err != nil {
		handleSchedulingError(c, err)
		return
	}

	response.OKPage(c, logs, total, page, pageSize)
}

// ListCandidates 为员工列出某天仍需人员的班次
// GET /api/v1/stores/:store_id/weeks/:week_id/candidates?employee_id=&day=&role=
func (h *ScheduleHandler) ListCandidates(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	var req dto.CandidateQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}
	day, err := scheduling.ParseWeekday(req.Day)
	if err != nil {
		response.BadRequest(c, 14017, "星期取值非法")
		return
	}

	result, err := h.candidateSvc.Generate(c.Request.Context(), service.CandidateQuery{
		StoreID:    storeID,
		WeekID:     weekID,
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
