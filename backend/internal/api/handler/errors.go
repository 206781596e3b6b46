package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

// handleSchedulingError 将排班领域错误映射为 HTTP 响应（错误码 14xxx）
func handleSchedulingError(c *gin.Context, err error) {
	var violation *service.ConstraintViolationError
	switch {
	case errors.As(err, &violation):
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 14002, "违反排班约束",
			gin.H{"blockers": violation.Blockers})
	case errors.Is(err, service.ErrVersionMismatch):
		response.Conflict(c, 14001, "排班版本已变化，请重新获取后再操作")
	case errors.Is(err, service.ErrPreviewNotFound):
		response.NotFound(c, 14003, "预览不存在")
	case errors.Is(err, service.ErrPreviewExpired):
		response.Gone(c, 14004, "预览已过期，请重新创建")
	case errors.Is(err, service.ErrPreviewNotPending):
		response.BadRequest(c, 14005, "预览非待应用状态")
	case errors.Is(err, service.ErrPreviewNotApplied):
		response.BadRequest(c, 14006, "预览未应用，不可撤销")
	case errors.Is(err, service.ErrNothingToUndo):
		response.BadRequest(c, 14007, "预览没有可撤销的操作")
	case errors.Is(err, service.ErrNoOperations):
		response.BadRequest(c, 14008, "操作列表为空")
	case errors.Is(err, service.ErrOperationScope):
		response.BadRequest(c, 14009, "操作的门店或周次与请求不一致")
	case errors.Is(err, service.ErrOperationNotSupported):
		response.BadRequest(c, 14010, "暂不支持该操作")
	case errors.Is(err, service.ErrStoreNotFound):
		response.NotFound(c, 14011, "门店不存在")
	case errors.Is(err, service.ErrEmployeeNotFound):
		response.NotFound(c, 14012, "员工不存在")
	case errors.Is(err, service.ErrRoleNotFound):
		response.NotFound(c, 14013, "岗位不存在")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 14014, "班次不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 14015, "排班段不存在")
	case errors.Is(err, service.ErrInvalidWeekID):
		response.BadRequest(c, 14016, "周标识格式错误，应为 YYYY-Www")
	case errors.Is(err, service.ErrInvalidDayOfWeek):
		response.BadRequest(c, 14017, "星期取值非法")
	case errors.Is(err, service.ErrConversationNoMemory):
		response.NotFound(c, 14020, "当前会话没有待选择的候选")
	case errors.Is(err, service.ErrConversationNoEmployee):
		response.BadRequest(c, 14021, "当前会话未指定员工")
	case errors.Is(err, service.ErrSnapshotCorrupted):
		// 具体记录只写日志，不返回给调用方
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 14018, "排班数据存在非法记录")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
