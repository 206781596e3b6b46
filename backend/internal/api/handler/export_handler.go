package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"tachora/backend/internal/service"
	"tachora/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWeek 导出周排班表
// GET /api/v1/stores/:store_id/weeks/:week_id/export/xlsx
func (h *ExportHandler) ExportWeek(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportWeek(c.Request.Context(), storeID, weekID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeXLSX, buf)
}

// ExportCalendar 导出员工本周排班日历
// GET /api/v1/stores/:store_id/weeks/:week_id/employees/:employee_id/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	storeID, weekID, ok := MustGetStoreWeek(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportEmployeeCalendar(c.Request.Context(), storeID, weekID, c.Param("employee_id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, buf)
}

// writeAttachment 设置下载响应头并写出文件
func writeAttachment(c *gin.Context, filename, contentType string, buf *bytes.Buffer) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, 16101, "该周暂无班次")
	case errors.Is(err, service.ErrExportNoShifts):
		response.NotFound(c, 16102, "该员工本周没有排班")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleSchedulingError(c, err)
	}
}
