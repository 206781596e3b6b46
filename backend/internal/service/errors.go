package service

import (
	"errors"
	"strings"
)

// ── 预览模块业务错误 ──

var (
	ErrVersionMismatch        = errors.New("排班版本已变化，请重新获取后再操作")
	ErrConstraintViolation    = errors.New("违反排班约束")
	ErrPreviewNotFound        = errors.New("预览不存在")
	ErrPreviewExpired         = errors.New("预览已过期，请重新创建")
	ErrPreviewNotPending      = errors.New("预览非待应用状态")
	ErrPreviewNotApplied      = errors.New("预览未应用，不可撤销")
	ErrNothingToUndo          = errors.New("预览没有可撤销的操作")
	ErrNoOperations           = errors.New("操作列表为空")
	ErrOperationScope         = errors.New("操作的门店或周次与预览不一致")
	ErrOperationNotSupported  = errors.New("暂不支持该操作")
	ErrRoleNotFound           = errors.New("岗位不存在")
	ErrAssignmentNotFound     = errors.New("排班段不存在")
	ErrShiftNotFound          = errors.New("班次不存在")
	ErrConversationNoMemory   = errors.New("当前会话没有待选择的候选")
	ErrConversationNoEmployee = errors.New("当前会话未指定员工")
)

// ConstraintViolationError 携带完整阻断项列表；errors.Is(err, ErrConstraintViolation) 为真
type ConstraintViolationError struct {
	Blockers []string
}

func (e *ConstraintViolationError) Error() string {
	return ErrConstraintViolation.Error() + ": " + strings.Join(e.Blockers, "; ")
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

var domainErrors = []error{
	ErrStoreNotFound, ErrInvalidWeekID, ErrEmployeeNotFound, ErrInvalidDayOfWeek,
	ErrVersionMismatch, ErrConstraintViolation, ErrPreviewNotFound, ErrPreviewExpired,
	ErrPreviewNotPending, ErrPreviewNotApplied, ErrNothingToUndo, ErrNoOperations,
	ErrOperationScope, ErrOperationNotSupported, ErrRoleNotFound, ErrAssignmentNotFound,
	ErrShiftNotFound, ErrConversationNoMemory, ErrConversationNoEmployee,
}

// isDomainError 预期内的业务错误不按系统故障记录
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
