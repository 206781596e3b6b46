package dto

import "tachora/backend/internal/scheduling"

// ── 排班模块 DTO ──

// ChangeLogListRequest 变更日志列表查询参数
type ChangeLogListRequest struct {
	PaginationRequest
}

// CandidateQueryRequest 候选班次查询参数
type CandidateQueryRequest struct {
	EmployeeID string `form:"employee_id" binding:"required"`
	Day        string `form:"day"         binding:"required"`
	Role       string `form:"role"`
}

// ConstraintCheckRequest 约束校验请求
// kind=assign_shift 时需 shift_id + employee_id；kind=swap_shifts 时需两个排班段 ID
type ConstraintCheckRequest struct {
	Kind          string `json:"kind"            binding:"required,oneof=assign_shift swap_shifts"`
	ShiftID       string `json:"shift_id"`
	EmployeeID    string `json:"employee_id"`
	AssignmentAID string `json:"assignment_a_id"`
	AssignmentBID string `json:"assignment_b_id"`
}

// CreatePreviewRequest 创建预览请求
type CreatePreviewRequest struct {
	SnapshotVersion string                   `json:"snapshot_version" binding:"required"`
	Operations      scheduling.OperationList `json:"operations"       binding:"required,min=1"`
}

// ApplyPreviewRequest 应用预览请求；expected_version 须与预览创建时的版本一致
type ApplyPreviewRequest struct {
	ExpectedVersion string `json:"expected_version" binding:"required"`
}

// ── 对话模块 DTO ──

// PresentCandidatesRequest 对话中列出候选班次；员工与星期缺省时沿用焦点记忆
type PresentCandidatesRequest struct {
	ThreadID   string `json:"thread_id"   binding:"required,max=128"`
	EmployeeID string `json:"employee_id"`
	Day        string `json:"day"`
	Role       string `json:"role"`
}

// ReplyRequest 用户回复
type ReplyRequest struct {
	ThreadID string `json:"thread_id" binding:"required,max=128"`
	Text     string `json:"text"      binding:"required,max=500"`
	Locale   string `json:"locale"    binding:"omitempty,max=16"`
}

// ConversationScopeRequest 会话作用域查询参数
type ConversationScopeRequest struct {
	ThreadID string `form:"thread_id" binding:"required,max=128"`
}
