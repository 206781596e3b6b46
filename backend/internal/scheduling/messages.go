package scheduling

import "fmt"

// 校验失败时的固定文案
const (
	BlockerShiftNotFound       = "shift not found."
	BlockerEmployeeNotFound    = "employee not found."
	BlockerAlreadyAssigned     = "already assigned."
	BlockerAssignmentsNotFound = "assignment(s) not found."
	BlockerAssignmentNotFound  = "assignment not found."
	BlockerAlreadyOpen         = "assignment is already open."
	BlockerOtherEmployee       = "assignment belongs to another employee."
	BlockerInvalidTimeRange    = "shift must end after it starts."
	BlockerInvalidDay          = "invalid day."
	BlockerNotSupported        = "operation not supported."
)

// FormatDuration 分钟转 "7h" / "7h30"
func FormatDuration(m int) string {
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh%02d", m/60, m%60)
}

// DescribeReason 将原因码渲染为可读句子
func DescribeReason(code string, emp EmployeeProfile, shift Shift, fit FitResult) string {
	name := emp.Name
	day := shift.Day.Name()
	d := fit.Details

	switch code {
	case ReasonAvailabilityOff:
		return fmt.Sprintf("%s is not available on %s.", name, day)
	case ReasonAvailabilityBefore:
		if d.Slot != nil {
			return fmt.Sprintf("%s's availability starts at %s on %s.", name, FormatMinute(d.Slot.StartMinute), day)
		}
	case ReasonAvailabilityAfter:
		if d.Slot != nil {
			return fmt.Sprintf("%s's availability ends at %s on %s.", name, FormatMinute(d.Slot.EndMinute), day)
		}
	case ReasonStoreMismatch:
		return fmt.Sprintf("%s belongs to another store and cannot work across stores.", name)
	case ReasonRoleMismatch:
		role := shift.RoleName
		if role == "" {
			role = shift.RoleID
		}
		return fmt.Sprintf("%s is not qualified for the %s role.", name, role)
	case ReasonWeeklyLimit:
		return fmt.Sprintf("%s would work %s this week, above the %s weekly limit.",
			name, FormatDuration(d.ProjectedWeekly), FormatDuration(d.TargetWeeklyMinutes))
	case WarningWeeklyClose:
		return fmt.Sprintf("%s would work %s this week, within %s of the %s weekly limit.",
			name, FormatDuration(d.ProjectedWeekly),
			FormatDuration(d.TargetWeeklyMinutes-d.ProjectedWeekly), FormatDuration(d.TargetWeeklyMinutes))
	case ReasonDailyLimit:
		return fmt.Sprintf("%s would work %s on %s, above the %s daily limit.",
			name, FormatDuration(d.ProjectedDaily), day, FormatDuration(MaxDailyMinutes))
	case WarningDailyClose:
		return fmt.Sprintf("%s would work %s on %s, close to the %s daily limit.",
			name, FormatDuration(d.ProjectedDaily), day, FormatDuration(MaxDailyMinutes))
	case ReasonOverlap:
		if s := d.OverlapWith; s != nil {
			return fmt.Sprintf("%s already works %s-%s on %s, which overlaps this shift.",
				name, FormatMinute(s.StartMinute), FormatMinute(s.EndMinute), s.Day.Name())
		}
	case ReasonRest:
		if s := d.RestConflictWith; s != nil {
			return fmt.Sprintf("%s would only rest %s between this shift and the %s-%s shift on %s (minimum %s).",
				name, FormatDuration(d.RestGapMinutes), FormatMinute(s.StartMinute), FormatMinute(s.EndMinute),
				s.Day.Name(), FormatDuration(MinRestMinutes))
		}
	}
	return fmt.Sprintf("%s: %s.", name, code)
}
