package scheduling

import "strings"

// ── 规则常量 ──

const (
	MaxDailyMinutes          = 10 * 60
	MinRestMinutes           = 11 * 60
	StudentWeeklyCapMinutes  = 20 * 60
	WeeklyCloseMarginMinutes = 60
	DailyCloseMarginMinutes  = 30

	ContractStudent = "STUDENT"
)

// 不满足原因码
const (
	ReasonAvailabilityOff    = "availability:off"
	ReasonAvailabilityBefore = "availability:before"
	ReasonAvailabilityAfter  = "availability:after"
	ReasonStoreMismatch      = "store:mismatch"
	ReasonRoleMismatch       = "role:mismatch"
	ReasonWeeklyLimit        = "weekly:limit"
	ReasonDailyLimit         = "daily:limit"
	ReasonOverlap            = "overlap"
	ReasonRest               = "rest"
)

// 提醒码（不阻断）
const (
	WarningWeeklyClose = "weekly:close"
	WarningDailyClose  = "daily:close"
)

// FitDetails 规则计算的中间量，供文案渲染
type FitDetails struct {
	Slot                *AvailabilitySlot  `json:"slot,omitempty"`
	TargetWeeklyMinutes int                `json:"target_weekly_minutes"`
	ProjectedWeekly     int                `json:"projected_weekly"`
	ProjectedDaily      int                `json:"projected_daily"`
	OverlapWith         *AssignmentSegment `json:"overlap_with,omitempty"`
	RestConflictWith    *AssignmentSegment `json:"rest_conflict_with,omitempty"`
	RestGapMinutes      int                `json:"rest_gap_minutes,omitempty"`
}

// FitResult 单个员工 × 班次的判定
type FitResult struct {
	Fits     bool       `json:"fits"`
	Reasons  []string   `json:"reasons"`
	Warnings []string   `json:"warnings"`
	Details  FitDetails `json:"details"`
}

// WeeklyTarget 周工时上限；学生合同额外封顶
func WeeklyTarget(emp EmployeeProfile) int {
	target := emp.WeeklyMinutesTarget
	if strings.EqualFold(emp.ContractType, ContractStudent) && target > StudentWeeklyCapMinutes {
		target = StudentWeeklyCapMinutes
	}
	return target
}

// ComputeFit 纯函数：所有规则都会执行并收集原因，不短路
func ComputeFit(storeID string, emp EmployeeProfile, shift Shift, state EmployeeState) FitResult {
	res := FitResult{Reasons: []string{}, Warnings: []string{}}
	duration := shift.Duration()

	// 可用时间
	slot, ok := emp.AvailabilityOn(shift.Day)
	if !ok || slot.IsOff {
		res.Reasons = append(res.Reasons, ReasonAvailabilityOff)
	} else {
		res.Details.Slot = &slot
		if shift.StartMinute < slot.StartMinute {
			res.Reasons = append(res.Reasons, ReasonAvailabilityBefore)
		}
		if shift.EndMinute > slot.EndMinute {
			res.Reasons = append(res.Reasons, ReasonAvailabilityAfter)
		}
	}

	// 门店
	if !emp.CanWorkAcrossStores && emp.HomeStoreID != storeID {
		res.Reasons = append(res.Reasons, ReasonStoreMismatch)
	}

	// 岗位：未声明任何岗位的员工视为全岗位可用
	if !qualifiedFor(emp, shift) {
		res.Reasons = append(res.Reasons, ReasonRoleMismatch)
	}

	// 周工时
	target := WeeklyTarget(emp)
	projectedWeekly := state.WeeklyMinutes + duration
	res.Details.TargetWeeklyMinutes = target
	res.Details.ProjectedWeekly = projectedWeekly
	if projectedWeekly > target {
		res.Reasons = append(res.Reasons, ReasonWeeklyLimit)
	} else if target-projectedWeekly < WeeklyCloseMarginMinutes {
		res.Warnings = append(res.Warnings, WarningWeeklyClose)
	}

	// 日工时
	projectedDaily := duration
	if idx := shift.Day.Index(); idx >= 0 {
		projectedDaily += state.DailyMinutes[idx]
	}
	res.Details.ProjectedDaily = projectedDaily
	if projectedDaily > MaxDailyMinutes {
		res.Reasons = append(res.Reasons, ReasonDailyLimit)
	} else if MaxDailyMinutes-projectedDaily < DailyCloseMarginMinutes {
		res.Warnings = append(res.Warnings, WarningDailyClose)
	}

	// 重叠 / 休息间隔（周内绝对分钟）
	start := AbsoluteMinute(shift.Day, shift.StartMinute)
	end := AbsoluteMinute(shift.Day, shift.EndMinute)
	for i := range state.Segments {
		seg := state.Segments[i]
		segStart := AbsoluteMinute(seg.Day, seg.StartMinute)
		segEnd := AbsoluteMinute(seg.Day, seg.EndMinute)

		if start < segEnd && segStart < end {
			if res.Details.OverlapWith == nil {
				res.Details.OverlapWith = &seg
				res.Reasons = append(res.Reasons, ReasonOverlap)
			}
			continue
		}

		gap := start - segEnd
		if gap <= 0 {
			gap = segStart - end
		}
		if gap > 0 && gap < MinRestMinutes && res.Details.RestConflictWith == nil {
			res.Details.RestConflictWith = &seg
			res.Details.RestGapMinutes = gap
			res.Reasons = append(res.Reasons, ReasonRest)
		}
	}

	res.Fits = len(res.Reasons) == 0
	return res
}

func qualifiedFor(emp EmployeeProfile, shift Shift) bool {
	if len(emp.RoleIDs) == 0 && len(emp.RoleNames) == 0 {
		return true
	}
	if shift.RoleID == "" && shift.RoleName == "" {
		return true
	}
	for _, id := range emp.RoleIDs {
		if shift.RoleID != "" && id == shift.RoleID {
			return true
		}
	}
	for _, name := range emp.RoleNames {
		if shift.RoleName != "" && strings.EqualFold(name, shift.RoleName) {
			return true
		}
	}
	return false
}
