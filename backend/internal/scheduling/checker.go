package scheduling

import "fmt"

// 规则名（ConstraintCheckResult.Checked）
const (
	RuleShift        = "shift"
	RuleEmployee     = "employee"
	RuleAssignment   = "assignment"
	RuleAvailability = "availability"
	RuleStore        = "store"
	RuleRole         = "role"
	RuleWeeklyHours  = "weekly_hours"
	RuleDailyHours   = "daily_hours"
	RuleOverlap      = "overlap"
	RuleRest         = "rest"
	RuleTimeRange    = "time_range"
)

var fitRules = []string{RuleAvailability, RuleStore, RuleRole, RuleWeeklyHours, RuleDailyHours, RuleOverlap, RuleRest}

// ConstraintCheckResult 校验结果：已检查规则、提醒、阻断项
type ConstraintCheckResult struct {
	Checked  []string `json:"checked"`
	Warnings []string `json:"warnings"`
	Blockers []string `json:"blockers"`
}

// OK 无阻断项
func (r ConstraintCheckResult) OK() bool { return len(r.Blockers) == 0 }

func newResult() ConstraintCheckResult {
	return ConstraintCheckResult{Checked: []string{}, Warnings: []string{}, Blockers: []string{}}
}

// Merge 按出现顺序合并并去重
func (r ConstraintCheckResult) Merge(o ConstraintCheckResult) ConstraintCheckResult {
	return ConstraintCheckResult{
		Checked:  appendUnique(r.Checked, o.Checked...),
		Warnings: appendUnique(r.Warnings, o.Warnings...),
		Blockers: appendUnique(r.Blockers, o.Blockers...),
	}
}

func appendUnique(dst []string, items ...string) []string {
	out := append([]string{}, dst...)
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// AssignTarget 排班操作解析出的目标
type AssignTarget struct {
	Shift   Shift
	Segment *AssignmentSegment // nil 表示需在应用时新建排班段
}

// ResolveAssignTarget 依次按排班段 ID、班次 ID、模板关联的空缺排班段解析
func ResolveAssignTarget(ref string, snap *Snapshot) (AssignTarget, bool) {
	if seg, ok := snap.Assignment(ref); ok {
		s := *seg
		return AssignTarget{Shift: s.Shift(), Segment: &s}, true
	}
	shift, ok := snap.Shift(ref)
	if !ok {
		return AssignTarget{}, false
	}
	target := AssignTarget{Shift: *shift}
	if linked := snap.LinkedAssignments(*shift); len(linked) > 0 {
		s := linked[0]
		target.Segment = &s
	}
	return target, true
}

// CheckAssignConstraints 校验把员工排入班次
func CheckAssignConstraints(op AssignShift, snap *Snapshot) ConstraintCheckResult {
	res := newResult()
	res.Checked = append(res.Checked, RuleShift, RuleEmployee, RuleAssignment)

	target, ok := ResolveAssignTarget(op.ShiftRef, snap)
	if !ok {
		res.Blockers = append(res.Blockers, BlockerShiftNotFound)
	}
	emp, empOK := snap.Employee(op.EmployeeID)
	if !empOK {
		res.Blockers = append(res.Blockers, BlockerEmployeeNotFound)
	}
	if !ok || !empOK {
		return res
	}

	if target.Segment != nil && !target.Segment.Open() && target.Segment.EmployeeID != op.EmployeeID {
		res.Blockers = append(res.Blockers, BlockerAlreadyAssigned)
		return res
	}

	var exclude []string
	if target.Segment != nil {
		exclude = append(exclude, target.Segment.ID)
	}
	return res.Merge(checkFit(snap, *emp, target.Shift, snap.EmployeeState(emp.ID, exclude...)))
}

// checkFit 调用 ComputeFit 并将原因码渲染为文案
func checkFit(snap *Snapshot, emp EmployeeProfile, shift Shift, state EmployeeState) ConstraintCheckResult {
	res := newResult()
	res.Checked = append(res.Checked, fitRules...)

	fit := ComputeFit(snap.StoreID, emp, shift, state)
	for _, code := range fit.Reasons {
		res.Blockers = append(res.Blockers, DescribeReason(code, emp, shift, fit))
	}
	for _, code := range fit.Warnings {
		res.Warnings = append(res.Warnings, DescribeReason(code, emp, shift, fit))
	}
	return res
}

// CheckSwapConstraints 拆成两次假设性排班，合并阻断项与提醒
func CheckSwapConstraints(op SwapShifts, snap *Snapshot) ConstraintCheckResult {
	res := newResult()
	res.Checked = append(res.Checked, RuleAssignment)

	a, okA := snap.Assignment(op.AssignmentAID)
	b, okB := snap.Assignment(op.AssignmentBID)
	if !okA || !okB || op.AssignmentAID == op.AssignmentBID {
		res.Blockers = append(res.Blockers, BlockerAssignmentsNotFound)
		return res
	}

	exclude := []string{a.ID, b.ID}
	sides := []struct {
		employeeID string
		into       AssignmentSegment
	}{
		{b.EmployeeID, *a},
		{a.EmployeeID, *b},
	}
	for _, side := range sides {
		if side.employeeID == "" {
			continue
		}
		emp, ok := snap.Employee(side.employeeID)
		if !ok {
			res.Blockers = appendUnique(res.Blockers, BlockerEmployeeNotFound)
			continue
		}
		res = res.Merge(checkFit(snap, *emp, side.into.Shift(), snap.EmployeeState(emp.ID, exclude...)))
	}
	return res
}

// ResolveUnassignTarget 按排班段 ID，或班次关联且属于该员工的排班段解析
func ResolveUnassignTarget(op UnassignShift, snap *Snapshot) (*AssignmentSegment, bool) {
	if seg, ok := snap.Assignment(op.ShiftRef); ok {
		s := *seg
		return &s, true
	}
	shift, ok := snap.Shift(op.ShiftRef)
	if !ok {
		return nil, false
	}
	for _, seg := range snap.LinkedAssignments(*shift) {
		if seg.Open() {
			continue
		}
		if op.EmployeeID == "" || seg.EmployeeID == op.EmployeeID {
			s := seg
			return &s, true
		}
	}
	return nil, false
}

// CheckUnassignConstraints 校验取消排班
func CheckUnassignConstraints(op UnassignShift, snap *Snapshot) ConstraintCheckResult {
	res := newResult()
	res.Checked = append(res.Checked, RuleAssignment)

	seg, ok := ResolveUnassignTarget(op, snap)
	switch {
	case !ok:
		res.Blockers = append(res.Blockers, BlockerAssignmentNotFound)
	case seg.Open():
		res.Blockers = append(res.Blockers, BlockerAlreadyOpen)
	case op.EmployeeID != "" && seg.EmployeeID != op.EmployeeID:
		res.Blockers = append(res.Blockers, BlockerOtherEmployee)
	}
	return res
}

// CheckAddShiftConstraints 校验新增班次
func CheckAddShiftConstraints(op AddShift, snap *Snapshot) ConstraintCheckResult {
	res := newResult()
	res.Checked = append(res.Checked, RuleTimeRange, RuleRole)

	if !op.Day.Valid() {
		res.Blockers = append(res.Blockers, BlockerInvalidDay)
	}
	if op.StartMinute < 0 || op.EndMinute > MinutesPerDay || op.EndMinute <= op.StartMinute {
		res.Blockers = append(res.Blockers, BlockerInvalidTimeRange)
	}
	if _, ok := snap.RoleByName(op.RoleName); !ok {
		res.Blockers = append(res.Blockers, fmt.Sprintf("role %q not found.", op.RoleName))
	}
	return res
}
