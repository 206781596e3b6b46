package scheduling

import "sort"

// SegmentView 排班段前后投影
type SegmentView struct {
	AssignmentID string  `json:"assignment_id,omitempty"`
	ShiftID      string  `json:"shift_id,omitempty"`
	Day          Weekday `json:"day"`
	StartMinute  int     `json:"start_minute"`
	EndMinute    int     `json:"end_minute"`
	RoleName     string  `json:"role_name,omitempty"`
	EmployeeID   string  `json:"employee_id,omitempty"`
	EmployeeName string  `json:"employee_name,omitempty"`
}

// EmployeeMinutes 受影响员工的周工时前后对比
type EmployeeMinutes struct {
	EmployeeID    string `json:"employee_id"`
	Name          string `json:"name"`
	BeforeMinutes int    `json:"before_minutes"`
	AfterMinutes  int    `json:"after_minutes"`
	BeforeDays    int    `json:"before_days"`
	AfterDays     int    `json:"after_days"`
}

// Diff 单个操作的效果：前后投影、反向操作、约束结果
type Diff struct {
	Operation   OperationType         `json:"operation"`
	Before      []SegmentView         `json:"before"`
	After       []SegmentView         `json:"after"`
	Employees   []EmployeeMinutes     `json:"employees"`
	Inverse     OperationList         `json:"inverse,omitempty"` // 空表示无法撤销
	Constraints ConstraintCheckResult `json:"constraints"`
}

// InverseOperation 反向操作（可能为空）
func (d Diff) InverseOperation() (Operation, bool) {
	if len(d.Inverse) == 0 {
		return nil, false
	}
	return d.Inverse[0], true
}

// BuildDiffs 依次推演每个操作；后续操作能看到前面操作的效果
func BuildDiffs(ops []Operation, snap *Snapshot) ([]Diff, *Snapshot) {
	working := snap.Clone()
	diffs := make([]Diff, 0, len(ops))
	for _, op := range ops {
		out, err := Visit[diffOutcome](op, diffBuilder{snap: working})
		if err != nil {
			out = diffOutcome{diff: unsupportedDiff(op.Type())}
		}
		diffs = append(diffs, out.diff)
		if out.next != nil {
			working = out.next
		}
	}
	return diffs, working
}

// BuildDiff 单操作差异
func BuildDiff(op Operation, snap *Snapshot) Diff {
	diffs, _ := BuildDiffs([]Operation{op}, snap)
	return diffs[0]
}

// Blockers 汇总所有差异的阻断项
func Blockers(diffs []Diff) []string {
	var all ConstraintCheckResult
	for _, d := range diffs {
		all = all.Merge(d.Constraints)
	}
	return all.Blockers
}

type diffOutcome struct {
	diff Diff
	next *Snapshot
}

type diffBuilder struct {
	snap *Snapshot
}

func (b diffBuilder) view(seg AssignmentSegment, shiftID string) SegmentView {
	v := SegmentView{
		AssignmentID: seg.ID,
		ShiftID:      shiftID,
		Day:          seg.Day,
		StartMinute:  seg.StartMinute,
		EndMinute:    seg.EndMinute,
		RoleName:     seg.RoleName,
		EmployeeID:   seg.EmployeeID,
	}
	if emp, ok := b.snap.Employee(seg.EmployeeID); ok {
		v.EmployeeName = emp.Name
	}
	return v
}

func (b diffBuilder) employeeImpacts(next *Snapshot, ids ...string) []EmployeeMinutes {
	seen := make(map[string]bool)
	var out []EmployeeMinutes
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		before := b.snap.EmployeeState(id)
		after := next.EmployeeState(id)
		em := EmployeeMinutes{
			EmployeeID:    id,
			BeforeMinutes: before.WeeklyMinutes,
			AfterMinutes:  after.WeeklyMinutes,
			BeforeDays:    before.DaysWorked(),
			AfterDays:     after.DaysWorked(),
		}
		if emp, ok := b.snap.Employee(id); ok {
			em.Name = emp.Name
		}
		out = append(out, em)
	}
	return out
}

func (b diffBuilder) AssignShift(op AssignShift) (diffOutcome, error) {
	d := Diff{Operation: op.Type(), Constraints: CheckAssignConstraints(op, b.snap)}
	target, ok := ResolveAssignTarget(op.ShiftRef, b.snap)
	if !ok {
		return diffOutcome{diff: d}, nil
	}

	next := b.snap.Clone()
	var before, after AssignmentSegment
	if target.Segment != nil {
		before = *target.Segment
		after = before
		after.EmployeeID = op.EmployeeID
		for i := range next.Assignments {
			if next.Assignments[i].ID == before.ID {
				next.Assignments[i].EmployeeID = op.EmployeeID
			}
		}
	} else {
		// 模板班次尚无排班段：应用时新建，推演时以班次 ID 暂代
		before = AssignmentSegment{
			Day:         target.Shift.Day,
			StartMinute: target.Shift.StartMinute,
			EndMinute:   target.Shift.EndMinute,
			TemplateID:  target.Shift.TemplateID,
			RoleID:      target.Shift.RoleID,
			RoleName:    target.Shift.RoleName,
		}
		after = before
		after.EmployeeID = op.EmployeeID
		placeholder := after
		placeholder.ID = target.Shift.ID
		next.Assignments = append(next.Assignments, placeholder)
	}

	d.Before = []SegmentView{b.view(before, target.Shift.ID)}
	d.After = []SegmentView{b.view(after, target.Shift.ID)}
	d.Employees = b.employeeImpacts(next, before.EmployeeID, op.EmployeeID)
	if before.EmployeeID != op.EmployeeID {
		ref := op.ShiftRef
		if before.ID != "" {
			ref = before.ID
		}
		d.Inverse = OperationList{UnassignShift{OperationMeta: op.OperationMeta, ShiftRef: ref, EmployeeID: op.EmployeeID}}
	}
	return diffOutcome{diff: d, next: next}, nil
}

func (b diffBuilder) UnassignShift(op UnassignShift) (diffOutcome, error) {
	d := Diff{Operation: op.Type(), Constraints: CheckUnassignConstraints(op, b.snap)}
	seg, ok := ResolveUnassignTarget(op, b.snap)
	if !ok {
		return diffOutcome{diff: d}, nil
	}

	next := b.snap.Clone()
	for i := range next.Assignments {
		if next.Assignments[i].ID == seg.ID {
			next.Assignments[i].EmployeeID = ""
		}
	}
	after := *seg
	after.EmployeeID = ""

	d.Before = []SegmentView{b.view(*seg, "")}
	d.After = []SegmentView{b.view(after, "")}
	d.Employees = b.employeeImpacts(next, seg.EmployeeID)
	if !seg.Open() {
		d.Inverse = OperationList{AssignShift{OperationMeta: op.OperationMeta, ShiftRef: seg.ID, EmployeeID: seg.EmployeeID}}
	}
	return diffOutcome{diff: d, next: next}, nil
}

func (b diffBuilder) SwapShifts(op SwapShifts) (diffOutcome, error) {
	d := Diff{Operation: op.Type(), Constraints: CheckSwapConstraints(op, b.snap)}
	a, okA := b.snap.Assignment(op.AssignmentAID)
	bb, okB := b.snap.Assignment(op.AssignmentBID)
	if !okA || !okB {
		return diffOutcome{diff: d}, nil
	}

	next := b.snap.Clone()
	for i := range next.Assignments {
		switch next.Assignments[i].ID {
		case a.ID:
			next.Assignments[i].EmployeeID = bb.EmployeeID
		case bb.ID:
			next.Assignments[i].EmployeeID = a.EmployeeID
		}
	}
	afterA, afterB := *a, *bb
	afterA.EmployeeID, afterB.EmployeeID = bb.EmployeeID, a.EmployeeID

	d.Before = []SegmentView{b.view(*a, ""), b.view(*bb, "")}
	d.After = []SegmentView{b.view(afterA, ""), b.view(afterB, "")}
	d.Employees = b.employeeImpacts(next, a.EmployeeID, bb.EmployeeID)
	d.Inverse = OperationList{op}
	return diffOutcome{diff: d, next: next}, nil
}

func (b diffBuilder) AddShift(op AddShift) (diffOutcome, error) {
	d := Diff{Operation: op.Type(), Constraints: CheckAddShiftConstraints(op, b.snap)}
	seg := AssignmentSegment{
		Day:         op.Day,
		StartMinute: op.StartMinute,
		EndMinute:   op.EndMinute,
		RoleName:    op.RoleName,
	}
	if role, ok := b.snap.RoleByName(op.RoleName); ok {
		seg.RoleID, seg.RoleName = role.ID, role.Name
	}
	d.Before = []SegmentView{}
	d.After = []SegmentView{b.view(seg, "")}

	next := b.snap.Clone()
	if op.Day.Valid() {
		next.Shifts = append(next.Shifts, Shift{
			ID:          "new:" + string(op.Day) + ":" + FormatMinute(op.StartMinute),
			Day:         op.Day,
			StartMinute: op.StartMinute,
			EndMinute:   op.EndMinute,
			RoleID:      seg.RoleID,
			RoleName:    seg.RoleName,
		})
	}
	// 新增班次暂无反向操作
	return diffOutcome{diff: d, next: next}, nil
}

func (b diffBuilder) EditShift(op EditShift) (diffOutcome, error) {
	return diffOutcome{diff: unsupportedDiff(op.Type())}, nil
}

func (b diffBuilder) EditEmployee(op EditEmployee) (diffOutcome, error) {
	return diffOutcome{diff: unsupportedDiff(op.Type())}, nil
}

func (b diffBuilder) DeleteShift(op DeleteShift) (diffOutcome, error) {
	return diffOutcome{diff: unsupportedDiff(op.Type())}, nil
}

func unsupportedDiff(t OperationType) Diff {
	res := newResult()
	res.Blockers = append(res.Blockers, BlockerNotSupported)
	return Diff{Operation: t, Before: []SegmentView{}, After: []SegmentView{}, Constraints: res}
}

// ── 可视化 ──

// CalendarDelta 日历上的单格变化
type CalendarDelta struct {
	Kind         OperationType `json:"kind"`
	Day          Weekday       `json:"day"`
	StartMinute  int           `json:"start_minute"`
	EndMinute    int           `json:"end_minute"`
	AssignmentID string        `json:"assignment_id,omitempty"`
	ShiftID      string        `json:"shift_id,omitempty"`
	FromEmployee string        `json:"from_employee,omitempty"`
	ToEmployee   string        `json:"to_employee,omitempty"`
}

// Visualization 预览可视化：日历变化 + 员工影响
type Visualization struct {
	CalendarDeltas  []CalendarDelta   `json:"calendar_deltas"`
	EmployeeImpacts []EmployeeMinutes `json:"employee_impacts"`
}

// BuildVisualization 以原始快照与推演后的快照为准计算员工总影响
func BuildVisualization(diffs []Diff, before, after *Snapshot) Visualization {
	vis := Visualization{CalendarDeltas: []CalendarDelta{}, EmployeeImpacts: []EmployeeMinutes{}}
	affected := make(map[string]bool)

	for _, d := range diffs {
		for i, a := range d.After {
			delta := CalendarDelta{
				Kind:         d.Operation,
				Day:          a.Day,
				StartMinute:  a.StartMinute,
				EndMinute:    a.EndMinute,
				AssignmentID: a.AssignmentID,
				ShiftID:      a.ShiftID,
				ToEmployee:   a.EmployeeName,
			}
			if i < len(d.Before) {
				delta.FromEmployee = d.Before[i].EmployeeName
			}
			vis.CalendarDeltas = append(vis.CalendarDeltas, delta)
		}
		for _, e := range d.Employees {
			affected[e.EmployeeID] = true
		}
	}

	ids := make([]string, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b, a := before.EmployeeState(id), after.EmployeeState(id)
		em := EmployeeMinutes{
			EmployeeID:    id,
			BeforeMinutes: b.WeeklyMinutes,
			AfterMinutes:  a.WeeklyMinutes,
			BeforeDays:    b.DaysWorked(),
			AfterDays:     a.DaysWorked(),
		}
		if emp, ok := before.Employee(id); ok {
			em.Name = emp.Name
		}
		vis.EmployeeImpacts = append(vis.EmployeeImpacts, em)
	}
	return vis
}
