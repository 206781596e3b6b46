package scheduling

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// VersionLength 版本号长度（内容哈希截断的十六进制位数）
const VersionLength = 16

// ShiftTemplateInput 循环班次模板（按启用的星期展开）
type ShiftTemplateInput struct {
	ID          string    `json:"id"`
	RoleID      string    `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Days        []Weekday `json:"days"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
}

// SnapshotInput 由持久层读出的原始行
type SnapshotInput struct {
	StoreID     string
	WeekID      string
	Revision    int
	Templates   []ShiftTemplateInput
	Assignments []AssignmentSegment
	// ExternalAssignments 快照内员工同一周在其他门店的已排班段
	ExternalAssignments []AssignmentSegment
	Employees           []EmployeeProfile
	Roles               []RoleRef
}

// Snapshot 某门店某周排班的时点读模型，附带内容哈希版本号
type Snapshot struct {
	StoreID     string              `json:"store_id"`
	WeekID      string              `json:"week_id"`
	Version     string              `json:"version"`
	Revision    int                 `json:"revision"`
	Shifts      []Shift             `json:"shifts"`
	Assignments []AssignmentSegment `json:"assignments"`
	// ExternalAssignments 只读：仅计入员工的周工时、重叠与休息校验
	ExternalAssignments []AssignmentSegment `json:"external_assignments"`
	Employees           []EmployeeProfile   `json:"employees"`
	Roles               []RoleRef           `json:"roles"`
}

// BuildSnapshot 纯投影：展开模板、确定性排序并计算版本号
func BuildSnapshot(in SnapshotInput) *Snapshot {
	snap := &Snapshot{
		StoreID:  in.StoreID,
		WeekID:   in.WeekID,
		Revision: in.Revision,
	}

	for _, t := range in.Templates {
		for _, d := range t.Days {
			if !d.Valid() {
				continue
			}
			snap.Shifts = append(snap.Shifts, Shift{
				ID:          t.ID + "-" + string(d),
				Day:         d,
				StartMinute: t.StartMinute,
				EndMinute:   t.EndMinute,
				RoleID:      t.RoleID,
				RoleName:    t.RoleName,
				TemplateID:  t.ID,
			})
		}
	}
	sort.Slice(snap.Shifts, func(i, j int) bool {
		return lessByTime(snap.Shifts[i].Day, snap.Shifts[i].StartMinute, snap.Shifts[i].ID,
			snap.Shifts[j].Day, snap.Shifts[j].StartMinute, snap.Shifts[j].ID)
	})

	snap.Assignments = append([]AssignmentSegment(nil), in.Assignments...)
	sort.Slice(snap.Assignments, func(i, j int) bool {
		a, b := snap.Assignments[i], snap.Assignments[j]
		return lessByTime(a.Day, a.StartMinute, a.ID, b.Day, b.StartMinute, b.ID)
	})

	for _, a := range in.ExternalAssignments {
		if a.EmployeeID != "" {
			snap.ExternalAssignments = append(snap.ExternalAssignments, a)
		}
	}
	sort.Slice(snap.ExternalAssignments, func(i, j int) bool {
		a, b := snap.ExternalAssignments[i], snap.ExternalAssignments[j]
		return lessByTime(a.Day, a.StartMinute, a.ID, b.Day, b.StartMinute, b.ID)
	})

	snap.Employees = make([]EmployeeProfile, 0, len(in.Employees))
	for _, e := range in.Employees {
		e.Availability = append([]AvailabilitySlot(nil), e.Availability...)
		sort.Slice(e.Availability, func(i, j int) bool {
			return e.Availability[i].Day.Index() < e.Availability[j].Day.Index()
		})
		e.RoleIDs = sortedCopy(e.RoleIDs)
		e.RoleNames = sortedCopy(e.RoleNames)
		snap.Employees = append(snap.Employees, e)
	}
	sort.Slice(snap.Employees, func(i, j int) bool { return snap.Employees[i].ID < snap.Employees[j].ID })

	snap.Roles = append([]RoleRef(nil), in.Roles...)
	sort.Slice(snap.Roles, func(i, j int) bool { return snap.Roles[i].ID < snap.Roles[j].ID })

	snap.Version = computeVersion(snap)
	return snap
}

func lessByTime(d1 Weekday, m1 int, id1 string, d2 Weekday, m2 int, id2 string) bool {
	a1, a2 := AbsoluteMinute(d1, m1), AbsoluteMinute(d2, m2)
	if a1 != a2 {
		return a1 < a2
	}
	return id1 < id2
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// computeVersion 对规范化内容做 SHA-256，截断为 16 位十六进制
func computeVersion(s *Snapshot) string {
	payload := struct {
		StoreID     string              `json:"store_id"`
		WeekID      string              `json:"week_id"`
		Revision    int                 `json:"revision"`
		Shifts      []Shift             `json:"shifts"`
		Assignments []AssignmentSegment `json:"assignments"`
		External    []AssignmentSegment `json:"external_assignments"`
		Employees   []EmployeeProfile   `json:"employees"`
		Roles       []RoleRef           `json:"roles"`
	}{s.StoreID, s.WeekID, s.Revision, s.Shifts, s.Assignments, s.ExternalAssignments, s.Employees, s.Roles}

	// 仅含基础类型与切片，Marshal 不会失败
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:VersionLength]
}

// ── 查询辅助 ──

// Employee 按 ID 查找员工
func (s *Snapshot) Employee(id string) (*EmployeeProfile, bool) {
	for i := range s.Employees {
		if s.Employees[i].ID == id {
			return &s.Employees[i], true
		}
	}
	return nil, false
}

// Shift 按 ID 查找班次
func (s *Snapshot) Shift(id string) (*Shift, bool) {
	for i := range s.Shifts {
		if s.Shifts[i].ID == id {
			return &s.Shifts[i], true
		}
	}
	return nil, false
}

// Assignment 按 ID 查找排班段
func (s *Snapshot) Assignment(id string) (*AssignmentSegment, bool) {
	for i := range s.Assignments {
		if s.Assignments[i].ID == id {
			return &s.Assignments[i], true
		}
	}
	return nil, false
}

// RoleByName 不区分大小写按名称查找岗位
func (s *Snapshot) RoleByName(name string) (*RoleRef, bool) {
	for i := range s.Roles {
		if strings.EqualFold(s.Roles[i].Name, strings.TrimSpace(name)) {
			return &s.Roles[i], true
		}
	}
	return nil, false
}

// LinkedAssignments 返回由该模板班次生成的排班段（空缺在前）
func (s *Snapshot) LinkedAssignments(shift Shift) []AssignmentSegment {
	if shift.TemplateID == "" {
		return nil
	}
	var open, filled []AssignmentSegment
	for _, a := range s.Assignments {
		if a.TemplateID != shift.TemplateID || a.Day != shift.Day {
			continue
		}
		if a.Open() {
			open = append(open, a)
		} else {
			filled = append(filled, a)
		}
	}
	return append(open, filled...)
}

// EmployeeState 员工本周已提交的工时状态
type EmployeeState struct {
	WeeklyMinutes int                 `json:"weekly_minutes"`
	DailyMinutes  [7]int              `json:"daily_minutes"`
	Segments      []AssignmentSegment `json:"segments"`
}

// DaysWorked 有排班的天数
func (st EmployeeState) DaysWorked() int {
	n := 0
	for _, m := range st.DailyMinutes {
		if m > 0 {
			n++
		}
	}
	return n
}

// EmployeeState 汇总员工本周所有已提交排班段（含其他门店），exclude 中的排班段不计入
func (s *Snapshot) EmployeeState(employeeID string, exclude ...string) EmployeeState {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var st EmployeeState
	for _, segs := range [][]AssignmentSegment{s.Assignments, s.ExternalAssignments} {
		for _, a := range segs {
			if a.EmployeeID != employeeID || skip[a.ID] || !a.Day.Valid() {
				continue
			}
			st.WeeklyMinutes += a.Duration()
			st.DailyMinutes[a.Day.Index()] += a.Duration()
			st.Segments = append(st.Segments, a)
		}
	}
	sort.Slice(st.Segments, func(i, j int) bool {
		a, b := st.Segments[i], st.Segments[j]
		return lessByTime(a.Day, a.StartMinute, a.ID, b.Day, b.StartMinute, b.ID)
	})
	return st
}

// OpenShifts 仍需人员的班次：空缺排班段 + 尚未生成排班段的模板班次
func (s *Snapshot) OpenShifts() []Shift {
	var out []Shift
	for _, a := range s.Assignments {
		if a.Open() {
			out = append(out, a.Shift())
		}
	}
	for _, sh := range s.Shifts {
		if len(s.LinkedAssignments(sh)) == 0 {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByTime(out[i].Day, out[i].StartMinute, out[i].ID, out[j].Day, out[j].StartMinute, out[j].ID)
	})
	return out
}

// Clone 深拷贝（预览计算会在副本上推演）
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Shifts = append([]Shift(nil), s.Shifts...)
	c.Assignments = append([]AssignmentSegment(nil), s.Assignments...)
	c.ExternalAssignments = append([]AssignmentSegment(nil), s.ExternalAssignments...)
	c.Employees = append([]EmployeeProfile(nil), s.Employees...)
	c.Roles = append([]RoleRef(nil), s.Roles...)
	return &c
}

// WithEmployees 返回补充了员工档案的副本，用于校验不在可排名单内的员工；
// 版本号不变，已存在的员工不重复添加
func (s *Snapshot) WithEmployees(extra ...EmployeeProfile) *Snapshot {
	c := s.Clone()
	for _, e := range extra {
		if _, ok := c.Employee(e.ID); !ok {
			c.Employees = append(c.Employees, e)
		}
	}
	sort.Slice(c.Employees, func(i, j int) bool { return c.Employees[i].ID < c.Employees[j].ID })
	return c
}
