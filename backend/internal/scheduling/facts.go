package scheduling

import "sort"

// EmployeeFacts 员工维度的派生事实
type EmployeeFacts struct {
	EmployeeID          string   `json:"employee_id"`
	Name                string   `json:"name"`
	WeeklyMinutes       int      `json:"weekly_minutes"`
	TargetWeeklyMinutes int      `json:"target_weekly_minutes"`
	DaysWorked          int      `json:"days_worked"`
	Conflicts           []string `json:"conflicts"`
}

// OpenShiftFacts 空缺班次及按公平性排序的可排员工
type OpenShiftFacts struct {
	Shift        Shift    `json:"shift"`
	CandidateIDs []string `json:"candidate_ids"`
}

// Facts 快照的派生读模型，可按版本号缓存
type Facts struct {
	StoreID    string           `json:"store_id"`
	WeekID     string           `json:"week_id"`
	Version    string           `json:"version"`
	Employees  []EmployeeFacts  `json:"employees"`
	OpenShifts []OpenShiftFacts `json:"open_shifts"`
}

// BuildFacts 纯投影：工时汇总、已提交排班中的冲突、空缺班次候选排名
func BuildFacts(snap *Snapshot) Facts {
	f := Facts{
		StoreID:    snap.StoreID,
		WeekID:     snap.WeekID,
		Version:    snap.Version,
		Employees:  make([]EmployeeFacts, 0, len(snap.Employees)),
		OpenShifts: []OpenShiftFacts{},
	}

	for _, emp := range snap.Employees {
		st := snap.EmployeeState(emp.ID)
		ef := EmployeeFacts{
			EmployeeID:          emp.ID,
			Name:                emp.Name,
			WeeklyMinutes:       st.WeeklyMinutes,
			TargetWeeklyMinutes: WeeklyTarget(emp),
			DaysWorked:          st.DaysWorked(),
			Conflicts:           []string{},
		}
		// 逐段以"其余已提交段"为状态复核，找出既有冲突
		for _, seg := range st.Segments {
			fit := ComputeFit(snap.StoreID, emp, seg.Shift(), snap.EmployeeState(emp.ID, seg.ID))
			for _, code := range fit.Reasons {
				if code == ReasonWeeklyLimit || code == ReasonDailyLimit || code == ReasonOverlap || code == ReasonRest {
					ef.Conflicts = appendUnique(ef.Conflicts, DescribeReason(code, emp, seg.Shift(), fit))
				}
			}
		}
		f.Employees = append(f.Employees, ef)
	}

	for _, shift := range snap.OpenShifts() {
		type ranked struct {
			id      string
			minutes int
		}
		var fits []ranked
		for _, emp := range snap.Employees {
			st := snap.EmployeeState(emp.ID)
			if ComputeFit(snap.StoreID, emp, shift, st).Fits {
				fits = append(fits, ranked{emp.ID, st.WeeklyMinutes})
			}
		}
		sort.Slice(fits, func(i, j int) bool {
			if fits[i].minutes != fits[j].minutes {
				return fits[i].minutes < fits[j].minutes
			}
			return fits[i].id < fits[j].id
		})
		of := OpenShiftFacts{Shift: shift, CandidateIDs: make([]string, 0, len(fits))}
		for _, r := range fits {
			of.CandidateIDs = append(of.CandidateIDs, r.id)
		}
		f.OpenShifts = append(f.OpenShifts, of)
	}
	return f
}
