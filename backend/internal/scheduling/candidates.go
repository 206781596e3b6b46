package scheduling

import (
	"fmt"
	"sort"
	"strings"
)

// TimeOfDay 时段分桶
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// TimeOfDayOf 按开始时间分桶：<12:00 上午，<18:00 下午，其余晚上
func TimeOfDayOf(startMinute int) TimeOfDay {
	switch {
	case startMinute < 12*60:
		return Morning
	case startMinute < 18*60:
		return Afternoon
	default:
		return Evening
	}
}

// ShiftCandidate 候选班次
type ShiftCandidate struct {
	Shift           Shift     `json:"shift"`
	Fits            bool      `json:"fits"`
	Reason          string    `json:"reason,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	TimeOfDay       TimeOfDay `json:"time_of_day"`
	Label           string    `json:"label"`
}

// GenerateCandidates 按日期与岗位筛选班次，仅检查可用时间规则（严格、无宽限）。
// 最终合法性在创建预览时由 CheckAssignConstraints 复核。
func GenerateCandidates(shifts []Shift, availability []AvailabilitySlot, day Weekday, role string) []ShiftCandidate {
	var slot *AvailabilitySlot
	for i := range availability {
		if availability[i].Day == day {
			slot = &availability[i]
			break
		}
	}

	out := []ShiftCandidate{}
	for _, s := range shifts {
		if s.Day != day || !matchesRole(s, role) {
			continue
		}
		c := ShiftCandidate{
			Shift:           s,
			DurationMinutes: s.Duration(),
			TimeOfDay:       TimeOfDayOf(s.StartMinute),
		}
		switch {
		case slot == nil || slot.IsOff:
			c.Reason = ReasonAvailabilityOff
		case s.StartMinute < slot.StartMinute:
			c.Reason = ReasonAvailabilityBefore
		case s.EndMinute > slot.EndMinute:
			c.Reason = ReasonAvailabilityAfter
		default:
			c.Fits = true
		}
		c.Label = candidateLabel(c)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Shift.StartMinute != out[j].Shift.StartMinute {
			return out[i].Shift.StartMinute < out[j].Shift.StartMinute
		}
		return out[i].Shift.ID < out[j].Shift.ID
	})
	return out
}

func matchesRole(s Shift, role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return true
	}
	return s.RoleID == role || strings.EqualFold(s.RoleName, role)
}

func candidateLabel(c ShiftCandidate) string {
	tod := string(c.TimeOfDay)
	return fmt.Sprintf("%s%s %s-%s (%s)",
		strings.ToUpper(tod[:1]), tod[1:],
		FormatMinute(c.Shift.StartMinute), FormatMinute(c.Shift.EndMinute),
		FormatDuration(c.DurationMinutes))
}

// FormatCandidatesMessage 渲染编号列表，供聊天或界面直接展示
func FormatCandidatesMessage(employeeName string, day Weekday, candidates []ShiftCandidate) string {
	if len(candidates) == 0 {
		return fmt.Sprintf("No matching shifts on %s.", day.Name())
	}
	var b strings.Builder
	if employeeName != "" {
		fmt.Fprintf(&b, "Shifts on %s for %s:\n", day.Name(), employeeName)
	} else {
		fmt.Fprintf(&b, "Shifts on %s:\n", day.Name())
	}
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s", i+1, c.Label)
		if c.Shift.RoleName != "" {
			fmt.Fprintf(&b, " · %s", c.Shift.RoleName)
		}
		if c.Fits {
			b.WriteString(" ✓")
		} else {
			fmt.Fprintf(&b, " ✗ (%s)", c.Reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("Reply with a number to choose.")
	return b.String()
}
