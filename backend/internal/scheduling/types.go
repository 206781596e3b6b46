package scheduling

import (
	"fmt"
	"strings"
)

// ── 时间常量 ──

const (
	MinutesPerDay  = 24 * 60
	MinutesPerWeek = 7 * MinutesPerDay
)

// Weekday 星期（MON..SUN），索引 0..6
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// Weekdays 按周内顺序排列
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// Index 返回 0(MON)..6(SUN)，非法值返回 -1
func (d Weekday) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// Valid 是否为合法星期
func (d Weekday) Valid() bool { return d.Index() >= 0 }

// Name 英文全称，用于可读提示
func (d Weekday) Name() string {
	if n, ok := weekdayNames[d]; ok {
		return n
	}
	return string(d)
}

// WeekdayFromIndex 由索引取星期（取模 7）
func WeekdayFromIndex(i int) Weekday {
	return Weekdays[((i%7)+7)%7]
}

// ParseWeekday 解析 "MON" / "mon" / "Monday" 等写法
func ParseWeekday(s string) (Weekday, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if len(v) >= 3 {
		d := Weekday(v[:3])
		if d.Valid() && (len(v) == 3 || strings.EqualFold(d.Name(), s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid weekday %q", s)
}

// FormatMinute 将分钟数格式化为 HH:MM
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AbsoluteMinute 映射为周内绝对分钟：dayIndex*1440 + minuteOfDay
func AbsoluteMinute(day Weekday, minute int) int {
	return day.Index()*MinutesPerDay + minute
}

// ── 读模型 ──

// AvailabilitySlot 员工某日的可用时间窗
type AvailabilitySlot struct {
	Day         Weekday `json:"day"`
	IsOff       bool    `json:"is_off"`
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
}

// EmployeeProfile 员工画像，单次约束校验期间不可变
type EmployeeProfile struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	HomeStoreID         string             `json:"home_store_id"`
	CanWorkAcrossStores bool               `json:"can_work_across_stores"`
	ContractType        string             `json:"contract_type"`
	WeeklyMinutesTarget int                `json:"weekly_minutes_target"`
	Availability        []AvailabilitySlot `json:"availability"`
	RoleIDs             []string           `json:"role_ids"`
	RoleNames           []string           `json:"role_names"`
}

// AvailabilityOn 返回指定日期的可用时间窗
func (e *EmployeeProfile) AvailabilityOn(day Weekday) (AvailabilitySlot, bool) {
	for _, a := range e.Availability {
		if a.Day == day {
			return a, true
		}
	}
	return AvailabilitySlot{}, false
}

// Shift 可预订的具体班次；模板班次 ID 为 {templateID}-{DAY}
type Shift struct {
	ID          string  `json:"id"`
	Day         Weekday `json:"day"`
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	RoleID      string  `json:"role_id,omitempty"`
	RoleName    string  `json:"role_name,omitempty"`
	TemplateID  string  `json:"template_id,omitempty"`
}

// Duration 班次时长（分钟）
func (s Shift) Duration() int { return s.EndMinute - s.StartMinute }

// AssignmentSegment 已提交的排班段；EmployeeID 为空表示空缺
type AssignmentSegment struct {
	ID          string  `json:"id"`
	StoreID     string  `json:"store_id,omitempty"`
	Day         Weekday `json:"day"`
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	EmployeeID  string  `json:"employee_id,omitempty"`
	TemplateID  string  `json:"template_id,omitempty"`
	RoleID      string  `json:"role_id,omitempty"`
	RoleName    string  `json:"role_name,omitempty"`
}

// Open 是否空缺
func (a AssignmentSegment) Open() bool { return a.EmployeeID == "" }

// Duration 时长（分钟）
func (a AssignmentSegment) Duration() int { return a.EndMinute - a.StartMinute }

// Shift 将排班段视为班次
func (a AssignmentSegment) Shift() Shift {
	return Shift{
		ID:          a.ID,
		Day:         a.Day,
		StartMinute: a.StartMinute,
		EndMinute:   a.EndMinute,
		RoleID:      a.RoleID,
		RoleName:    a.RoleName,
		TemplateID:  a.TemplateID,
	}
}

// RoleRef 门店岗位
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
