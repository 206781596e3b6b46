package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"tachora/backend/internal/scheduling"
)

// Intent 回复意图
type Intent string

const (
	IntentConfirm Intent = "confirm"
	IntentSelect  Intent = "select"
	IntentReject  Intent = "reject"
	IntentUnknown Intent = "unknown"
)

// 各匹配阶段的置信度
const (
	confidenceNumeric        = 1.0
	confidenceOrdinal        = 0.95
	confidenceAffirmative    = 0.95
	confidenceNegative       = 0.95
	confidenceAssignPronoun  = 0.9
	confidenceTimeOfDay      = 0.85
	confidenceTimeOfDayVague = 0.2
	confidenceClockTime      = 1.0
	confidenceEmployeeName   = 0.9
	confidenceLabel          = 0.7
)

// 命中的匹配阶段，便于日志排查
const (
	RuleNumeric      = "numeric"
	RuleOrdinal      = "ordinal"
	RuleAffirmative  = "affirmative"
	RuleNegative     = "negative"
	RuleAssign       = "assign"
	RuleTimeOfDay    = "time_of_day"
	RuleClockTime    = "clock_time"
	RuleEmployeeName = "employee_name"
	RuleLabel        = "label"
)

// Interpretation 解析结果
type Interpretation struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	OptionID   string  `json:"option_id,omitempty"`
	AutoApply  bool    `json:"auto_apply,omitempty"`
	Rule       string  `json:"rule,omitempty"`
}

func unknown() Interpretation { return Interpretation{Intent: IntentUnknown} }

func selected(opt ShiftOption, confidence float64, rule string) Interpretation {
	return Interpretation{Intent: IntentSelect, Confidence: confidence, OptionID: opt.ID, Rule: rule}
}

// Interpreter 按固定优先级解析用户对候选列表的回复，首个命中即返回
type Interpreter struct {
	tables *Tables
}

// NewInterpreter tables 为 nil 时使用内置词表
func NewInterpreter(tables *Tables) *Interpreter {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Interpreter{tables: tables}
}

var (
	numericRe   = regexp.MustCompile(`^#?(\d+)[.)]?$`)
	clock24Re   = regexp.MustCompile(`\b([01]?\d|2[0-3])[:h]([0-5]\d)\b`)
	clockAmPmRe = regexp.MustCompile(`\b(1[0-2]|0?[1-9])(?::([0-5]\d))?\s?(am|pm)\b`)
	clockHourRe = regexp.MustCompile(`\b([01]?\d|2[0-3])h\b`)
)

// Interpret 确定性解析；locale 决定词条的取值顺序，并限定否定词与代词的语言
func (in *Interpreter) Interpret(text string, mem *TurnMemory, locale string) Interpretation {
	normalized := Normalize(text)
	if normalized == "" {
		return unknown()
	}
	tokens := tokenize(normalized)
	locale = baseLocale(locale)

	var options []ShiftOption
	if mem != nil {
		options = mem.Options
	}
	fitting := mem.FittingOptions()

	// 1. 纯数字 → 序号
	if m := numericRe.FindStringSubmatch(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(options) {
			return unknown()
		}
		return selected(options[n-1], confidenceNumeric, RuleNumeric)
	}

	// 2. 序数词
	for _, o := range preferLocale(in.tables.ordinals, locale) {
		if containsPhrase(tokens, o.tokens) {
			if o.index > len(options) {
				return unknown()
			}
			return selected(options[o.index-1], confidenceOrdinal, RuleOrdinal)
		}
	}

	// 3. 肯定词：恰好一个满足的候选时直接选中
	if matchAny(tokens, in.tables.affirmative) {
		if len(fitting) == 1 {
			return selected(fitting[0], confidenceAffirmative, RuleAffirmative)
		}
		return Interpretation{Intent: IntentConfirm, Confidence: confidenceAffirmative, Rule: RuleAffirmative}
	}

	// 否定词与代词容易与其他语言的常用词撞车，只在相关语言内匹配
	scope := in.scopeLocales(tokens, locale)

	// 4. 否定词
	if matchAnyIn(tokens, in.tables.negative, scope) {
		return Interpretation{Intent: IntentReject, Confidence: confidenceNegative, Rule: RuleNegative}
	}

	// 5. 指派动词 + 代词/锁定员工名：唯一允许自动应用的路径。
	// 回复里点名的时段与唯一候选不符时不自动应用
	if len(fitting) == 1 && matchAny(tokens, in.tables.assign) &&
		(matchAnyIn(tokens, in.tables.pronouns, scope) || mentionsName(normalized, tokens, mem.Scope.EmployeeName)) &&
		!in.mentionsOtherTimeOfDay(tokens, fitting[0].TimeOfDay) {
		res := selected(fitting[0], confidenceAssignPronoun, RuleAssign)
		res.AutoApply = true
		return res
	}

	// 6. 时段词：不唯一时宁可返回低置信度 unknown 也不猜
	for _, p := range preferLocale(in.tables.timeOfDay, locale) {
		if !containsPhrase(tokens, p.tokens) {
			continue
		}
		var hits []ShiftOption
		for _, o := range fitting {
			if o.TimeOfDay == p.bucket {
				hits = append(hits, o)
			}
		}
		if len(hits) == 1 {
			return selected(hits[0], confidenceTimeOfDay, RuleTimeOfDay)
		}
		return Interpretation{Intent: IntentUnknown, Confidence: confidenceTimeOfDayVague, Rule: RuleTimeOfDay}
	}

	// 7. 钟点
	if minute, ok := parseClockTime(normalized); ok {
		if opt, ok := optionStartingAt(options, minute); ok {
			return selected(opt, confidenceClockTime, RuleClockTime)
		}
	}

	// 8. 员工姓名
	var named []ShiftOption
	for _, o := range options {
		if o.EmployeeName != "" && mentionsName(normalized, tokens, o.EmployeeName) {
			named = append(named, o)
		}
	}
	if len(named) == 1 {
		return selected(named[0], confidenceEmployeeName, RuleEmployeeName)
	}

	// 9. 标签子串（仅满足的候选）
	for _, o := range fitting {
		label := Normalize(o.Label)
		if label == "" {
			continue
		}
		if (len([]rune(normalized)) >= 3 && strings.Contains(label, normalized)) || strings.Contains(normalized, label) {
			return selected(o, confidenceLabel, RuleLabel)
		}
	}

	return unknown()
}

func baseLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

func matchAny(tokens []string, phrases []phrase) bool {
	return matchAnyIn(tokens, phrases, nil)
}

// matchAnyIn scope 为 nil 时不限语言
func matchAnyIn(tokens []string, phrases []phrase, scope map[string]bool) bool {
	for _, p := range phrases {
		if scope != nil && !scope[p.locale] {
			continue
		}
		if containsPhrase(tokens, p.tokens) {
			return true
		}
	}
	return false
}

// scopeLocales 指定了已加载的语言时只取该语言；
// 否则命中指派动词时取动词所属的语言；都没有时返回 nil（不限）
func (in *Interpreter) scopeLocales(tokens []string, locale string) map[string]bool {
	if locale != "" && in.tables.hasLocale(locale) {
		return map[string]bool{locale: true}
	}
	var scope map[string]bool
	for _, p := range in.tables.assign {
		if containsPhrase(tokens, p.tokens) {
			if scope == nil {
				scope = make(map[string]bool)
			}
			scope[p.locale] = true
		}
	}
	return scope
}

func (in *Interpreter) mentionsOtherTimeOfDay(tokens []string, bucket scheduling.TimeOfDay) bool {
	for _, p := range in.tables.timeOfDay {
		if p.bucket != bucket && containsPhrase(tokens, p.tokens) {
			return true
		}
	}
	return false
}

// mentionsName 全名子串，或任一长度 ≥2 的姓名词元与输入词元相同
func mentionsName(normalized string, tokens []string, name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}
	if strings.Contains(normalized, n) {
		return true
	}
	for _, part := range tokenize(n) {
		if len([]rune(part)) < 2 {
			continue
		}
		for _, t := range tokens {
			if t == part {
				return true
			}
		}
	}
	return false
}

// parseClockTime 识别 "14:00"、"9h30"、"14h"、"9am"、"3 pm"、"3:30pm"
func parseClockTime(s string) (int, bool) {
	if m := clockAmPmRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm := 0
		if m[2] != "" {
			mm, _ = strconv.Atoi(m[2])
		}
		if h == 12 {
			h = 0
		}
		if m[3] == "pm" {
			h += 12
		}
		return h*60 + mm, true
	}
	if m := clock24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h*60 + mm, true
	}
	if m := clockHourRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return h * 60, true
	}
	return 0, false
}

// optionStartingAt 优先返回满足的候选
func optionStartingAt(options []ShiftOption, minute int) (ShiftOption, bool) {
	var fallback *ShiftOption
	for i := range options {
		if options[i].StartMinute != minute {
			continue
		}
		if options[i].Fits {
			return options[i], true
		}
		if fallback == nil {
			fallback = &options[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return ShiftOption{}, false
}

// ── 候选与操作 ──

// CandidatesToOptions 候选班次转为编号选项 opt_1..opt_n
func CandidatesToOptions(candidates []scheduling.ShiftCandidate, employeeID, employeeName string) []ShiftOption {
	out := make([]ShiftOption, 0, len(candidates))
	for i, c := range candidates {
		out = append(out, ShiftOption{
			ID:           "opt_" + strconv.Itoa(i+1),
			Index:        i + 1,
			ShiftID:      c.Shift.ID,
			Label:        c.Label,
			Day:          c.Shift.Day,
			StartMinute:  c.Shift.StartMinute,
			EndMinute:    c.Shift.EndMinute,
			Fits:         c.Fits,
			Reason:       c.Reason,
			TimeOfDay:    c.TimeOfDay,
			EmployeeID:   employeeID,
			EmployeeName: employeeName,
		})
	}
	return out
}

// ResolveOperation 将 select 结果转为排班操作
func ResolveOperation(mem *TurnMemory, res Interpretation, meta scheduling.OperationMeta) (scheduling.AssignShift, bool) {
	if res.Intent != IntentSelect {
		return scheduling.AssignShift{}, false
	}
	opt, ok := mem.Option(res.OptionID)
	if !ok {
		return scheduling.AssignShift{}, false
	}
	employeeID := opt.EmployeeID
	if employeeID == "" {
		employeeID = mem.Scope.EmployeeID
	}
	if employeeID == "" {
		return scheduling.AssignShift{}, false
	}
	if meta.StoreID == "" {
		meta.StoreID = mem.StoreID
	}
	if meta.WeekID == "" {
		meta.WeekID = mem.WeekID
	}
	return scheduling.AssignShift{OperationMeta: meta, ShiftRef: opt.ShiftID, EmployeeID: employeeID}, true
}
