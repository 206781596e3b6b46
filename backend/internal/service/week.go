package service

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var weekIDRe = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ParseWeekID 解析 ISO 周标识（如 2026-W42），返回该周周一 00:00 UTC
func ParseWeekID(weekID string) (time.Time, error) {
	m := weekIDRe.FindStringSubmatch(weekID)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])

	// ISO 第 1 周包含 1 月 4 日
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	if y, w := monday.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	return monday, nil
}

// FormatWeekID 由日期得到所在 ISO 周标识
func FormatWeekID(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}
