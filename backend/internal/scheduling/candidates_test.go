package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateShifts() []Shift {
	return []Shift{
		{ID: "eve", Day: Monday, StartMinute: 18 * 60, EndMinute: 22 * 60, RoleName: "Cashier"},
		{ID: "am-b", Day: Monday, StartMinute: 9 * 60, EndMinute: 15 * 60, RoleName: "Cashier"},
		{ID: "am-a", Day: Monday, StartMinute: 9 * 60, EndMinute: 13 * 60, RoleID: "role-stock", RoleName: "Stock"},
		{ID: "pm", Day: Monday, StartMinute: 13 * 60, EndMinute: 19*60 + 30, RoleName: "Cashier"},
		{ID: "tue", Day: Tuesday, StartMinute: 9 * 60, EndMinute: 15 * 60, RoleName: "Cashier"},
	}
}

func TestGenerateCandidates_FilterAndSort(t *testing.T) {
	avail := []AvailabilitySlot{{Day: Monday, StartMinute: 9 * 60, EndMinute: 19 * 60}}

	got := GenerateCandidates(candidateShifts(), avail, Monday, "")

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.Shift.ID)
	}
	assert.Equal(t, []string{"am-a", "am-b", "pm", "eve"}, ids)

	assert.True(t, got[0].Fits)
	assert.True(t, got[1].Fits)
	assert.False(t, got[2].Fits, "19:30 结束超出可用时间，不允许宽限")
	assert.Equal(t, ReasonAvailabilityAfter, got[2].Reason)
	assert.Equal(t, Evening, got[3].TimeOfDay)
}

func TestGenerateCandidates_RoleFilter(t *testing.T) {
	avail := fullWeek(0, MinutesPerDay)

	byName := GenerateCandidates(candidateShifts(), avail, Monday, "stock")
	require.Len(t, byName, 1)
	assert.Equal(t, "am-a", byName[0].Shift.ID)

	byID := GenerateCandidates(candidateShifts(), avail, Monday, "role-stock")
	require.Len(t, byID, 1)

	assert.Empty(t, GenerateCandidates(candidateShifts(), avail, Monday, "Baker"))
}

func TestGenerateCandidates_OffOrMissingDay(t *testing.T) {
	off := []AvailabilitySlot{{Day: Monday, IsOff: true}}
	for _, c := range GenerateCandidates(candidateShifts(), off, Monday, "") {
		assert.False(t, c.Fits)
		assert.Equal(t, ReasonAvailabilityOff, c.Reason)
	}

	got := GenerateCandidates(candidateShifts(), nil, Tuesday, "")
	require.Len(t, got, 1)
	assert.Equal(t, ReasonAvailabilityOff, got[0].Reason)
}

func TestCandidateLabelAndTimeOfDay(t *testing.T) {
	got := GenerateCandidates(candidateShifts(), fullWeek(0, MinutesPerDay), Monday, "Cashier")
	require.Len(t, got, 3)

	assert.Equal(t, "Morning 09:00-15:00 (6h)", got[0].Label)
	assert.Equal(t, "Afternoon 13:00-19:30 (6h30)", got[1].Label)
	assert.Equal(t, 390, got[1].DurationMinutes)

	assert.Equal(t, Morning, TimeOfDayOf(11*60+59))
	assert.Equal(t, Afternoon, TimeOfDayOf(12*60))
	assert.Equal(t, Evening, TimeOfDayOf(18*60))
}

func TestFormatCandidatesMessage(t *testing.T) {
	avail := []AvailabilitySlot{{Day: Monday, StartMinute: 9 * 60, EndMinute: 19 * 60}}
	cands := GenerateCandidates(candidateShifts(), avail, Monday, "Cashier")

	msg := FormatCandidatesMessage("Alice", Monday, cands)

	assert.Equal(t, "Shifts on Monday for Alice:\n"+
		"1. Morning 09:00-15:00 (6h) · Cashier ✓\n"+
		"2. Afternoon 13:00-19:30 (6h30) · Cashier ✗ (availability:after)\n"+
		"3. Evening 18:00-22:00 (4h) · Cashier ✗ (availability:after)\n"+
		"Reply with a number to choose.", msg)

	assert.Equal(t, "No matching shifts on Sunday.", FormatCandidatesMessage("Alice", Sunday, nil))
}
