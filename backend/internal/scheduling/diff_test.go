package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiff_AssignTemplateShift(t *testing.T) {
	snap := fixtureSnapshot()
	op := AssignShift{ShiftRef: "tpl-open-MON", EmployeeID: "emp-bob"}

	d := BuildDiff(op, snap)

	require.True(t, d.Constraints.OK(), "blockers: %v", d.Constraints.Blockers)
	require.Len(t, d.After, 1)
	assert.Equal(t, "Bob", d.After[0].EmployeeName)
	assert.Equal(t, []EmployeeMinutes{{
		EmployeeID: "emp-bob", Name: "Bob",
		BeforeMinutes: 360, AfterMinutes: 720,
		BeforeDays: 1, AfterDays: 2,
	}}, d.Employees)

	inv, ok := d.InverseOperation()
	require.True(t, ok)
	assert.Equal(t, UnassignShift{ShiftRef: "tpl-open-MON", EmployeeID: "emp-bob"}, inv)
}

func TestBuildDiffs_InverseRestoresMinutes(t *testing.T) {
	snap := fixtureSnapshot()
	before := snap.EmployeeState("emp-bob").WeeklyMinutes

	for _, op := range []Operation{
		AssignShift{ShiftRef: "tpl-open-MON", EmployeeID: "emp-bob"},
		UnassignShift{ShiftRef: "as-bob", EmployeeID: "emp-bob"},
	} {
		diffs, after := BuildDiffs([]Operation{op}, snap)
		require.Empty(t, Blockers(diffs))

		inv, ok := diffs[0].InverseOperation()
		require.True(t, ok, "%s 应有反向操作", op.Type())

		undo, restored := BuildDiffs([]Operation{inv}, after)
		require.Empty(t, Blockers(undo), "撤销 %s 不应被阻断", op.Type())
		assert.Equal(t, before, restored.EmployeeState("emp-bob").WeeklyMinutes)
	}
}

func TestBuildDiffs_SequentialVisibility(t *testing.T) {
	snap := fixtureSnapshot()
	ops := []Operation{
		AssignShift{ShiftRef: "tpl-open-MON", EmployeeID: "emp-alice"},
		AssignShift{ShiftRef: "tpl-open-MON", EmployeeID: "emp-bob"},
	}

	diffs, _ := BuildDiffs(ops, snap)

	require.Len(t, diffs, 2)
	assert.True(t, diffs[0].Constraints.OK())
	assert.Equal(t, []string{BlockerAlreadyAssigned}, diffs[1].Constraints.Blockers)
	assert.Equal(t, []string{BlockerAlreadyAssigned}, Blockers(diffs))
	assert.Len(t, snap.Assignments, 3, "原快照不应被修改")
}

func TestBuildDiff_SwapIsSelfInverse(t *testing.T) {
	snap := fixtureSnapshot()
	op := SwapShifts{AssignmentAID: "as-alice", AssignmentBID: "as-bob"}

	d := BuildDiff(op, snap)

	inv, ok := d.InverseOperation()
	require.True(t, ok)
	assert.Equal(t, op, inv)
	require.Len(t, d.After, 2)
	assert.Equal(t, "emp-bob", d.After[0].EmployeeID)
	assert.Equal(t, "emp-alice", d.After[1].EmployeeID)
}

func TestBuildDiff_AddShiftHasNoInverse(t *testing.T) {
	d := BuildDiff(AddShift{Day: Friday, StartMinute: 600, EndMinute: 900, RoleName: "Cashier"}, fixtureSnapshot())

	assert.True(t, d.Constraints.OK())
	_, ok := d.InverseOperation()
	assert.False(t, ok)
	require.Len(t, d.After, 1)
	assert.Equal(t, "Cashier", d.After[0].RoleName)
}

func TestBuildDiff_UnsupportedKinds(t *testing.T) {
	snap := fixtureSnapshot()
	start := 600
	for _, op := range []Operation{
		EditShift{ShiftRef: "as-bob", StartMinute: &start},
		EditEmployee{EmployeeID: "emp-bob"},
		DeleteShift{ShiftRef: "as-bob"},
	} {
		d := BuildDiff(op, snap)
		assert.Equal(t, []string{BlockerNotSupported}, d.Constraints.Blockers, string(op.Type()))
	}
}

func TestBuildVisualization(t *testing.T) {
	snap := fixtureSnapshot()
	ops := []Operation{
		UnassignShift{ShiftRef: "as-bob"},
		AssignShift{ShiftRef: "as-bob", EmployeeID: "emp-alice"},
	}
	diffs, after := BuildDiffs(ops, snap)
	require.Empty(t, Blockers(diffs))

	vis := BuildVisualization(diffs, snap, after)

	assert.Len(t, vis.CalendarDeltas, 2)
	assert.Equal(t, []EmployeeMinutes{
		{EmployeeID: "emp-alice", Name: "Alice", BeforeMinutes: 240, AfterMinutes: 600, BeforeDays: 1, AfterDays: 2},
		{EmployeeID: "emp-bob", Name: "Bob", BeforeMinutes: 360, AfterMinutes: 0, BeforeDays: 1, AfterDays: 0},
	}, vis.EmployeeImpacts)
}

func TestOperationList_JSONEnvelope(t *testing.T) {
	at := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	meta := OperationMeta{StoreID: testStore, WeekID: "2026-W42", At: at, Source: SourceAI}
	want := OperationList{
		AssignShift{OperationMeta: meta, ShiftRef: "tpl-open-MON", EmployeeID: "emp-bob"},
		SwapShifts{OperationMeta: meta, AssignmentAID: "a", AssignmentBID: "b"},
		AddShift{OperationMeta: meta, Day: Sunday, StartMinute: 60, EndMinute: 120, RoleName: "Cashier"},
	}

	b, err := json.Marshal(want)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"assign_shift"`)

	var got OperationList
	require.NoError(t, json.Unmarshal(b, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("往返序列化不一致 (-want +got):\n%s", diff)
	}

	_, err = UnmarshalOperation([]byte(`{"type":"teleport","data":{}}`))
	assert.Error(t, err)
}

func TestPreview_InverseOperationsReversed(t *testing.T) {
	snap := fixtureSnapshot()
	ops := []Operation{
		AssignShift{ShiftRef: "as-open", EmployeeID: "emp-bob"},
		UnassignShift{ShiftRef: "as-alice"},
	}
	diffs, _ := BuildDiffs(ops, snap)
	p := &Preview{Diffs: diffs, ExpiresAt: time.Now().Add(time.Minute)}

	inv := p.InverseOperations()
	require.Len(t, inv, 2)
	assert.Equal(t, OpAssignShift, inv[0].Type())
	assert.Equal(t, OpUnassignShift, inv[1].Type())
	assert.False(t, p.Expired(time.Now()))
}
