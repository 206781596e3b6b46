package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tachora/backend/internal/scheduling"
	"tachora/backend/pkg/kvstore"
)

// recordingKV 记录每个键最后一次写入的 TTL
type recordingKV struct {
	kvstore.Store
	ttls map[string]time.Duration
}

func (r *recordingKV) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.ttls[key] = ttl
	return r.Store.SetWithTTL(ctx, key, value, ttl)
}

func newTestMemoryStore(t *testing.T) (*MemoryStore, *recordingKV) {
	t.Helper()
	mem := kvstore.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	kv := &recordingKV{Store: mem, ttls: map[string]time.Duration{}}
	return NewMemoryStore(kv, 0, 0), kv
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "turn:u1:s1:2026-W42:t9", TurnKey{UserID: "u1", StoreID: "s1", WeekID: "2026-W42", ThreadID: "t9"}.String())
	assert.Equal(t, "turn:u1:s1:2026-W42:default", TurnKey{UserID: "u1", StoreID: "s1", WeekID: "2026-W42"}.String())
	assert.Equal(t, "focus:u1:s1:t9", FocusKey{UserID: "u1", StoreID: "s1", ThreadID: "t9"}.String())
}

func TestMemoryStore_TurnMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestMemoryStore(t)
	key := TurnKey{UserID: "u1", StoreID: "s1", WeekID: "2026-W42", ThreadID: "t1"}

	_, ok, err := store.LoadTurnMemory(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	mem := twoOptionMemory()
	mem.UserID, mem.StoreID, mem.WeekID, mem.ThreadID = key.UserID, key.StoreID, key.WeekID, key.ThreadID
	require.NoError(t, store.SaveTurnMemory(ctx, mem))
	assert.Equal(t, DefaultTurnTTL, kv.ttls[key.String()])

	got, ok, err := store.LoadTurnMemory(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mem.Options, got.Options)
	assert.Equal(t, "Alice", got.Scope.EmployeeName)

	existed, err := store.ClearTurnMemory(ctx, key)
	require.NoError(t, err)
	assert.True(t, existed)
	_, ok, _ = store.LoadTurnMemory(ctx, key)
	assert.False(t, ok)
}

func TestMemoryStore_UpdateTurnMemory(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemoryStore(t)
	key := TurnKey{UserID: "u1", StoreID: "s1", WeekID: "2026-W42"}

	mem, err := store.UpdateTurnMemory(ctx, key, func(m *TurnMemory) error {
		m.Scope.Day = scheduling.Tuesday
		m.StoreID = "hijacked"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", mem.StoreID, "回调不能改写键字段")

	_, err = store.UpdateTurnMemory(ctx, key, func(m *TurnMemory) error {
		assert.Equal(t, scheduling.Tuesday, m.Scope.Day, "应在已有记忆上更新")
		m.LastQuestion = "Which shift?"
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.UpdateTurnMemory(ctx, key, func(m *TurnMemory) error {
		m.LastQuestion = "lost"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, ok, err := store.LoadTurnMemory(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Which shift?", got.LastQuestion)
}

func TestMemoryStore_Focus(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestMemoryStore(t)
	focus := &FocusMemory{UserID: "u1", StoreID: "s1", EmployeeID: "emp-1", EmployeeName: "Alice", Day: scheduling.Friday}

	require.NoError(t, store.SaveFocus(ctx, focus))
	assert.Equal(t, DefaultFocusTTL, kv.ttls["focus:u1:s1:default"])

	got, ok, err := store.LoadFocus(ctx, focus.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.False(t, got.UpdatedAt.IsZero())

	// 清除轮次记忆不影响焦点记忆
	_, err = store.ClearTurnMemory(ctx, TurnKey{UserID: "u1", StoreID: "s1", WeekID: "2026-W42"})
	require.NoError(t, err)
	_, ok, _ = store.LoadFocus(ctx, focus.Key())
	assert.True(t, ok)

	existed, err := store.ClearFocus(ctx, focus.Key())
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestMemoryStore_CustomTTL(t *testing.T) {
	ctx := context.Background()
	inner := kvstore.NewMemoryStore(0)
	defer inner.Close()
	kv := &recordingKV{Store: inner, ttls: map[string]time.Duration{}}
	store := NewMemoryStore(kv, 10*time.Minute, time.Hour)

	key := TurnKey{UserID: "u", StoreID: "s", WeekID: "w"}
	_, err := store.UpdateTurnMemory(ctx, key, func(*TurnMemory) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, kv.ttls[key.String()])
}
