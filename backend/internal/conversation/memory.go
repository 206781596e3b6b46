package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tachora/backend/internal/scheduling"
	"tachora/backend/pkg/kvstore"
)

// 默认有效期；每次写入刷新，读取不刷新
const (
	DefaultTurnTTL  = 45 * time.Minute
	DefaultFocusTTL = 12 * time.Hour
)

const defaultThread = "default"

// ShiftOption 向用户展示的编号候选
type ShiftOption struct {
	ID           string               `json:"id"` // opt_1, opt_2 ...
	Index        int                  `json:"index"`
	ShiftID      string               `json:"shift_id"`
	Label        string               `json:"label"`
	Day          scheduling.Weekday   `json:"day"`
	StartMinute  int                  `json:"start_minute"`
	EndMinute    int                  `json:"end_minute"`
	Fits         bool                 `json:"fits"`
	Reason       string               `json:"reason,omitempty"`
	TimeOfDay    scheduling.TimeOfDay `json:"time_of_day"`
	EmployeeID   string               `json:"employee_id,omitempty"`
	EmployeeName string               `json:"employee_name,omitempty"`
}

// TurnScope 已锁定的对话范围
type TurnScope struct {
	EmployeeID   string             `json:"employee_id,omitempty"`
	EmployeeName string             `json:"employee_name,omitempty"`
	Day          scheduling.Weekday `json:"day,omitempty"`
	Role         string             `json:"role,omitempty"`
}

// TurnKey 轮次记忆的定位键
type TurnKey struct {
	UserID   string
	StoreID  string
	WeekID   string
	ThreadID string
}

func (k TurnKey) String() string {
	return fmt.Sprintf("turn:%s:%s:%s:%s", k.UserID, k.StoreID, k.WeekID, threadOrDefault(k.ThreadID))
}

// FocusKey 焦点记忆的定位键（不含周次，跨轮次保留）
type FocusKey struct {
	UserID   string
	StoreID  string
	ThreadID string
}

func (k FocusKey) String() string {
	return fmt.Sprintf("focus:%s:%s:%s", k.UserID, k.StoreID, threadOrDefault(k.ThreadID))
}

func threadOrDefault(id string) string {
	if id == "" {
		return defaultThread
	}
	return id
}

// TurnMemory 短期对话上下文：锁定范围 + 上一次给出的候选列表
type TurnMemory struct {
	UserID       string        `json:"user_id"`
	StoreID      string        `json:"store_id"`
	WeekID       string        `json:"week_id"`
	ThreadID     string        `json:"thread_id"`
	Scope        TurnScope     `json:"scope"`
	Options      []ShiftOption `json:"options"`
	Version      string        `json:"version"` // 展示候选时的快照版本，选中后按此版本建预览
	LastQuestion string        `json:"last_question,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Key 该记忆的定位键
func (m *TurnMemory) Key() TurnKey {
	return TurnKey{UserID: m.UserID, StoreID: m.StoreID, WeekID: m.WeekID, ThreadID: m.ThreadID}
}

// Option 按 ID 查找候选
func (m *TurnMemory) Option(id string) (*ShiftOption, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Options {
		if m.Options[i].ID == id {
			return &m.Options[i], true
		}
	}
	return nil, false
}

// FittingOptions 满足可用时间的候选
func (m *TurnMemory) FittingOptions() []ShiftOption {
	if m == nil {
		return nil
	}
	var out []ShiftOption
	for _, o := range m.Options {
		if o.Fits {
			out = append(out, o)
		}
	}
	return out
}

// FocusMemory 当前讨论对象（谁 / 哪天 / 什么岗位）
type FocusMemory struct {
	UserID       string             `json:"user_id"`
	StoreID      string             `json:"store_id"`
	ThreadID     string             `json:"thread_id"`
	WeekID       string             `json:"week_id,omitempty"`
	EmployeeID   string             `json:"employee_id,omitempty"`
	EmployeeName string             `json:"employee_name,omitempty"`
	Day          scheduling.Weekday `json:"day,omitempty"`
	Role         string             `json:"role,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Key 该记忆的定位键
func (f *FocusMemory) Key() FocusKey {
	return FocusKey{UserID: f.UserID, StoreID: f.StoreID, ThreadID: f.ThreadID}
}

// MemoryStore 轮次/焦点记忆的读写，底层为带 TTL 的键值存储
type MemoryStore struct {
	kv       kvstore.Store
	turnTTL  time.Duration
	focusTTL time.Duration
	now      func() time.Time
}

// NewMemoryStore ttl <= 0 时使用默认值
func NewMemoryStore(kv kvstore.Store, turnTTL, focusTTL time.Duration) *MemoryStore {
	if turnTTL <= 0 {
		turnTTL = DefaultTurnTTL
	}
	if focusTTL <= 0 {
		focusTTL = DefaultFocusTTL
	}
	return &MemoryStore{kv: kv, turnTTL: turnTTL, focusTTL: focusTTL, now: time.Now}
}

// SaveTurnMemory 覆盖写入并刷新 TTL
func (s *MemoryStore) SaveTurnMemory(ctx context.Context, mem *TurnMemory) error {
	mem.UpdatedAt = s.now().UTC()
	return s.put(ctx, mem.Key().String(), mem, s.turnTTL)
}

// LoadTurnMemory 不存在或已过期时 ok=false
func (s *MemoryStore) LoadTurnMemory(ctx context.Context, key TurnKey) (*TurnMemory, bool, error) {
	var mem TurnMemory
	ok, err := s.get(ctx, key.String(), &mem)
	if !ok || err != nil {
		return nil, false, err
	}
	return &mem, true, nil
}

// UpdateTurnMemory 读-改-写；记忆不存在时从空记忆开始。同键并发写入以最后一次为准。
func (s *MemoryStore) UpdateTurnMemory(ctx context.Context, key TurnKey, fn func(*TurnMemory) error) (*TurnMemory, error) {
	mem, ok, err := s.LoadTurnMemory(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		mem = &TurnMemory{UserID: key.UserID, StoreID: key.StoreID, WeekID: key.WeekID, ThreadID: key.ThreadID}
	}
	if err := fn(mem); err != nil {
		return nil, err
	}
	// 键字段不允许被回调改写
	mem.UserID, mem.StoreID, mem.WeekID, mem.ThreadID = key.UserID, key.StoreID, key.WeekID, key.ThreadID
	if err := s.SaveTurnMemory(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// ClearTurnMemory 返回删除前是否存在
func (s *MemoryStore) ClearTurnMemory(ctx context.Context, key TurnKey) (bool, error) {
	return s.kv.Delete(ctx, key.String())
}

// SaveFocus 覆盖写入并刷新 TTL
func (s *MemoryStore) SaveFocus(ctx context.Context, focus *FocusMemory) error {
	focus.UpdatedAt = s.now().UTC()
	return s.put(ctx, focus.Key().String(), focus, s.focusTTL)
}

// LoadFocus 不存在或已过期时 ok=false
func (s *MemoryStore) LoadFocus(ctx context.Context, key FocusKey) (*FocusMemory, bool, error) {
	var focus FocusMemory
	ok, err := s.get(ctx, key.String(), &focus)
	if !ok || err != nil {
		return nil, false, err
	}
	return &focus, true, nil
}

// ClearFocus 返回删除前是否存在
func (s *MemoryStore) ClearFocus(ctx context.Context, key FocusKey) (bool, error) {
	return s.kv.Delete(ctx, key.String())
}

func (s *MemoryStore) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", key, err)
	}
	return s.kv.SetWithTTL(ctx, key, b, ttl)
}

func (s *MemoryStore) get(ctx context.Context, key string, v any) (bool, error) {
	b, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("反序列化 %s 失败: %w", key, err)
	}
	return true, nil
}
