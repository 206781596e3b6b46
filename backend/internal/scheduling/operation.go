package scheduling

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationType 操作类型判别字段
type OperationType string

const (
	OpAssignShift   OperationType = "assign_shift"
	OpUnassignShift OperationType = "unassign_shift"
	OpSwapShifts    OperationType = "swap_shifts"
	OpAddShift      OperationType = "add_shift"
	OpEditShift     OperationType = "edit_shift"
	OpEditEmployee  OperationType = "edit_employee"
	OpDeleteShift   OperationType = "delete_shift"
)

// Source 操作来源
type Source string

const (
	SourceAI   Source = "ai"
	SourceUser Source = "user"
)

// OperationMeta 所有操作共有的作用域与来源
type OperationMeta struct {
	StoreID string    `json:"store_id"`
	WeekID  string    `json:"week_id"`
	At      time.Time `json:"at"`
	Source  Source    `json:"source"`
}

// Operation 封闭的操作集合，只能由本包内类型实现
type Operation interface {
	Type() OperationType
	Meta() OperationMeta
	sealed()
}

// AssignShift 将员工排入班次；ShiftRef 可为班次 ID 或排班段 ID
type AssignShift struct {
	OperationMeta
	ShiftRef   string `json:"shift_id"`
	EmployeeID string `json:"employee_id"`
}

// UnassignShift 将排班段置空（保留班次）
type UnassignShift struct {
	OperationMeta
	ShiftRef   string `json:"shift_id"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// SwapShifts 交换两个排班段的员工
type SwapShifts struct {
	OperationMeta
	AssignmentAID string `json:"assignment_a_id"`
	AssignmentBID string `json:"assignment_b_id"`
}

// AddShift 新增单日循环班次模板
type AddShift struct {
	OperationMeta
	Day         Weekday `json:"day"`
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	RoleName    string  `json:"role_name"`
}

// EditShift 修改班次（建模但暂不执行）
type EditShift struct {
	OperationMeta
	ShiftRef    string `json:"shift_id"`
	StartMinute *int   `json:"start_minute,omitempty"`
	EndMinute   *int   `json:"end_minute,omitempty"`
}

// EditEmployee 修改员工信息（建模但暂不执行）
type EditEmployee struct {
	OperationMeta
	EmployeeID string          `json:"employee_id"`
	Changes    json.RawMessage `json:"changes,omitempty"`
}

// DeleteShift 删除班次（建模但暂不执行）
type DeleteShift struct {
	OperationMeta
	ShiftRef string `json:"shift_id"`
}

func (o AssignShift) Type() OperationType   { return OpAssignShift }
func (o UnassignShift) Type() OperationType { return OpUnassignShift }
func (o SwapShifts) Type() OperationType    { return OpSwapShifts }
func (o AddShift) Type() OperationType      { return OpAddShift }
func (o EditShift) Type() OperationType     { return OpEditShift }
func (o EditEmployee) Type() OperationType  { return OpEditEmployee }
func (o DeleteShift) Type() OperationType   { return OpDeleteShift }

func (o OperationMeta) Meta() OperationMeta { return o }
func (OperationMeta) sealed()               {}

// OperationVisitor 每种操作一个方法。新增操作类型时必须在此加方法，
// 所有实现方因此在编译期被强制补齐处理逻辑。
type OperationVisitor[T any] interface {
	AssignShift(AssignShift) (T, error)
	UnassignShift(UnassignShift) (T, error)
	SwapShifts(SwapShifts) (T, error)
	AddShift(AddShift) (T, error)
	EditShift(EditShift) (T, error)
	EditEmployee(EditEmployee) (T, error)
	DeleteShift(DeleteShift) (T, error)
}

// Visit 将操作分派给访问者
func Visit[T any](op Operation, v OperationVisitor[T]) (T, error) {
	switch o := op.(type) {
	case AssignShift:
		return v.AssignShift(o)
	case UnassignShift:
		return v.UnassignShift(o)
	case SwapShifts:
		return v.SwapShifts(o)
	case AddShift:
		return v.AddShift(o)
	case EditShift:
		return v.EditShift(o)
	case EditEmployee:
		return v.EditEmployee(o)
	case DeleteShift:
		return v.DeleteShift(o)
	}
	var zero T
	return zero, fmt.Errorf("unknown operation %T", op)
}

// ── JSON 信封 ──

type operationEnvelope struct {
	Type OperationType   `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalOperation 序列化为 {"type":..., "data":{...}}
func MarshalOperation(op Operation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(operationEnvelope{Type: op.Type(), Data: data})
}

// UnmarshalOperation 按判别字段反序列化
func UnmarshalOperation(b []byte) (Operation, error) {
	var env operationEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	return DecodeOperation(env.Type, env.Data)
}

// DecodeOperation 按类型解析操作体
func DecodeOperation(t OperationType, data []byte) (Operation, error) {
	switch t {
	case OpAssignShift:
		return decodeAs[AssignShift](data)
	case OpUnassignShift:
		return decodeAs[UnassignShift](data)
	case OpSwapShifts:
		return decodeAs[SwapShifts](data)
	case OpAddShift:
		return decodeAs[AddShift](data)
	case OpEditShift:
		return decodeAs[EditShift](data)
	case OpEditEmployee:
		return decodeAs[EditEmployee](data)
	case OpDeleteShift:
		return decodeAs[DeleteShift](data)
	}
	return nil, fmt.Errorf("unknown operation type %q", t)
}

func decodeAs[T Operation](data []byte) (Operation, error) {
	var op T
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, err
	}
	return op, nil
}

// OperationList 可 JSON 序列化的操作列表
type OperationList []Operation

func (l OperationList) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, op := range l {
		b, err := MarshalOperation(op)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (l *OperationList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ops := make(OperationList, 0, len(raw))
	for _, r := range raw {
		op, err := UnmarshalOperation(r)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	*l = ops
	return nil
}
