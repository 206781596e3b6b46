package scheduling

import "time"

// PreviewStatus 预览状态：pending → applied | discarded | expired
type PreviewStatus string

const (
	PreviewPending   PreviewStatus = "pending"
	PreviewApplied   PreviewStatus = "applied"
	PreviewDiscarded PreviewStatus = "discarded"
	PreviewExpired   PreviewStatus = "expired"
)

// Preview 未提交、已校验的操作集合；撤销会生成新的预览而不修改原预览
type Preview struct {
	ID              string        `json:"id"`
	StoreID         string        `json:"store_id"`
	WeekID          string        `json:"week_id"`
	SnapshotVersion string        `json:"snapshot_version"`
	Operations      OperationList `json:"operations"`
	Diffs           []Diff        `json:"diffs"`
	Visualization   Visualization `json:"visualization"`
	Status          PreviewStatus `json:"status"`
	Source          Source        `json:"source"`
	CreatedBy       string        `json:"created_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	AppliedAt       *time.Time    `json:"applied_at,omitempty"`
	AppliedBy       string        `json:"applied_by,omitempty"`
	AppliedVersion  string        `json:"applied_version,omitempty"`
	UndoOf          string        `json:"undo_of,omitempty"`
}

// Warnings 所有差异的提醒（去重）
func (p *Preview) Warnings() []string {
	var all ConstraintCheckResult
	for _, d := range p.Diffs {
		all = all.Merge(d.Constraints)
	}
	return all.Warnings
}

// InverseOperations 收集可撤销的反向操作（逆序，后做的先撤）
func (p *Preview) InverseOperations() []Operation {
	var ops []Operation
	for i := len(p.Diffs) - 1; i >= 0; i-- {
		if op, ok := p.Diffs[i].InverseOperation(); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Expired 是否已超过有效期
func (p *Preview) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
