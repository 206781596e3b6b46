package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	"tachora/backend/internal/scheduling"
)

// operationApplier 在事务内把操作落到实时数据上
//
// working 为随操作推进的快照，用于应用时的权威复核；
// created 记录推演占位 ID（模板班次 ID）到新建排班段 ID 的映射。
type operationApplier struct {
	ctx      context.Context
	repo     *repository.Repository
	working  *scheduling.Snapshot
	preview  *scheduling.Preview
	actorID  string
	revision int
	created  map[string]string
	logs     []model.ScheduleChangeLog
}

var _ scheduling.OperationVisitor[struct{}] = (*operationApplier)(nil)

func (a *operationApplier) AssignShift(op scheduling.AssignShift) (struct{}, error) {
	if res := scheduling.CheckAssignConstraints(op, a.working); !res.OK() {
		return struct{}{}, &ConstraintViolationError{Blockers: res.Blockers}
	}
	target, ok := scheduling.ResolveAssignTarget(op.ShiftRef, a.working)
	if !ok {
		return struct{}{}, fmt.Errorf("%w: %s", ErrShiftNotFound, op.ShiftRef)
	}

	if target.Segment != nil {
		row, err := a.assignment(target.Segment.ID)
		if err != nil {
			return struct{}{}, err
		}
		original := row.EmployeeID
		row.EmployeeID = strPtr(op.EmployeeID)
		row.UpdatedBy = strPtr(a.actorID)
		if err := a.repo.Assignment.UpdateEmployee(a.ctx, row); err != nil {
			return struct{}{}, err
		}
		a.record(op.Type(), op.Source, row.AssignmentID, deref(row.TemplateID), original, row.EmployeeID)
		return struct{}{}, nil
	}

	// 模板班次尚无排班段：先建段再排入
	shift := target.Shift
	row := &model.ShiftAssignment{
		StoreID:     a.preview.StoreID,
		WeekID:      a.preview.WeekID,
		TemplateID:  strPtr(shift.TemplateID),
		RoleID:      strPtr(shift.RoleID),
		Day:         shift.Day.Index(),
		StartMinute: shift.StartMinute,
		EndMinute:   shift.EndMinute,
		EmployeeID:  strPtr(op.EmployeeID),
	}
	row.CreatedBy = strPtr(a.actorID)
	if err := a.repo.Assignment.Create(a.ctx, row); err != nil {
		return struct{}{}, err
	}
	a.created[shift.ID] = row.AssignmentID
	a.record(op.Type(), op.Source, row.AssignmentID, shift.TemplateID, nil, row.EmployeeID)
	return struct{}{}, nil
}

func (a *operationApplier) UnassignShift(op scheduling.UnassignShift) (struct{}, error) {
	if res := scheduling.CheckUnassignConstraints(op, a.working); !res.OK() {
		return struct{}{}, &ConstraintViolationError{Blockers: res.Blockers}
	}
	seg, ok := scheduling.ResolveUnassignTarget(op, a.working)
	if !ok {
		return struct{}{}, fmt.Errorf("%w: %s", ErrAssignmentNotFound, op.ShiftRef)
	}
	row, err := a.assignment(seg.ID)
	if err != nil {
		return struct{}{}, err
	}
	original := row.EmployeeID
	row.EmployeeID = nil
	row.UpdatedBy = strPtr(a.actorID)
	if err := a.repo.Assignment.UpdateEmployee(a.ctx, row); err != nil {
		return struct{}{}, err
	}
	a.record(op.Type(), op.Source, row.AssignmentID, deref(row.TemplateID), original, nil)
	return struct{}{}, nil
}

func (a *operationApplier) SwapShifts(op scheduling.SwapShifts) (struct{}, error) {
	if res := scheduling.CheckSwapConstraints(op, a.working); !res.OK() {
		return struct{}{}, &ConstraintViolationError{Blockers: res.Blockers}
	}
	rowA, err := a.assignment(op.AssignmentAID)
	if err != nil {
		return struct{}{}, err
	}
	rowB, err := a.assignment(op.AssignmentBID)
	if err != nil {
		return struct{}{}, err
	}

	empA, empB := rowA.EmployeeID, rowB.EmployeeID
	rowA.EmployeeID, rowB.EmployeeID = empB, empA
	rowA.UpdatedBy, rowB.UpdatedBy = strPtr(a.actorID), strPtr(a.actorID)
	for _, row := range []*model.ShiftAssignment{rowA, rowB} {
		if err := a.repo.Assignment.UpdateEmployee(a.ctx, row); err != nil {
			return struct{}{}, err
		}
	}
	a.record(op.Type(), op.Source, rowA.AssignmentID, deref(rowA.TemplateID), empA, empB)
	a.record(op.Type(), op.Source, rowB.AssignmentID, deref(rowB.TemplateID), empB, empA)
	return struct{}{}, nil
}

func (a *operationApplier) AddShift(op scheduling.AddShift) (struct{}, error) {
	role, err := a.repo.Role.GetByName(a.ctx, a.preview.StoreID, op.RoleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return struct{}{}, fmt.Errorf("%w: %s", ErrRoleNotFound, op.RoleName)
		}
		return struct{}{}, err
	}
	if res := scheduling.CheckAddShiftConstraints(op, a.working); !res.OK() {
		return struct{}{}, &ConstraintViolationError{Blockers: res.Blockers}
	}

	tpl := &model.ShiftTemplate{
		StoreID:     a.preview.StoreID,
		RoleID:      strPtr(role.RoleID),
		Days:        model.IntArray{op.Day.Index()},
		StartMinute: op.StartMinute,
		EndMinute:   op.EndMinute,
		IsActive:    true,
	}
	tpl.CreatedBy = strPtr(a.actorID)
	if err := a.repo.Template.Create(a.ctx, tpl); err != nil {
		return struct{}{}, err
	}
	a.record(op.Type(), op.Source, "", tpl.TemplateID, nil, nil)
	return struct{}{}, nil
}

func (a *operationApplier) EditShift(op scheduling.EditShift) (struct{}, error) {
	return struct{}{}, fmt.Errorf("%w: %s", ErrOperationNotSupported, op.Type())
}

func (a *operationApplier) EditEmployee(op scheduling.EditEmployee) (struct{}, error) {
	return struct{}{}, fmt.Errorf("%w: %s", ErrOperationNotSupported, op.Type())
}

func (a *operationApplier) DeleteShift(op scheduling.DeleteShift) (struct{}, error) {
	return struct{}{}, fmt.Errorf("%w: %s", ErrOperationNotSupported, op.Type())
}

// assignment 读取排班段行，占位 ID 先映射为本次新建的真实 ID
func (a *operationApplier) assignment(id string) (*model.ShiftAssignment, error) {
	if actual, ok := a.created[id]; ok {
		id = actual
	}
	row, err := a.repo.Assignment.GetByID(a.ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
		}
		return nil, err
	}
	return row, nil
}

func (a *operationApplier) record(kind scheduling.OperationType, source scheduling.Source, assignmentID, templateID string, from, to *string) {
	if source == "" {
		source = a.preview.Source
	}
	a.logs = append(a.logs, model.ScheduleChangeLog{
		StoreID:            a.preview.StoreID,
		WeekID:             a.preview.WeekID,
		PreviewID:          a.preview.ID,
		AssignmentID:       strPtr(assignmentID),
		TemplateID:         strPtr(templateID),
		OriginalEmployeeID: from,
		NewEmployeeID:      to,
		ChangeType:         string(kind),
		Source:             string(source),
		OperatorID:         a.actorID,
		Revision:           a.revision,
	})
}
