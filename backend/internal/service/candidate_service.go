package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tachora/backend/internal/scheduling"
)

// CandidateQuery 候选班次查询参数；Role 可为岗位 ID 或名称
type CandidateQuery struct {
	StoreID    string
	WeekID     string
	EmployeeID string
	Day        scheduling.Weekday
	Role       string
}

// CandidateResult 候选列表及可直接展示的编号文案
type CandidateResult struct {
	Version      string                      `json:"version"`
	EmployeeID   string                      `json:"employee_id"`
	EmployeeName string                      `json:"employee_name"`
	Day          scheduling.Weekday          `json:"day"`
	Candidates   []scheduling.ShiftCandidate `json:"candidates"`
	Message      string                      `json:"message"`
}

// CandidateService 为某员工列出某天仍需人员的班次
type CandidateService interface {
	Generate(ctx context.Context, q CandidateQuery) (*CandidateResult, error)
}

type candidateService struct {
	loader SnapshotLoader
	logger *zap.Logger
}

// NewCandidateService 创建 CandidateService 实例
func NewCandidateService(loader SnapshotLoader, logger *zap.Logger) CandidateService {
	return &candidateService{loader: loader, logger: logger}
}

func (s *candidateService) Generate(ctx context.Context, q CandidateQuery) (*CandidateResult, error) {
	if !q.Day.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDayOfWeek, q.Day)
	}
	snap, err := s.loader.Load(ctx, q.StoreID, q.WeekID)
	if err != nil {
		return nil, err
	}
	emp, ok := snap.Employee(q.EmployeeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, q.EmployeeID)
	}

	cands := scheduling.GenerateCandidates(snap.OpenShifts(), emp.Availability, q.Day, q.Role)
	return &CandidateResult{
		Version:      snap.Version,
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		Day:          q.Day,
		Candidates:   cands,
		Message:      scheduling.FormatCandidatesMessage(emp.Name, q.Day, cands),
	}, nil
}
