package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"tachora/backend/internal/model"
	"tachora/backend/internal/repository"
	pkgerrors "tachora/backend/pkg/errors"
)

// memDB 所有 mock repo 共享的内存数据；读取一律返回副本
type memDB struct {
	stores      map[string]model.Store
	roles       map[string]model.Role
	employees   map[string]model.Employee
	templates   map[string]model.ShiftTemplate
	assignments map[string]model.ShiftAssignment
	weeks       map[string]model.ScheduleWeek
	changeLogs  []model.ScheduleChangeLog
	seq         int
}

func newMemDB() *memDB {
	return &memDB{
		stores:      make(map[string]model.Store),
		roles:       make(map[string]model.Role),
		employees:   make(map[string]model.Employee),
		templates:   make(map[string]model.ShiftTemplate),
		assignments: make(map[string]model.ShiftAssignment),
		weeks:       make(map[string]model.ScheduleWeek),
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) rolePtr(id *string) *model.Role {
	if id == nil {
		return nil
	}
	if r, ok := db.roles[*id]; ok {
		return &r
	}
	return nil
}

func (db *memDB) toRepository() *repository.Repository {
	return &repository.Repository{
		Store:        &mockStoreRepo{db: db},
		Role:         &mockRoleRepo{db: db},
		Employee:     &mockEmployeeRepo{db: db},
		Template:     &mockTemplateRepo{db: db},
		Assignment:   &mockAssignmentRepo{db: db},
		ScheduleWeek: &mockScheduleWeekRepo{db: db},
		ChangeLog:    &mockChangeLogRepo{db: db},
	}
}

// ── Mock StoreRepository ──

type mockStoreRepo struct{ db *memDB }

func (m *mockStoreRepo) GetByID(_ context.Context, id string) (*model.Store, error) {
	if s, ok := m.db.stores[id]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock RoleRepository ──

type mockRoleRepo struct{ db *memDB }

func (m *mockRoleRepo) GetByID(_ context.Context, id string) (*model.Role, error) {
	if r, ok := m.db.roles[id]; ok {
		return &r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) GetByName(_ context.Context, storeID, name string) (*model.Role, error) {
	for _, r := range m.db.roles {
		if r.StoreID == storeID && strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoleRepo) ListByStore(_ context.Context, storeID string) ([]model.Role, error) {
	var out []model.Role
	for _, r := range m.db.roles {
		if r.StoreID == storeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct{ db *memDB }

func (m *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	if e, ok := m.db.employees[id]; ok {
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) ListEligibleForStore(_ context.Context, storeID string) ([]model.Employee, error) {
	var out []model.Employee
	for _, e := range m.db.employees {
		if e.HomeStoreID == storeID || e.CanWorkAcrossStores {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// ── Mock ShiftTemplateRepository ──

type mockTemplateRepo struct{ db *memDB }

func (m *mockTemplateRepo) Create(_ context.Context, tpl *model.ShiftTemplate) error {
	if tpl.TemplateID == "" {
		tpl.TemplateID = m.db.nextID("tpl")
	}
	m.db.templates[tpl.TemplateID] = *tpl
	return nil
}

func (m *mockTemplateRepo) ListActiveByStore(_ context.Context, storeID string) ([]model.ShiftTemplate, error) {
	var out []model.ShiftTemplate
	for _, t := range m.db.templates {
		if t.StoreID == storeID && t.IsActive {
			t.Role = m.db.rolePtr(t.RoleID)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out, nil
}

// ── Mock ShiftAssignmentRepository ──

type mockAssignmentRepo struct{ db *memDB }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.ShiftAssignment) error {
	if a.AssignmentID == "" {
		a.AssignmentID = m.db.nextID("as")
	}
	a.Version = 1
	m.db.assignments[a.AssignmentID] = *a
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.ShiftAssignment, error) {
	if a, ok := m.db.assignments[id]; ok {
		a.Role = m.db.rolePtr(a.RoleID)
		return &a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByWeek(_ context.Context, storeID, weekID string) ([]model.ShiftAssignment, error) {
	var out []model.ShiftAssignment
	for _, a := range m.db.assignments {
		if a.StoreID == storeID && a.WeekID == weekID {
			a.Role = m.db.rolePtr(a.RoleID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	return out, nil
}

func (m *mockAssignmentRepo) ListByWeekForEmployees(_ context.Context, weekID string, employeeIDs []string) ([]model.ShiftAssignment, error) {
	wanted := make(map[string]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		wanted[id] = true
	}
	var out []model.ShiftAssignment
	for _, a := range m.db.assignments {
		if a.WeekID == weekID && a.EmployeeID != nil && wanted[*a.EmployeeID] {
			a.Role = m.db.rolePtr(a.RoleID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	return out, nil
}

func (m *mockAssignmentRepo) UpdateEmployee(_ context.Context, a *model.ShiftAssignment) error {
	cur, ok := m.db.assignments[a.AssignmentID]
	if !ok || cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.EmployeeID = a.EmployeeID
	cur.UpdatedBy = a.UpdatedBy
	cur.Version++
	a.Version = cur.Version
	m.db.assignments[a.AssignmentID] = cur
	return nil
}

// ── Mock ScheduleWeekRepository ──

type mockScheduleWeekRepo struct{ db *memDB }

func weekKey(storeID, weekID string) string { return storeID + "|" + weekID }

func (m *mockScheduleWeekRepo) Get(_ context.Context, storeID, weekID string) (*model.ScheduleWeek, error) {
	if w, ok := m.db.weeks[weekKey(storeID, weekID)]; ok {
		return &w, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleWeekRepo) Create(_ context.Context, week *model.ScheduleWeek) error {
	key := weekKey(week.StoreID, week.WeekID)
	if _, ok := m.db.weeks[key]; ok {
		return fmt.Errorf("duplicate schedule week %s", key)
	}
	if week.ScheduleWeekID == "" {
		week.ScheduleWeekID = m.db.nextID("week")
	}
	week.Version = 1
	m.db.weeks[key] = *week
	return nil
}

func (m *mockScheduleWeekRepo) BumpRevision(_ context.Context, week *model.ScheduleWeek) error {
	key := weekKey(week.StoreID, week.WeekID)
	cur, ok := m.db.weeks[key]
	if !ok || cur.Version != week.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.Revision++
	cur.Version++
	week.Revision, week.Version = cur.Revision, cur.Version
	m.db.weeks[key] = cur
	return nil
}

// ── Mock ScheduleChangeLogRepository ──

type mockChangeLogRepo struct{ db *memDB }

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.ScheduleChangeLog) error {
	if log.ChangeLogID == "" {
		log.ChangeLogID = m.db.nextID("log")
	}
	log.CreatedAt = time.Now()
	m.db.changeLogs = append(m.db.changeLogs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByWeek(_ context.Context, storeID, weekID string, offset, limit int) ([]model.ScheduleChangeLog, int64, error) {
	var all []model.ScheduleChangeLog
	// 新的在前
	for i := len(m.db.changeLogs) - 1; i >= 0; i-- {
		l := m.db.changeLogs[i]
		if l.StoreID == storeID && l.WeekID == weekID {
			all = append(all, l)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.ScheduleChangeLog{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── 测试数据 ──

const (
	testStoreID = "store-1"
	testWeekID  = "2026-W42"
	testRoleID  = "role-cash"
)

func fullWeekAvailability(empID string, start, end int) []model.EmployeeAvailability {
	out := make([]model.EmployeeAvailability, 0, 7)
	for d := 0; d < 7; d++ {
		out = append(out, model.EmployeeAvailability{
			AvailabilityID: fmt.Sprintf("%s-av-%d", empID, d),
			EmployeeID:     empID,
			Day:            d,
			StartMinute:    start,
			EndMinute:      end,
		})
	}
	return out
}

// seedBasicData 门店 store-1：收银岗位、周一 09:00-15:00 模板、
// Alice 全周 08:00-20:00 可排、Bob 仅周一 09:00-19:00 可排
func seedBasicData(db *memDB) {
	db.stores[testStoreID] = model.Store{StoreID: testStoreID, Name: "Downtown", Timezone: "Europe/Paris"}
	cashier := model.Role{RoleID: testRoleID, StoreID: testStoreID, Name: "Cashier"}
	db.roles[testRoleID] = cashier

	roleID := testRoleID
	db.templates["tpl-mon"] = model.ShiftTemplate{
		TemplateID:  "tpl-mon",
		StoreID:     testStoreID,
		RoleID:      &roleID,
		Days:        model.IntArray{0},
		StartMinute: 9 * 60,
		EndMinute:   15 * 60,
		IsActive:    true,
	}

	db.employees["emp-alice"] = model.Employee{
		EmployeeID:          "emp-alice",
		Name:                "Alice",
		HomeStoreID:         testStoreID,
		ContractType:        "FULL_TIME",
		WeeklyMinutesTarget: 2400,
		Availability:        fullWeekAvailability("emp-alice", 8*60, 20*60),
		Roles:               []model.Role{cashier},
	}
	db.employees["emp-bob"] = model.Employee{
		EmployeeID:          "emp-bob",
		Name:                "Bob",
		HomeStoreID:         testStoreID,
		ContractType:        "FULL_TIME",
		WeeklyMinutesTarget: 2400,
		Availability: []model.EmployeeAvailability{
			{AvailabilityID: "bob-mon", EmployeeID: "emp-bob", Day: 0, StartMinute: 9 * 60, EndMinute: 19 * 60},
		},
		Roles: []model.Role{cashier},
	}
}

// seedOpenAssignment 周四 09:00-13:00 的空缺排班段
func seedOpenAssignment(db *memDB, id string) {
	roleID := testRoleID
	db.assignments[id] = model.ShiftAssignment{
		AssignmentID: id,
		StoreID:      testStoreID,
		WeekID:       testWeekID,
		RoleID:       &roleID,
		Day:          3,
		StartMinute:  9 * 60,
		EndMinute:    13 * 60,
		VersionedModel: model.VersionedModel{
			Version: 1,
		},
	}
}

// seedOtherStoreAssignment 在 store-2 为员工排一个本周已提交的排班段
func seedOtherStoreAssignment(db *memDB, id, employeeID string, day, start, end int) {
	db.stores["store-2"] = model.Store{StoreID: "store-2", Name: "Uptown", Timezone: "Europe/Paris"}
	db.assignments[id] = model.ShiftAssignment{
		AssignmentID: id,
		StoreID:      "store-2",
		WeekID:       testWeekID,
		Day:          day,
		StartMinute:  start,
		EndMinute:    end,
		EmployeeID:   &employeeID,
		VersionedModel: model.VersionedModel{
			Version: 1,
		},
	}
}
