package repository

import (
	"context"

	"gorm.io/gorm"

	"tachora/backend/internal/model"
)

// EmployeeRepository 员工数据访问接口
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*model.Employee, error)
	// ListEligibleForStore 本店员工及允许跨店的员工（含可用时间与岗位）
	ListEligibleForStore(ctx context.Context, storeID string) ([]model.Employee, error)
}

type employeeRepo struct {
	db *gorm.DB
}

func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).
		Preload("Availability").
		Preload("Roles").
		Where("employee_id = ?", id).
		First(&emp).Error
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepo) ListEligibleForStore(ctx context.Context, storeID string) ([]model.Employee, error) {
	var emps []model.Employee
	err := r.db.WithContext(ctx).
		Preload("Availability").
		Preload("Roles").
		Where("home_store_id = ? OR can_work_across_stores = ?", storeID, true).
		Order("employee_id ASC").
		Find(&emps).Error
	return emps, err
}
