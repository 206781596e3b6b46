package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Store        StoreRepository
	Role         RoleRepository
	Employee     EmployeeRepository
	Template     ShiftTemplateRepository
	Assignment   ShiftAssignmentRepository
	ScheduleWeek ScheduleWeekRepository
	ChangeLog    ScheduleChangeLogRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Store:        NewStoreRepo(db),
		Role:         NewRoleRepo(db),
		Employee:     NewEmployeeRepo(db),
		Template:     NewShiftTemplateRepo(db),
		Assignment:   NewShiftAssignmentRepo(db),
		ScheduleWeek: NewScheduleWeekRepo(db),
		ChangeLog:    NewScheduleChangeLogRepo(db),
		db:           db,
	}
}

// BeginTx 开启事务。
// 聚合未绑定数据库（单元测试以 mock 组装）时返回 nil，调用方需判空。
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
