package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"tachora/backend/internal/model"
)

// StoreRepository 门店数据访问接口
type StoreRepository interface {
	GetByID(ctx context.Context, id string) (*model.Store, error)
}

// RoleRepository 岗位数据访问接口
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*model.Role, error)
	// GetByName 门店内按名称查找，不区分大小写
	GetByName(ctx context.Context, storeID, name string) (*model.Role, error)
	ListByStore(ctx context.Context, storeID string) ([]model.Role, error)
}

// ── Store Repository 实现 ──

type storeRepo struct {
	db *gorm.DB
}

func NewStoreRepo(db *gorm.DB) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) GetByID(ctx context.Context, id string) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).
		Where("store_id = ?", id).
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// ── Role Repository 实现 ──

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) GetByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Where("role_id = ?", id).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) GetByName(ctx context.Context, storeID, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND LOWER(name) = ?", storeID, strings.ToLower(strings.TrimSpace(name))).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) ListByStore(ctx context.Context, storeID string) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("name ASC").
		Find(&roles).Error
	return roles, err
}
