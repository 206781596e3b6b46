package model

// Store 门店表 对应 stores
type Store struct {
	StoreID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"store_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'"        json:"timezone"`
	SoftDeleteModel
}

func (Store) TableName() string { return "stores" }

// Role 门店岗位（工种）表 对应 roles，名称在门店内不区分大小写唯一
type Role struct {
	RoleID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	StoreID string `gorm:"type:uuid;not null;index"                       json:"store_id"`
	Name    string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

func (Role) TableName() string { return "roles" }
