package model

// Employee 员工表 对应 employees
type Employee struct {
	EmployeeID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"employee_id"`
	Name                string `gorm:"type:varchar(100);not null"                     json:"name"`
	HomeStoreID         string `gorm:"type:uuid;not null;index"                       json:"home_store_id"`
	CanWorkAcrossStores bool   `gorm:"not null;default:false"                         json:"can_work_across_stores"`
	ContractType        string `gorm:"type:varchar(20);not null;default:'FULL_TIME'"  json:"contract_type"` // FULL_TIME | PART_TIME | STUDENT
	WeeklyMinutesTarget int    `gorm:"not null;default:2400"                          json:"weekly_minutes_target"`
	SoftDeleteModel

	// 关联
	Availability []EmployeeAvailability `gorm:"foreignKey:EmployeeID;references:EmployeeID"                       json:"availability,omitempty"`
	Roles        []Role                 `gorm:"many2many:employee_roles;joinForeignKey:EmployeeID;joinReferences:RoleID" json:"roles,omitempty"`
}

func (Employee) TableName() string { return "employees" }

// EmployeeAvailability 员工每周可用时间窗 对应 employee_availabilities
type EmployeeAvailability struct {
	AvailabilityID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"availability_id"`
	EmployeeID     string `gorm:"type:uuid;not null;index"                       json:"employee_id"`
	Day            int    `gorm:"type:smallint;not null"                         json:"day"` // 0=MON..6=SUN
	IsOff          bool   `gorm:"not null;default:false"                         json:"is_off"`
	StartMinute    int    `gorm:"not null;default:0"                             json:"start_minute"`
	EndMinute      int    `gorm:"not null;default:0"                             json:"end_minute"`
}

func (EmployeeAvailability) TableName() string { return "employee_availabilities" }
