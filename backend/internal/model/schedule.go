package model

import "time"

// ShiftTemplate 循环班次模板 对应 shift_templates
//
// Days 存储启用的星期索引（0=MON..6=SUN），每个启用日展开为一个班次。
type ShiftTemplate struct {
	TemplateID  string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	StoreID     string   `gorm:"type:uuid;not null;index"                       json:"store_id"`
	RoleID      *string  `gorm:"type:uuid"                                      json:"role_id,omitempty"`
	Days        IntArray `gorm:"type:int[];not null"                            json:"days"`
	StartMinute int      `gorm:"not null"                                       json:"start_minute"`
	EndMinute   int      `gorm:"not null"                                       json:"end_minute"`
	IsActive    bool     `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	Role *Role `gorm:"foreignKey:RoleID;references:RoleID" json:"role,omitempty"`
}

func (ShiftTemplate) TableName() string { return "shift_templates" }

// ShiftAssignment 某周的排班段 对应 shift_assignments；EmployeeID 为空表示空缺
type ShiftAssignment struct {
	AssignmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	StoreID      string  `gorm:"type:uuid;not null"                             json:"store_id"`
	WeekID       string  `gorm:"type:varchar(10);not null"                      json:"week_id"`
	TemplateID   *string `gorm:"type:uuid"                                      json:"template_id,omitempty"`
	RoleID       *string `gorm:"type:uuid"                                      json:"role_id,omitempty"`
	Day          int     `gorm:"type:smallint;not null"                         json:"day"`
	StartMinute  int     `gorm:"not null"                                       json:"start_minute"`
	EndMinute    int     `gorm:"not null"                                       json:"end_minute"`
	EmployeeID   *string `gorm:"type:uuid"                                      json:"employee_id,omitempty"`
	VersionedModel

	// 关联
	Role *Role `gorm:"foreignKey:RoleID;references:RoleID" json:"role,omitempty"`
}

func (ShiftAssignment) TableName() string { return "shift_assignments" }

// ScheduleWeek 门店某周的排班版本 对应 schedule_weeks
//
// Revision 每次应用预览自增一次，参与快照版本号计算。
type ScheduleWeek struct {
	ScheduleWeekID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_week_id"`
	StoreID        string `gorm:"type:uuid;not null"                             json:"store_id"`
	WeekID         string `gorm:"type:varchar(10);not null"                      json:"week_id"`
	Revision       int    `gorm:"not null;default:0"                             json:"revision"`
	VersionedModel
}

func (ScheduleWeek) TableName() string { return "schedule_weeks" }

// ScheduleChangeLog 排班变更记录 对应 schedule_change_logs（纯审计日志）
type ScheduleChangeLog struct {
	ChangeLogID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	StoreID            string    `gorm:"type:uuid;not null"                             json:"store_id"`
	WeekID             string    `gorm:"type:varchar(10);not null"                      json:"week_id"`
	PreviewID          string    `gorm:"type:varchar(64);not null"                      json:"preview_id"`
	AssignmentID       *string   `gorm:"type:uuid"                                      json:"assignment_id,omitempty"`
	TemplateID         *string   `gorm:"type:uuid"                                      json:"template_id,omitempty"`
	OriginalEmployeeID *string   `gorm:"type:uuid"                                      json:"original_employee_id,omitempty"`
	NewEmployeeID      *string   `gorm:"type:uuid"                                      json:"new_employee_id,omitempty"`
	ChangeType         string    `gorm:"type:varchar(20);not null"                      json:"change_type"` // assign_shift | unassign_shift | swap_shifts | add_shift
	Source             string    `gorm:"type:varchar(10);not null"                      json:"source"`      // ai | user
	OperatorID         string    `gorm:"type:varchar(64);not null"                      json:"operator_id"`
	Revision           int       `gorm:"not null"                                       json:"revision"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (ScheduleChangeLog) TableName() string { return "schedule_change_logs" }
