package entity

import "time"

// Inspection 检测记录
type Inspection struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID     string    `json:"work_order_id" gorm:"size:32;not null;index"`
	Result          string    `json:"result" gorm:"size:16;not null"` // NORMAL/ABNORMAL
	Checklist       JSONB     `json:"checklist" gorm:"type:jsonb"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedByUserID string    `json:"created_by_user_id" gorm:"size:32;not null"`
	CreatedAt       time.Time `json:"created_at"`

	CreatedBy *User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

func (Inspection) TableName() string {
	return "inspections"
}

// 检测结论
const (
	InspectionResultNormal   = "NORMAL"
	InspectionResultAbnormal = "ABNORMAL"
)

// RepairRecord 维修记录
type RepairRecord struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID     string     `json:"work_order_id" gorm:"size:32;not null;index"`
	Actions         JSONBArray `json:"actions" gorm:"type:jsonb"`
	Cost            *float64   `json:"cost" gorm:"type:decimal(12,2)"`
	Result          string     `json:"result" gorm:"size:16;not null"` // FIXED/UNFIXED/NA
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedByUserID string     `json:"created_by_user_id" gorm:"size:32;not null"`
	CreatedAt       time.Time  `json:"created_at"`

	CreatedBy *User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

func (RepairRecord) TableName() string {
	return "repair_records"
}

// 维修结论
const (
	RepairResultFixed   = "FIXED"
	RepairResultUnfixed = "UNFIXED"
	RepairResultNA      = "NA"
)

// InventoryTransaction 出入库记录
type InventoryTransaction struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID     string    `json:"work_order_id" gorm:"size:32;not null;index"`
	Type            string    `json:"type" gorm:"size:8;not null"` // IN/OUT
	Location        string    `json:"location" gorm:"size:64"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedByUserID string    `json:"created_by_user_id" gorm:"size:32;not null"`
	OccurredAt      time.Time `json:"occurred_at"`
	CreatedAt       time.Time `json:"created_at"`

	CreatedBy *User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// 出入库类型
const (
	InventoryTxnIn  = "IN"
	InventoryTxnOut = "OUT"
)
