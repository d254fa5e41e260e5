package entity

import "time"

// WorkOrder 维修工单聚合根
type WorkOrder struct {
	ID               string  `json:"id" gorm:"primaryKey;size:32"`
	OrderNo          *string `json:"order_no" gorm:"size:64;uniqueIndex"`
	Status           string  `json:"status" gorm:"size:32;not null;default:SUBMITTED;index"`
	CustomerUserID   string  `json:"customer_user_id" gorm:"size:32;not null;index"`
	CustomerName     string  `json:"customer_name" gorm:"size:128"`
	CustomerPhone    string  `json:"customer_phone" gorm:"size:32"`
	CustomerAddress  string  `json:"customer_address" gorm:"size:512"`
	AssignedToUserID *string `json:"assigned_to_user_id" gorm:"size:32;index"`
	DeviceID         *string `json:"device_id" gorm:"size:32"`

	Notes              string `json:"notes" gorm:"type:text"`
	InboundTrackingNo  string `json:"inbound_tracking_no" gorm:"size:64"`
	OutboundTrackingNo string `json:"outbound_tracking_no" gorm:"size:64"`

	// 分类字段（可选）
	RepairType     string `json:"repair_type" gorm:"size:32"`
	Urgency        string `json:"urgency" gorm:"size:16"`
	WarrantyStatus string `json:"warranty_status" gorm:"size:16"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Customer      *User                  `json:"customer,omitempty" gorm:"foreignKey:CustomerUserID"`
	AssignedTo    *User                  `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToUserID"`
	Device        *Device                `json:"device,omitempty" gorm:"foreignKey:DeviceID"`
	Inspections   []Inspection           `json:"inspections,omitempty" gorm:"foreignKey:WorkOrderID"`
	Repairs       []RepairRecord         `json:"repairs,omitempty" gorm:"foreignKey:WorkOrderID"`
	InventoryTxns []InventoryTransaction `json:"inventory_txns,omitempty" gorm:"foreignKey:WorkOrderID"`
	Attachments   []Attachment           `json:"attachments,omitempty" gorm:"foreignKey:WorkOrderID"`
	Events        []WorkOrderEvent       `json:"events,omitempty" gorm:"foreignKey:WorkOrderID"`
	ConfirmToken  *PublicConfirmToken    `json:"confirm_token,omitempty" gorm:"foreignKey:WorkOrderID"`

	// 非数据库字段：当前查看者可执行的动作
	AvailableActions []string `json:"available_actions,omitempty" gorm:"-"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// 工单状态
const (
	StatusDraft                  = "DRAFT"
	StatusSubmitted              = "SUBMITTED"
	StatusOwnerVerified          = "OWNER_VERIFIED"
	StatusExternalDamageReported = "EXTERNAL_DAMAGE_REPORTED"
	StatusDeviceInfoRecorded     = "DEVICE_INFO_RECORDED"
	StatusDiagnosed              = "DIAGNOSED"
	StatusRepairing              = "REPAIRING"
	StatusStoredIn               = "STORED_IN"
	StatusReadyToShip            = "READY_TO_SHIP"
	StatusShipped                = "SHIPPED"
	StatusDelivered              = "DELIVERED"
	StatusCompleted              = "COMPLETED"
	StatusReopened               = "REOPENED"
	StatusClosedAbnormal         = "CLOSED_ABNORMAL"
)

// 工单动作
const (
	ActionSubmit               = "SUBMIT"
	ActionVerify               = "VERIFY"
	ActionReportExternalDamage = "REPORT_EXTERNAL_DAMAGE"
	ActionRecordDevice         = "RECORD_DEVICE"
	ActionDiagnose             = "DIAGNOSE"
	ActionRepair               = "REPAIR"
	ActionStoreIn              = "STORE_IN"
	ActionReadyToShip          = "READY_TO_SHIP"
	ActionShip                 = "SHIP"
	ActionCustomerConfirm      = "CUSTOMER_CONFIRM"
	ActionReopen               = "REOPEN"
	ActionCloseAbnormal        = "CLOSE_ABNORMAL"
	ActionAssign               = "ASSIGN"
)

// 维修类型
const (
	RepairTypeScreen    = "SCREEN"
	RepairTypeBattery   = "BATTERY"
	RepairTypeMainboard = "MAINBOARD"
	RepairTypeWater     = "WATER_DAMAGE"
	RepairTypeOther     = "OTHER"
)

// 紧急程度
const (
	UrgencyNormal = "NORMAL"
	UrgencyHigh   = "HIGH"
	UrgencyRush   = "RUSH"
)

// 保修状态
const (
	WarrantyInWarranty  = "IN_WARRANTY"
	WarrantyOutWarranty = "OUT_OF_WARRANTY"
	WarrantyUnknown     = "UNKNOWN"
)
