package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB JSONB类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// JSONBArray JSONB数组类型
type JSONBArray []interface{}

func (j JSONBArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONBArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONBArray: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// WorkOrderEvent 工单流转事件（只追加，构成工单时间线）
type WorkOrderEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string    `json:"work_order_id" gorm:"size:32;not null;index"`
	FromStatus  string    `json:"from_status" gorm:"size:32;not null"`
	ToStatus    string    `json:"to_status" gorm:"size:32;not null"`
	Action      string    `json:"action" gorm:"size:32;not null"`
	ActorUserID *string   `json:"actor_user_id" gorm:"size:32"`
	ActorRole   string    `json:"actor_role" gorm:"size:16;not null"`
	Metadata    JSONB     `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联
	Actor *User `json:"actor,omitempty" gorm:"foreignKey:ActorUserID"`
}

func (WorkOrderEvent) TableName() string {
	return "work_order_events"
}
