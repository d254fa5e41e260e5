package entity

import "time"

// Device 送修设备
type Device struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	Brand          string    `json:"brand" gorm:"size:64;not null"`
	Model          string    `json:"model" gorm:"size:128;not null"`
	IMEI           string    `json:"imei" gorm:"size:32"`
	SerialNo       string    `json:"serial_no" gorm:"size:64"`
	ConditionNotes string    `json:"condition_notes" gorm:"type:text"`
	LabelCode      string    `json:"label_code" gorm:"size:32;not null;uniqueIndex"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}
