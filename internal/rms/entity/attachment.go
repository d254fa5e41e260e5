package entity

import "time"

// Attachment 附件（照片等，存储于MinIO）
type Attachment struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID     *string   `json:"work_order_id" gorm:"size:32;index"`
	Type            string    `json:"type" gorm:"size:32;not null;default:OTHER"`
	FileName        string    `json:"file_name" gorm:"size:256;not null"`
	ObjectKey       string    `json:"object_key" gorm:"size:512;not null"`
	ContentType     string    `json:"content_type" gorm:"size:128"`
	Size            int64     `json:"size"`
	CreatedByUserID string    `json:"created_by_user_id" gorm:"size:32;not null"`
	CreatedAt       time.Time `json:"created_at"`

	CreatedBy *User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// 附件类型
const (
	AttachmentPackagePhoto  = "PACKAGE_PHOTO"
	AttachmentDevicePhoto   = "DEVICE_PHOTO"
	AttachmentLabelPhoto    = "LABEL_PHOTO"
	AttachmentDeliveryProof = "DELIVERY_PROOF"
	AttachmentOther         = "OTHER"
)
