package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"gorm.io/gorm"
)

// AttachmentRepository 附件仓储
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository 创建附件仓储
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create 创建附件记录
func (r *AttachmentRepository) Create(ctx context.Context, attachment *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// FindByID 根据ID查找附件
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var attachment entity.Attachment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &attachment, nil
}

// ListByWorkOrder 获取工单附件列表
func (r *AttachmentRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	err := r.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Preload("CreatedBy").
		Order("created_at DESC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

// Delete 删除附件记录
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Attachment{}, "id = ?", id).Error
}
