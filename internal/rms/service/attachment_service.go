package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// AttachmentService 附件服务：照片等文件存于MinIO，元数据落库。
// 上传后的附件可在执行动作时挂载到工单。
type AttachmentService struct {
	attachmentRepo *repository.AttachmentRepository
	workOrderRepo  *repository.WorkOrderRepository
	minioClient    *minio.Client
	bucketName     string
}

func NewAttachmentService(
	attachmentRepo *repository.AttachmentRepository,
	workOrderRepo *repository.WorkOrderRepository,
	minioClient *minio.Client,
	bucketName string,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		workOrderRepo:  workOrderRepo,
		minioClient:    minioClient,
		bucketName:     bucketName,
	}
}

// Upload 上传附件。STAFF与OWNER可上传，客户不可。
func (s *AttachmentService) Upload(
	ctx context.Context,
	op Operator,
	attachmentType string,
	reader io.Reader,
	fileName string,
	fileSize int64,
	contentType string,
) (*entity.Attachment, error) {
	if op.Role == entity.RoleCustomer {
		return nil, fmt.Errorf("%w: customers cannot upload attachments", ErrForbidden)
	}
	switch attachmentType {
	case entity.AttachmentPackagePhoto, entity.AttachmentDevicePhoto,
		entity.AttachmentLabelPhoto, entity.AttachmentDeliveryProof, entity.AttachmentOther:
	default:
		return nil, fmt.Errorf("%w: invalid attachment type %s", ErrValidation, attachmentType)
	}

	objectKey := fmt.Sprintf("attachments/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	if s.minioClient != nil {
		_, err := s.minioClient.PutObject(ctx, s.bucketName, objectKey, reader, fileSize, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, fmt.Errorf("upload file: %w", err)
		}
	}

	attachment := &entity.Attachment{
		ID:              newID(),
		Type:            attachmentType,
		FileName:        fileName,
		ObjectKey:       objectKey,
		ContentType:     contentType,
		Size:            fileSize,
		CreatedByUserID: op.UserID,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("创建附件记录失败: %w", err)
	}
	return attachment, nil
}

// ListByWorkOrder 获取工单附件，客户只能看本人工单
func (s *AttachmentService) ListByWorkOrder(ctx context.Context, workOrderID string, op Operator) ([]entity.Attachment, error) {
	wo, err := s.workOrderRepo.FindByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: work order %s", ErrNotFound, workOrderID)
		}
		return nil, err
	}
	if !canView(wo, op) {
		return nil, fmt.Errorf("%w: customer can only view their own work orders", ErrForbidden)
	}
	return s.attachmentRepo.ListByWorkOrder(ctx, workOrderID)
}

// Download 下载附件内容
func (s *AttachmentService) Download(ctx context.Context, id string, op Operator) (io.ReadCloser, *entity.Attachment, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: attachment %s", ErrNotFound, id)
		}
		return nil, nil, err
	}
	if attachment.WorkOrderID != nil {
		wo, err := s.workOrderRepo.FindByID(ctx, *attachment.WorkOrderID)
		if err != nil {
			return nil, nil, err
		}
		if !canView(wo, op) {
			return nil, nil, fmt.Errorf("%w: customer can only view their own work orders", ErrForbidden)
		}
	}

	if s.minioClient == nil {
		return nil, attachment, fmt.Errorf("storage not configured")
	}
	object, err := s.minioClient.GetObject(ctx, s.bucketName, attachment.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}
	return object, attachment, nil
}
