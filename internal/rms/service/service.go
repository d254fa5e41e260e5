package service

import (
	"github.com/bitfantasy/nimo-rms/internal/config"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth          *AuthService
	User          *UserService
	WorkOrder     *WorkOrderService
	PublicConfirm *PublicConfirmService
	Attachment    *AttachmentService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio init failed, attachments disabled", zap.Error(err))
			minioClient = nil
		}
	}

	return &Services{
		Auth:      NewAuthService(repos.User, rdb, cfg),
		User:      NewUserService(repos.User, logger),
		WorkOrder: NewWorkOrderService(repos.WorkOrder, repos.User, db, logger),
		PublicConfirm: NewPublicConfirmService(
			repos.ConfirmToken, repos.WorkOrder, db, rdb, logger,
			cfg.Confirm.BaseURL, cfg.Confirm.TokenTTL),
		Attachment: NewAttachmentService(repos.Attachment, repos.WorkOrder, minioClient, cfg.MinIO.Bucket),
	}
}
