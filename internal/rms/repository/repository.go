package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Repositories 仓库集合
type Repositories struct {
	User         *UserRepository
	WorkOrder    *WorkOrderRepository
	ConfirmToken *ConfirmTokenRepository
	Attachment   *AttachmentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		WorkOrder:    NewWorkOrderRepository(db),
		ConfirmToken: NewConfirmTokenRepository(db),
		Attachment:   NewAttachmentRepository(db),
	}
}
