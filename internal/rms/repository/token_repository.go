package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"gorm.io/gorm"
)

// ConfirmTokenRepository 匿名确认令牌仓储
type ConfirmTokenRepository struct {
	db *gorm.DB
}

// NewConfirmTokenRepository 创建令牌仓储
func NewConfirmTokenRepository(db *gorm.DB) *ConfirmTokenRepository {
	return &ConfirmTokenRepository{db: db}
}

// Create 创建令牌
func (r *ConfirmTokenRepository) Create(ctx context.Context, token *entity.PublicConfirmToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByToken 根据令牌值查找
func (r *ConfirmTokenRepository) FindByToken(ctx context.Context, token string) (*entity.PublicConfirmToken, error) {
	var t entity.PublicConfirmToken
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteByWorkOrder 删除某工单下的全部令牌（重新签发前调用）
func (r *ConfirmTokenRepository) DeleteByWorkOrder(ctx context.Context, workOrderID string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.PublicConfirmToken{}, "work_order_id = ?", workOrderID).Error
}

// MarkUsed 在事务内标记令牌已使用
func (r *ConfirmTokenRepository) MarkUsed(tx *gorm.DB, id string, usedAt time.Time) error {
	return tx.
		Model(&entity.PublicConfirmToken{}).
		Where("id = ?", id).
		Update("used_at", usedAt).Error
}

// DeleteExpired 清理过期且未使用的令牌，返回删除数量
func (r *ConfirmTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Delete(&entity.PublicConfirmToken{}, "expires_at < ? AND used_at IS NULL", now)
	return result.RowsAffected, result.Error
}
