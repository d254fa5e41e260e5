package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/lifecycle"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 公开查询缓存
const (
	confirmTokenCachePrefix = "rms:confirm_token:"
	confirmTokenCacheTTL    = time.Minute
)

// PublicConfirmService 匿名确认服务：签发一次性确认链接，
// 客户无需登录即可确认收货或提出异议。
type PublicConfirmService struct {
	tokenRepo     *repository.ConfirmTokenRepository
	workOrderRepo *repository.WorkOrderRepository
	db            *gorm.DB
	rdb           *redis.Client
	logger        *zap.Logger
	baseURL       string
	tokenTTL      time.Duration
}

func NewPublicConfirmService(
	tokenRepo *repository.ConfirmTokenRepository,
	workOrderRepo *repository.WorkOrderRepository,
	db *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
	baseURL string,
	tokenTTL time.Duration,
) *PublicConfirmService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &PublicConfirmService{
		tokenRepo:     tokenRepo,
		workOrderRepo: workOrderRepo,
		db:            db,
		rdb:           rdb,
		logger:        logger,
		baseURL:       baseURL,
		tokenTTL:      tokenTTL,
	}
}

// ConfirmTokenResp 签发结果
type ConfirmTokenResp struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestToken 为已寄出的工单签发确认令牌。仅OWNER可签发，
// 重复签发会作废此前的令牌（一单最多一个有效令牌）。
func (s *PublicConfirmService) RequestToken(ctx context.Context, workOrderID string, op Operator) (*ConfirmTokenResp, error) {
	if op.Role != entity.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can issue confirm tokens", ErrForbidden)
	}

	wo, err := s.workOrderRepo.FindByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: work order %s", ErrNotFound, workOrderID)
		}
		return nil, err
	}
	if wo.Status != entity.StatusShipped {
		return nil, fmt.Errorf("%w: confirm tokens can only be issued for shipped work orders", ErrValidation)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("生成令牌失败: %w", err)
	}
	token := &entity.PublicConfirmToken{
		ID:          newID(),
		WorkOrderID: workOrderID,
		Token:       hex.EncodeToString(raw),
		ExpiresAt:   time.Now().Add(s.tokenTTL),
	}

	if err := s.tokenRepo.DeleteByWorkOrder(ctx, workOrderID); err != nil {
		return nil, fmt.Errorf("作废旧令牌失败: %w", err)
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("创建令牌失败: %w", err)
	}

	s.logger.Info("confirm token issued",
		zap.String("work_order_id", workOrderID),
		zap.String("operator", op.UserID),
		zap.Time("expires_at", token.ExpiresAt))

	return &ConfirmTokenResp{
		Token:     token.Token,
		URL:       fmt.Sprintf("%s/confirm/%s", s.baseURL, token.Token),
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// PublicWorkOrderView 匿名查询可见的工单子集
type PublicWorkOrderView struct {
	OrderNo            *string   `json:"order_no"`
	Status             string    `json:"status"`
	CustomerName       string    `json:"customer_name"`
	OutboundTrackingNo string    `json:"outbound_tracking_no"`
	TokenUsed          bool      `json:"token_used"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// GetByToken 按令牌匿名查询工单摘要。命中Redis缓存直接返回，
// 过期令牌拒绝，已使用令牌仍可查看（展示最终状态）。
func (s *PublicConfirmService) GetByToken(ctx context.Context, tokenValue string) (*PublicWorkOrderView, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, confirmTokenCachePrefix+tokenValue).Result()
		if err == nil {
			var view PublicWorkOrderView
			if err := json.Unmarshal([]byte(cached), &view); err == nil {
				return &view, nil
			}
		}
	}

	token, err := s.tokenRepo.FindByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid token", ErrNotFound)
		}
		return nil, err
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, fmt.Errorf("%w: token expired", ErrForbidden)
	}

	wo, err := s.workOrderRepo.FindByID(ctx, token.WorkOrderID)
	if err != nil {
		return nil, err
	}

	view := &PublicWorkOrderView{
		OrderNo:            wo.OrderNo,
		Status:             wo.Status,
		CustomerName:       wo.CustomerName,
		OutboundTrackingNo: wo.OutboundTrackingNo,
		TokenUsed:          token.UsedAt != nil,
		ExpiresAt:          token.ExpiresAt,
	}

	if s.rdb != nil {
		if data, err := json.Marshal(view); err == nil {
			s.rdb.Set(ctx, confirmTokenCachePrefix+tokenValue, data, confirmTokenCacheTTL)
		}
	}
	return view, nil
}

// ConfirmReq 匿名确认请求
type ConfirmReq struct {
	Delivered *bool  `json:"delivered" binding:"required"`
	Satisfied *bool  `json:"satisfied" binding:"required"`
	Feedback  string `json:"feedback"`
}

// Confirm 凭令牌确认。令牌单次有效：无效404、过期403、已使用400。
// 实际流转与登录客户的确认完全一致，事件记录归属工单客户本人。
func (s *PublicConfirmService) Confirm(ctx context.Context, tokenValue string, req ConfirmReq) (*PublicWorkOrderView, error) {
	token, err := s.tokenRepo.FindByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid token", ErrNotFound)
		}
		return nil, err
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, fmt.Errorf("%w: token expired", ErrForbidden)
	}
	if token.UsedAt != nil {
		return nil, fmt.Errorf("%w: token already used", ErrValidation)
	}
	if req.Delivered == nil || req.Satisfied == nil {
		return nil, fmt.Errorf("%w: delivered and satisfied are required", ErrValidation)
	}

	wo, err := s.workOrderRepo.FindByID(ctx, token.WorkOrderID)
	if err != nil {
		return nil, err
	}

	action, toStatus := lifecycle.ResolveCustomerConfirm(wo.Status, *req.Delivered, *req.Satisfied)
	if _, ok := lifecycle.CanTransition(wo.Status, action); !ok {
		return nil, fmt.Errorf("%w: action %s is not allowed in status %s", ErrInvalidTransition, action, wo.Status)
	}

	fromStatus := wo.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.workOrderRepo.FindForUpdate(tx, token.WorkOrderID)
		if err != nil {
			return err
		}
		if locked.Status != fromStatus {
			return fmt.Errorf("%w: work order status changed to %s", ErrConflict, locked.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     toStatus,
			"updated_at": now,
		}
		if action == entity.ActionReopen {
			updates["notes"] = appendNotes(locked.Notes, "Customer feedback: "+req.Feedback)
		}
		if err := tx.Model(&entity.WorkOrder{}).
			Where("id = ?", token.WorkOrderID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := s.tokenRepo.MarkUsed(tx, token.ID, now); err != nil {
			return err
		}

		event := &entity.WorkOrderEvent{
			ID:          newID(),
			WorkOrderID: token.WorkOrderID,
			FromStatus:  fromStatus,
			ToStatus:    toStatus,
			Action:      action,
			ActorUserID: &wo.CustomerUserID,
			ActorRole:   entity.RoleCustomer,
			Metadata: entity.JSONB{
				"via_token": true,
				"delivered": *req.Delivered,
				"satisfied": *req.Satisfied,
				"feedback":  req.Feedback,
			},
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		s.rdb.Del(ctx, confirmTokenCachePrefix+tokenValue)
	}

	s.logger.Info("work order confirmed via token",
		zap.String("work_order_id", token.WorkOrderID),
		zap.String("action", action),
		zap.String("to", toStatus))

	return s.GetByToken(ctx, tokenValue)
}

// SweepExpiredTokens 清理过期且未使用的令牌，由后台定时任务调用
func (s *PublicConfirmService) SweepExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.DeleteExpired(ctx, time.Now())
}
