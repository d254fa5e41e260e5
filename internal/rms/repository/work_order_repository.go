package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkOrderRepository 工单仓储
type WorkOrderRepository struct {
	db *gorm.DB
}

// NewWorkOrderRepository 创建工单仓储
func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// DB 返回底层连接，供service层开启事务
func (r *WorkOrderRepository) DB() *gorm.DB {
	return r.db
}

// FindByID 根据ID查找工单（带完整关联）
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("AssignedTo").
		Preload("Device").
		Preload("Inspections", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Inspections.CreatedBy").
		Preload("Repairs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Repairs.CreatedBy").
		Preload("InventoryTxns", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC")
		}).
		Preload("Attachments").
		Where("id = ?", id).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wo, nil
}

// FindForUpdate 在事务内按ID加行锁重读工单，用于状态流转前的并发防护
func (r *WorkOrderRepository) FindForUpdate(tx *gorm.DB, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wo, nil
}

// Create 创建工单
func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

// Updates 按字段更新工单
func (r *WorkOrderRepository) Updates(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&entity.WorkOrder{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// List 获取工单列表
func (r *WorkOrderRepository) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.WorkOrder, int64, error) {
	var orders []entity.WorkOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})

	// 应用过滤条件
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where(
			"order_no ILIKE ? OR customer_name ILIKE ? OR inbound_tracking_no ILIKE ? OR outbound_tracking_no ILIKE ?",
			like, like, like, like)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if customerUserID, ok := filters["customer_user_id"].(string); ok && customerUserID != "" {
		query = query.Where("customer_user_id = ?", customerUserID)
	}
	if assignedTo, ok := filters["assigned_to_user_id"].(string); ok && assignedTo != "" {
		query = query.Where("assigned_to_user_id = ?", assignedTo)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := query.
		Preload("Customer").
		Preload("AssignedTo").
		Preload("Device").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// AddEvent 追加流转事件
func (r *WorkOrderRepository) AddEvent(ctx context.Context, event *entity.WorkOrderEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents 获取工单事件时间线（按发生顺序）
func (r *WorkOrderRepository) ListEvents(ctx context.Context, workOrderID string) ([]entity.WorkOrderEvent, error) {
	var events []entity.WorkOrderEvent
	err := r.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Preload("Actor").
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
