package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/lifecycle"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkOrderService 工单服务：创建、查询、编辑、指派与生命周期动作执行
type WorkOrderService struct {
	workOrderRepo *repository.WorkOrderRepository
	userRepo      *repository.UserRepository
	db            *gorm.DB
	logger        *zap.Logger
}

func NewWorkOrderService(
	workOrderRepo *repository.WorkOrderRepository,
	userRepo *repository.UserRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		workOrderRepo: workOrderRepo,
		userRepo:      userRepo,
		db:            db,
		logger:        logger,
	}
}

// Operator 当前操作者
type Operator struct {
	UserID string
	Role   string
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ownership 从工单提取权限判定所需的归属信息
func ownership(wo *entity.WorkOrder) lifecycle.Ownership {
	return lifecycle.Ownership{
		CustomerUserID:   wo.CustomerUserID,
		AssignedToUserID: wo.AssignedToUserID,
	}
}

// canView CUSTOMER只能查看本人工单，OWNER/STAFF不受限
func canView(wo *entity.WorkOrder, op Operator) bool {
	if op.Role == entity.RoleCustomer {
		return wo.CustomerUserID == op.UserID
	}
	return true
}

// appendNotes 在备注末尾追加一行
func appendNotes(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// CreateWorkOrderReq 创建工单请求
type CreateWorkOrderReq struct {
	OrderNo         string `json:"order_no"`
	CustomerUserID  string `json:"customer_user_id"` // 仅OWNER可代客户创建
	CustomerName    string `json:"customer_name" binding:"required"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	Notes           string `json:"notes"`
	RepairType      string `json:"repair_type"`
	Urgency         string `json:"urgency"`
	WarrantyStatus  string `json:"warranty_status"`
}

// Create 创建工单。客户创建的工单归属自己；OWNER可指定归属客户。
// 创建即提交：落库状态为SUBMITTED，并记录DRAFT→SUBMITTED事件。
func (s *WorkOrderService) Create(ctx context.Context, req CreateWorkOrderReq, op Operator) (*entity.WorkOrder, error) {
	customerUserID := op.UserID
	if op.Role == entity.RoleOwner && req.CustomerUserID != "" {
		customer, err := s.userRepo.FindByID(ctx, req.CustomerUserID)
		if err != nil {
			return nil, fmt.Errorf("%w: customer not found", ErrValidation)
		}
		if customer.Role != entity.RoleCustomer {
			return nil, fmt.Errorf("%w: target user is not a customer", ErrValidation)
		}
		customerUserID = req.CustomerUserID
	}
	if op.Role == entity.RoleStaff {
		return nil, fmt.Errorf("%w: staff cannot create work orders", ErrForbidden)
	}

	wo := &entity.WorkOrder{
		ID:              newID(),
		Status:          entity.StatusSubmitted,
		CustomerUserID:  customerUserID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		RepairType:      req.RepairType,
		Urgency:         req.Urgency,
		WarrantyStatus:  req.WarrantyStatus,
	}
	if req.OrderNo != "" {
		wo.OrderNo = &req.OrderNo
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wo).Error; err != nil {
			return fmt.Errorf("创建工单失败: %w", err)
		}
		event := &entity.WorkOrderEvent{
			ID:          newID(),
			WorkOrderID: wo.ID,
			FromStatus:  entity.StatusDraft,
			ToStatus:    entity.StatusSubmitted,
			Action:      entity.ActionSubmit,
			ActorUserID: &op.UserID,
			ActorRole:   op.Role,
			Metadata:    entity.JSONB{"created_by": op.UserID},
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("work order created",
		zap.String("work_order_id", wo.ID),
		zap.String("customer_user_id", customerUserID),
		zap.String("operator", op.UserID))

	return s.Get(ctx, wo.ID, op)
}

// Get 查询工单详情，并按当前查看者计算可执行动作
func (s *WorkOrderService) Get(ctx context.Context, id string, op Operator) (*entity.WorkOrder, error) {
	wo, err := s.workOrderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: work order %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !canView(wo, op) {
		return nil, fmt.Errorf("%w: customer can only view their own work orders", ErrForbidden)
	}
	wo.AvailableActions = lifecycle.AvailableActions(wo.Status, op.Role, ownership(wo), op.UserID)
	return wo, nil
}

// ListWorkOrdersReq 工单列表请求
type ListWorkOrdersReq struct {
	Page       int
	PageSize   int
	Keyword    string
	Status     string
	AssignedTo string
}

// List 查询工单列表。CUSTOMER只能看到本人工单，关键词匹配单号、客户名与运单号。
func (s *WorkOrderService) List(ctx context.Context, req ListWorkOrdersReq, op Operator) ([]entity.WorkOrder, int64, error) {
	filters := map[string]interface{}{
		"keyword":             req.Keyword,
		"status":              req.Status,
		"assigned_to_user_id": req.AssignedTo,
	}
	if op.Role == entity.RoleCustomer {
		filters["customer_user_id"] = op.UserID
	}

	orders, total, err := s.workOrderRepo.List(ctx, req.Page, req.PageSize, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("查询工单列表失败: %w", err)
	}
	for i := range orders {
		orders[i].AvailableActions = lifecycle.AvailableActions(
			orders[i].Status, op.Role, ownership(&orders[i]), op.UserID)
	}
	return orders, total, nil
}

// UpdateWorkOrderReq 字段编辑请求，只携带出现的字段
type UpdateWorkOrderReq struct {
	OrderNo         *string `json:"order_no"`
	CustomerName    *string `json:"customer_name"`
	CustomerPhone   *string `json:"customer_phone"`
	CustomerAddress *string `json:"customer_address"`
	Notes           *string `json:"notes"`
}

// Update 编辑工单字段。逐字段校验可编辑表，任一字段不允许则整体拒绝，
// 不产生事件，不改变状态。
func (s *WorkOrderService) Update(ctx context.Context, id string, req UpdateWorkOrderReq, op Operator) (*entity.WorkOrder, error) {
	wo, err := s.Get(ctx, id, op)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	requested := map[string]*string{
		"order_no":         req.OrderNo,
		"customer_name":    req.CustomerName,
		"customer_phone":   req.CustomerPhone,
		"customer_address": req.CustomerAddress,
		"notes":            req.Notes,
	}
	for field, value := range requested {
		if value == nil {
			continue
		}
		if !lifecycle.CanEditField(wo.Status, field, op.Role) {
			return nil, fmt.Errorf("%w: field %s is not editable in status %s", ErrForbidden, field, wo.Status)
		}
		fields[field] = *value
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	fields["updated_at"] = time.Now()

	if err := s.workOrderRepo.Updates(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("更新工单失败: %w", err)
	}
	return s.Get(ctx, id, op)
}

// AssignReq 指派请求
type AssignReq struct {
	AssigneeUserID string `json:"assignee_user_id" binding:"required"`
}

// Assign 指派工单给STAFF。仅OWNER可操作，不改变状态，记录同状态事件。
func (s *WorkOrderService) Assign(ctx context.Context, id string, req AssignReq, op Operator) (*entity.WorkOrder, error) {
	if op.Role != entity.RoleOwner {
		return nil, fmt.Errorf("%w: role not permitted for this action", ErrForbidden)
	}

	wo, err := s.Get(ctx, id, op)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminal(wo.Status) {
		return nil, fmt.Errorf("%w: cannot assign a closed work order", ErrInvalidTransition)
	}

	assignee, err := s.userRepo.FindByID(ctx, req.AssigneeUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: assignee not found", ErrValidation)
	}
	if assignee.Role != entity.RoleStaff {
		return nil, fmt.Errorf("%w: assignee must be a staff member", ErrValidation)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.WorkOrder{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"assigned_to_user_id": req.AssigneeUserID,
				"updated_at":          time.Now(),
			}).Error; err != nil {
			return err
		}
		event := &entity.WorkOrderEvent{
			ID:          newID(),
			WorkOrderID: id,
			FromStatus:  wo.Status,
			ToStatus:    wo.Status,
			Action:      entity.ActionAssign,
			ActorUserID: &op.UserID,
			ActorRole:   op.Role,
			Metadata:    entity.JSONB{"assignee_user_id": req.AssigneeUserID, "assignee_name": assignee.Name},
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, fmt.Errorf("指派工单失败: %w", err)
	}

	s.logger.Info("work order assigned",
		zap.String("work_order_id", id),
		zap.String("assignee", req.AssigneeUserID),
		zap.String("operator", op.UserID))

	return s.Get(ctx, id, op)
}

// ListEvents 获取工单事件时间线
func (s *WorkOrderService) ListEvents(ctx context.Context, id string, op Operator) ([]entity.WorkOrderEvent, error) {
	if _, err := s.Get(ctx, id, op); err != nil {
		return nil, err
	}
	events, err := s.workOrderRepo.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询工单事件失败: %w", err)
	}
	return events, nil
}

// RecordDeviceReq 录入设备信息
type RecordDeviceReq struct {
	Brand          string `json:"brand" binding:"required"`
	Model          string `json:"model" binding:"required"`
	IMEI           string `json:"imei"`
	SerialNo       string `json:"serial_no"`
	ConditionNotes string `json:"condition_notes"`
}

// DiagnoseReq 检测结论
type DiagnoseReq struct {
	Result    string       `json:"result" binding:"required"`
	Checklist entity.JSONB `json:"checklist"`
	Notes     string       `json:"notes"`
}

// RepairReq 维修记录
type RepairReq struct {
	Actions entity.JSONBArray `json:"actions"`
	Cost    *float64          `json:"cost"`
	Result  string            `json:"result" binding:"required"`
	Notes   string            `json:"notes"`
}

// ExecuteActionReq 生命周期动作请求，按动作携带对应载荷
type ExecuteActionReq struct {
	Action string `json:"action" binding:"required"`

	InboundTrackingNo  string           `json:"inbound_tracking_no"`
	OutboundTrackingNo string           `json:"outbound_tracking_no"`
	Reason             string           `json:"reason"`
	Location           string           `json:"location"`
	Notes              string           `json:"notes"`
	Device             *RecordDeviceReq `json:"device"`
	Inspection         *DiagnoseReq     `json:"inspection"`
	Repair             *RepairReq       `json:"repair"`

	// CUSTOMER_CONFIRM
	Delivered *bool  `json:"delivered"`
	Satisfied *bool  `json:"satisfied"`
	Feedback  string `json:"feedback"`

	// 随动作挂载的附件
	AttachmentIDs []string `json:"attachment_ids"`
}

// ExecuteAction 执行生命周期动作。
// 校验顺序：流转合法性 → 角色与归属权限 → 载荷校验；
// 通过后在单个事务内加行锁重读、复核状态、执行动作副作用并追加一条事件。
func (s *WorkOrderService) ExecuteAction(ctx context.Context, id string, req ExecuteActionReq, op Operator) (*entity.WorkOrder, error) {
	wo, err := s.workOrderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: work order %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !canView(wo, op) {
		return nil, fmt.Errorf("%w: customer can only operate on their own work orders", ErrForbidden)
	}

	action := req.Action
	if action == entity.ActionCustomerConfirm {
		// 确认动作的实际走向由收货与满意标记决定
		if req.Delivered == nil || req.Satisfied == nil {
			return nil, fmt.Errorf("%w: delivered and satisfied are required", ErrValidation)
		}
		action, _ = lifecycle.ResolveCustomerConfirm(wo.Status, *req.Delivered, *req.Satisfied)
	}

	toStatus, ok := lifecycle.CanTransition(wo.Status, action)
	if !ok {
		return nil, fmt.Errorf("%w: action %s is not allowed in status %s", ErrInvalidTransition, action, wo.Status)
	}
	if allowed, reason := lifecycle.CanPerform(action, op.Role, ownership(wo), op.UserID); !allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, reason)
	}
	if err := validateActionPayload(action, &req); err != nil {
		return nil, err
	}

	fromStatus := wo.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.workOrderRepo.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		// 并发防护：拿到锁后状态已被他人改变则放弃
		if locked.Status != fromStatus {
			return fmt.Errorf("%w: work order status changed to %s", ErrConflict, locked.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     toStatus,
			"updated_at": now,
		}
		metadata := entity.JSONB{}

		switch action {
		case entity.ActionVerify:
			if req.InboundTrackingNo != "" {
				updates["inbound_tracking_no"] = req.InboundTrackingNo
				metadata["inbound_tracking_no"] = req.InboundTrackingNo
			}

		case entity.ActionReportExternalDamage:
			updates["notes"] = appendNotes(locked.Notes, "External Damage: "+req.Reason)
			metadata["reason"] = req.Reason

		case entity.ActionRecordDevice:
			device := &entity.Device{
				ID:             newID(),
				Brand:          req.Device.Brand,
				Model:          req.Device.Model,
				IMEI:           req.Device.IMEI,
				SerialNo:       req.Device.SerialNo,
				ConditionNotes: req.Device.ConditionNotes,
			}
			device.LabelCode = nextLabelCode(now)
			if err := tx.Create(device).Error; err != nil {
				return fmt.Errorf("创建设备记录失败: %w", err)
			}
			updates["device_id"] = device.ID
			metadata["device_id"] = device.ID
			metadata["label_code"] = device.LabelCode

		case entity.ActionDiagnose:
			inspection := &entity.Inspection{
				ID:              newID(),
				WorkOrderID:     id,
				Result:          req.Inspection.Result,
				Checklist:       req.Inspection.Checklist,
				Notes:           req.Inspection.Notes,
				CreatedByUserID: op.UserID,
			}
			if err := tx.Create(inspection).Error; err != nil {
				return fmt.Errorf("创建检测记录失败: %w", err)
			}
			metadata["inspection_id"] = inspection.ID
			metadata["result"] = inspection.Result

		case entity.ActionRepair:
			record := &entity.RepairRecord{
				ID:              newID(),
				WorkOrderID:     id,
				Actions:         req.Repair.Actions,
				Cost:            req.Repair.Cost,
				Result:          req.Repair.Result,
				Notes:           req.Repair.Notes,
				CreatedByUserID: op.UserID,
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("创建维修记录失败: %w", err)
			}
			metadata["repair_record_id"] = record.ID
			metadata["result"] = record.Result

		case entity.ActionStoreIn:
			txn := &entity.InventoryTransaction{
				ID:              newID(),
				WorkOrderID:     id,
				Type:            entity.InventoryTxnIn,
				Location:        req.Location,
				Notes:           req.Notes,
				CreatedByUserID: op.UserID,
				OccurredAt:      now,
			}
			if err := tx.Create(txn).Error; err != nil {
				return fmt.Errorf("创建入库记录失败: %w", err)
			}
			metadata["inventory_txn_id"] = txn.ID

		case entity.ActionShip:
			txn := &entity.InventoryTransaction{
				ID:              newID(),
				WorkOrderID:     id,
				Type:            entity.InventoryTxnOut,
				Notes:           "Shipped with tracking: " + req.OutboundTrackingNo,
				CreatedByUserID: op.UserID,
				OccurredAt:      now,
			}
			if err := tx.Create(txn).Error; err != nil {
				return fmt.Errorf("创建出库记录失败: %w", err)
			}
			metadata["inventory_txn_id"] = txn.ID
			updates["outbound_tracking_no"] = req.OutboundTrackingNo
			metadata["outbound_tracking_no"] = req.OutboundTrackingNo

		case entity.ActionCloseAbnormal:
			updates["notes"] = appendNotes(locked.Notes, "Closed: "+req.Reason)
			metadata["reason"] = req.Reason

		case entity.ActionReopen:
			if req.Action == entity.ActionCustomerConfirm {
				updates["notes"] = appendNotes(locked.Notes, "Customer feedback: "+req.Feedback)
				metadata["delivered"] = *req.Delivered
				metadata["satisfied"] = *req.Satisfied
				if req.Feedback != "" {
					metadata["feedback"] = req.Feedback
				}
			} else {
				updates["notes"] = appendNotes(locked.Notes, "Reopened: "+req.Reason)
				metadata["reason"] = req.Reason
			}

		case entity.ActionCustomerConfirm:
			metadata["delivered"] = *req.Delivered
			metadata["satisfied"] = *req.Satisfied
			if req.Feedback != "" {
				metadata["feedback"] = req.Feedback
			}
		}

		if err := tx.Model(&entity.WorkOrder{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("更新工单状态失败: %w", err)
		}

		// 挂载附件
		for _, attachmentID := range req.AttachmentIDs {
			if err := tx.Model(&entity.Attachment{}).
				Where("id = ?", attachmentID).
				Update("work_order_id", id).Error; err != nil {
				return fmt.Errorf("关联附件失败: %w", err)
			}
		}
		if len(req.AttachmentIDs) > 0 {
			metadata["attachment_ids"] = req.AttachmentIDs
		}

		event := &entity.WorkOrderEvent{
			ID:          newID(),
			WorkOrderID: id,
			FromStatus:  fromStatus,
			ToStatus:    toStatus,
			Action:      action,
			ActorUserID: &op.UserID,
			ActorRole:   op.Role,
			Metadata:    metadata,
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("work order action executed",
		zap.String("work_order_id", id),
		zap.String("action", action),
		zap.String("from", fromStatus),
		zap.String("to", toStatus),
		zap.String("operator", op.UserID))

	return s.Get(ctx, id, op)
}

// validateActionPayload 动作载荷校验
func validateActionPayload(action string, req *ExecuteActionReq) error {
	switch action {
	case entity.ActionRecordDevice:
		if req.Device == nil || req.Device.Brand == "" || req.Device.Model == "" {
			return fmt.Errorf("%w: device brand and model are required", ErrValidation)
		}
	case entity.ActionDiagnose:
		if req.Inspection == nil {
			return fmt.Errorf("%w: inspection payload is required", ErrValidation)
		}
		if req.Inspection.Result != entity.InspectionResultNormal && req.Inspection.Result != entity.InspectionResultAbnormal {
			return fmt.Errorf("%w: invalid inspection result %s", ErrValidation, req.Inspection.Result)
		}
	case entity.ActionRepair:
		if req.Repair == nil {
			return fmt.Errorf("%w: repair payload is required", ErrValidation)
		}
		switch req.Repair.Result {
		case entity.RepairResultFixed, entity.RepairResultUnfixed, entity.RepairResultNA:
		default:
			return fmt.Errorf("%w: invalid repair result %s", ErrValidation, req.Repair.Result)
		}
	case entity.ActionShip:
		if req.OutboundTrackingNo == "" {
			return fmt.Errorf("%w: outbound_tracking_no is required", ErrValidation)
		}
	case entity.ActionReportExternalDamage, entity.ActionCloseAbnormal:
		if req.Reason == "" {
			return fmt.Errorf("%w: reason is required", ErrValidation)
		}
	case entity.ActionReopen:
		// 客户确认解析出的重开不要求reason，直接重开必须给出原因
		if req.Action == entity.ActionReopen && req.Reason == "" {
			return fmt.Errorf("%w: reason is required", ErrValidation)
		}
	}
	return nil
}

// nextLabelCode 生成设备标签编码，如 LBL-20260830-1A2B3C4D。
// 随机后缀保证并发录入不会撞号。
func nextLabelCode(now time.Time) string {
	return fmt.Sprintf("LBL-%s-%s", now.Format("20060102"), strings.ToUpper(newID()[:8]))
}
