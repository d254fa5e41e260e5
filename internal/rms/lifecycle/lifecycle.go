// Package lifecycle 定义工单生命周期的流转表、动作权限表与可编辑字段表。
// 三张表均为静态数据，纯函数查询，无任何副作用；执行副作用的是 service 层。
package lifecycle

import "github.com/bitfantasy/nimo-rms/internal/rms/entity"

// Edge 一条合法流转：在某状态下执行某动作到达目标状态
type Edge struct {
	Action string
	To     string
}

// Transitions 合法流转表。未列出的 (状态, 动作) 组合一律非法，
// 终态（COMPLETED / CLOSED_ABNORMAL）没有出边。
// 每个状态下的切片顺序即可用动作的展示顺序。
var Transitions = map[string][]Edge{
	entity.StatusDraft: {
		{entity.ActionSubmit, entity.StatusSubmitted},
	},
	entity.StatusSubmitted: {
		{entity.ActionVerify, entity.StatusOwnerVerified},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusOwnerVerified: {
		{entity.ActionReportExternalDamage, entity.StatusExternalDamageReported},
		{entity.ActionRecordDevice, entity.StatusDeviceInfoRecorded},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusExternalDamageReported: {
		// 外观受损：不维修直接寄回
		{entity.ActionShip, entity.StatusShipped},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusDeviceInfoRecorded: {
		{entity.ActionDiagnose, entity.StatusDiagnosed},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusDiagnosed: {
		{entity.ActionRepair, entity.StatusRepairing},
		// 检测正常无需维修，直接入库
		{entity.ActionStoreIn, entity.StatusStoredIn},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusRepairing: {
		{entity.ActionStoreIn, entity.StatusStoredIn},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusStoredIn: {
		{entity.ActionReadyToShip, entity.StatusReadyToShip},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusReadyToShip: {
		{entity.ActionShip, entity.StatusShipped},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusShipped: {
		{entity.ActionCustomerConfirm, entity.StatusDelivered},
		{entity.ActionReopen, entity.StatusReopened},
	},
	entity.StatusDelivered: {
		{entity.ActionCustomerConfirm, entity.StatusCompleted},
		{entity.ActionReopen, entity.StatusReopened},
	},
	entity.StatusCompleted: {},
	entity.StatusReopened: {
		{entity.ActionVerify, entity.StatusOwnerVerified},
		{entity.ActionCloseAbnormal, entity.StatusClosedAbnormal},
	},
	entity.StatusClosedAbnormal: {},
}

// ActionPermission 动作权限：允许的角色集合，以及是否要求STAFF已被指派
type ActionPermission struct {
	Roles             []string
	RequireAssignment bool
}

// ActionPermissions 动作权限表。RequireAssignment 目前没有任何动作启用，
// 保留为收紧STAFF权限的开关。
var ActionPermissions = map[string]ActionPermission{
	entity.ActionSubmit:               {Roles: []string{entity.RoleOwner, entity.RoleStaff, entity.RoleCustomer}},
	entity.ActionVerify:               {Roles: []string{entity.RoleOwner, entity.RoleStaff}},
	entity.ActionReportExternalDamage: {Roles: []string{entity.RoleOwner, entity.RoleStaff}},
	entity.ActionRecordDevice:         {Roles: []string{entity.RoleStaff}},
	entity.ActionDiagnose:             {Roles: []string{entity.RoleStaff}},
	entity.ActionRepair:               {Roles: []string{entity.RoleStaff}},
	entity.ActionStoreIn:              {Roles: []string{entity.RoleStaff}},
	entity.ActionReadyToShip:          {Roles: []string{entity.RoleOwner}},
	entity.ActionShip:                 {Roles: []string{entity.RoleOwner}},
	entity.ActionCustomerConfirm:      {Roles: []string{entity.RoleCustomer, entity.RoleOwner}},
	entity.ActionReopen:               {Roles: []string{entity.RoleCustomer, entity.RoleOwner}},
	entity.ActionCloseAbnormal:        {Roles: []string{entity.RoleOwner}},
	entity.ActionAssign:               {Roles: []string{entity.RoleOwner}},
}

// FieldPolicy 某状态下允许编辑的字段与角色
type FieldPolicy struct {
	Allowed []string
	Roles   []string
}

// EditableFields 各状态下的可编辑字段表。终态下为空表，任何人不可编辑。
var EditableFields = map[string]FieldPolicy{
	entity.StatusDraft: {
		Allowed: []string{"order_no", "customer_name", "customer_phone", "customer_address", "notes"},
		Roles:   []string{entity.RoleOwner, entity.RoleCustomer, entity.RoleStaff},
	},
	entity.StatusSubmitted: {
		Allowed: []string{"order_no", "customer_name", "customer_phone", "customer_address", "notes"},
		Roles:   []string{entity.RoleOwner, entity.RoleCustomer},
	},
	entity.StatusOwnerVerified: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusExternalDamageReported: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusDeviceInfoRecorded: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusDiagnosed: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusRepairing: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusStoredIn: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusReadyToShip: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusShipped: {
		Allowed: []string{"order_no"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusDelivered: {},
	entity.StatusCompleted: {},
	entity.StatusReopened: {
		Allowed: []string{"order_no", "notes"},
		Roles:   []string{entity.RoleOwner},
	},
	entity.StatusClosedAbnormal: {},
}

// CanTransition 校验 (当前状态, 动作) 是否为合法流转，返回目标状态
func CanTransition(fromStatus, action string) (toStatus string, ok bool) {
	for _, e := range Transitions[fromStatus] {
		if e.Action == action {
			return e.To, true
		}
	}
	return "", false
}

// IsTerminal 是否终态
func IsTerminal(status string) bool {
	edges, ok := Transitions[status]
	return ok && len(edges) == 0
}

// Ownership 权限判定所需的工单归属信息
type Ownership struct {
	CustomerUserID   string
	AssignedToUserID *string
}

// CanPerform 校验角色与归属是否允许执行动作。
// 判定顺序：未知动作 → 角色不在允许集 → CUSTOMER非本人工单 → STAFF未被指派（仅当表中启用）。
// reason 为禁止时的提示语，由调用方原样透出。
func CanPerform(action, role string, wo Ownership, userID string) (allowed bool, reason string) {
	perm, ok := ActionPermissions[action]
	if !ok {
		return false, "unknown action"
	}

	roleOK := false
	for _, r := range perm.Roles {
		if r == role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return false, "role not permitted for this action"
	}

	if role == entity.RoleCustomer && wo.CustomerUserID != userID {
		return false, "customer can only operate on their own work orders"
	}

	if perm.RequireAssignment && role == entity.RoleStaff {
		if wo.AssignedToUserID == nil || *wo.AssignedToUserID != userID {
			return false, "staff can only operate on assigned work orders"
		}
	}

	return true, ""
}

// CanEditField 校验某状态下某角色能否编辑某字段
func CanEditField(status, field, role string) bool {
	policy, ok := EditableFields[status]
	if !ok {
		return false
	}
	fieldOK := false
	for _, f := range policy.Allowed {
		if f == field {
			fieldOK = true
			break
		}
	}
	if !fieldOK {
		return false
	}
	for _, r := range policy.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AvailableActions 计算当前查看者在当前状态下可执行的动作，
// 顺序与流转表中的声明顺序一致。
func AvailableActions(status, role string, wo Ownership, userID string) []string {
	actions := []string{}
	for _, e := range Transitions[status] {
		if ok, _ := CanPerform(e.Action, role, wo, userID); ok {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

// ResolveCustomerConfirm 客户确认的目标动作/状态由收货与满意标记决定：
// 未收到或不满意 → REOPEN；SHIPPED下确认 → DELIVERED；DELIVERED下确认 → COMPLETED。
// 认证路径与匿名令牌路径共用此判定，避免两处逻辑漂移。
func ResolveCustomerConfirm(currentStatus string, delivered, satisfied bool) (action, toStatus string) {
	if !delivered || !satisfied {
		return entity.ActionReopen, entity.StatusReopened
	}
	if currentStatus == entity.StatusShipped {
		return entity.ActionCustomerConfirm, entity.StatusDelivered
	}
	return entity.ActionCustomerConfirm, entity.StatusCompleted
}
