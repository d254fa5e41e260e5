package handler

import (
	"github.com/bitfantasy/nimo-rms/internal/rms/service"
	"github.com/gin-gonic/gin"
)

// WorkOrderHandler 工单处理器
type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

// Create 创建工单
// POST /api/v1/work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.Create(c.Request.Context(), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, wo)
}

// List 工单列表
// GET /api/v1/work-orders
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	req := service.ListWorkOrdersReq{
		Page:       page,
		PageSize:   pageSize,
		Keyword:    c.Query("q"),
		Status:     c.Query("status"),
		AssignedTo: c.Query("assigned_to"),
	}

	orders, total, err := h.svc.List(c.Request.Context(), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, gin.H{
		"items": orders,
		"pagination": Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// Get 工单详情
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"), GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Update 编辑工单字段
// PATCH /api/v1/work-orders/:id
func (h *WorkOrderHandler) Update(c *gin.Context) {
	var req service.UpdateWorkOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.Update(c.Request.Context(), c.Param("id"), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// ExecuteAction 执行生命周期动作
// POST /api/v1/work-orders/:id/actions
func (h *WorkOrderHandler) ExecuteAction(c *gin.Context) {
	var req service.ExecuteActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.ExecuteAction(c.Request.Context(), c.Param("id"), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// Assign 指派工单
// POST /api/v1/work-orders/:id/assign
func (h *WorkOrderHandler) Assign(c *gin.Context) {
	var req service.AssignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	wo, err := h.svc.Assign(c.Request.Context(), c.Param("id"), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, wo)
}

// ListEvents 工单事件时间线
// GET /api/v1/work-orders/:id/events
func (h *WorkOrderHandler) ListEvents(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), c.Param("id"), GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": events})
}
