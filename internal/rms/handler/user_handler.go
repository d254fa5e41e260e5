package handler

import (
	"github.com/bitfantasy/nimo-rms/internal/rms/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理处理器（仅OWNER）
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create 创建账号
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.Create(c.Request.Context(), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, user)
}

// List 用户列表
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	req := service.ListUsersReq{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("q"),
		Role:     c.Query("role"),
		Status:   c.Query("status"),
	}

	users, total, err := h.svc.List(c.Request.Context(), req, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, gin.H{
		"items": users,
		"pagination": Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// SetStatusReq 启用/禁用请求
type SetStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus 启用/禁用账号
// PUT /api/v1/users/:id/status
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req SetStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), req.Status, GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}
