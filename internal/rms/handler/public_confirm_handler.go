package handler

import (
	"github.com/bitfantasy/nimo-rms/internal/rms/service"
	"github.com/gin-gonic/gin"
)

// PublicConfirmHandler 匿名确认处理器。
// 签发接口走认证路由，查询与确认接口完全公开。
type PublicConfirmHandler struct {
	svc *service.PublicConfirmService
}

func NewPublicConfirmHandler(svc *service.PublicConfirmService) *PublicConfirmHandler {
	return &PublicConfirmHandler{svc: svc}
}

// RequestToken 签发确认令牌
// POST /api/v1/work-orders/:id/confirm-token
func (h *PublicConfirmHandler) RequestToken(c *gin.Context) {
	resp, err := h.svc.RequestToken(c.Request.Context(), c.Param("id"), GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, resp)
}

// Get 匿名查询工单摘要
// GET /api/v1/public/confirm/:token
func (h *PublicConfirmHandler) Get(c *gin.Context) {
	view, err := h.svc.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}

// Confirm 匿名确认
// POST /api/v1/public/confirm/:token
func (h *PublicConfirmHandler) Confirm(c *gin.Context) {
	var req service.ConfirmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	view, err := h.svc.Confirm(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}
