package handler

import (
	"io"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/service"
	"github.com/gin-gonic/gin"
)

// AttachmentHandler 附件处理器
type AttachmentHandler struct {
	svc *service.AttachmentService
}

func NewAttachmentHandler(svc *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload 上传附件
// POST /api/v1/attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}
	defer file.Close()

	attachmentType := c.PostForm("type")
	if attachmentType == "" {
		attachmentType = entity.AttachmentOther
	}

	attachment, err := h.svc.Upload(
		c.Request.Context(),
		GetOperator(c),
		attachmentType,
		file,
		header.Filename,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, attachment)
}

// ListByWorkOrder 工单附件列表
// GET /api/v1/work-orders/:id/attachments
func (h *AttachmentHandler) ListByWorkOrder(c *gin.Context) {
	attachments, err := h.svc.ListByWorkOrder(c.Request.Context(), c.Param("id"), GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": attachments})
}

// Download 下载附件
// GET /api/v1/attachments/:id/download
func (h *AttachmentHandler) Download(c *gin.Context) {
	object, attachment, err := h.svc.Download(c.Request.Context(), c.Param("id"), GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer object.Close()

	c.Header("Content-Disposition", "attachment; filename=\""+attachment.FileName+"\"")
	c.Header("Content-Type", attachment.ContentType)
	io.Copy(c.Writer, object)
}
