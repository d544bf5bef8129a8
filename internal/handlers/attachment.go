package handlers

import (
	"net/http"

	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

// AttachmentHandler 附件上传与管理。文件由客户端直传对象存储，
// 服务端只负责签发上传地址和登记元数据。
type AttachmentHandler struct {
	attachments *services.AttachmentService
}

func NewAttachmentHandler(attachments *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

type reorderBody struct {
	IDs []string `json:"ids"`
}

// Presign POST /api/attachments/presign
func (h *AttachmentHandler) Presign(c *gin.Context) {
	var in services.UploadRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	ticket, err := h.attachments.RequestUpload(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Register POST /api/attachments
func (h *AttachmentHandler) Register(c *gin.Context) {
	var in services.AttachmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	att, err := h.attachments.Register(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *AttachmentHandler) ListForPost(c *gin.Context) {
	atts, err := h.attachments.ForPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": atts})
}

func (h *AttachmentHandler) ListForComment(c *gin.Context) {
	atts, err := h.attachments.ForComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": atts})
}

func (h *AttachmentHandler) ReorderForPost(c *gin.Context) {
	h.reorder(c, services.Target{PostID: c.Param("id")})
}

func (h *AttachmentHandler) ReorderForComment(c *gin.Context) {
	h.reorder(c, services.Target{CommentID: c.Param("id")})
}

func (h *AttachmentHandler) reorder(c *gin.Context, t services.Target) {
	var body reorderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	atts, err := h.attachments.Reorder(c.Request.Context(), currentUser(c).ID, t, body.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": atts})
}

// Delete DELETE /api/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.attachments.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
