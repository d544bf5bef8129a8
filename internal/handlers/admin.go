package handlers

import (
	"net/http"

	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理员操作，权限由 PostService 根据 ADMIN_EMAILS 校验
type AdminHandler struct {
	posts *services.PostService
}

func NewAdminHandler(posts *services.PostService) *AdminHandler {
	return &AdminHandler{posts: posts}
}

type pinBody struct {
	IsPinned *bool `json:"is_pinned"`
}

// TogglePin 置顶/取消置顶 (页面表单)
func (h *AdminHandler) TogglePin(c *gin.Context) {
	id := c.Param("id")
	pinned := c.PostForm("pinned") == "true"
	if _, err := h.posts.SetPinned(c.Request.Context(), currentUser(c).ID, id, pinned); err != nil {
		renderPageError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+id)
}

// APIPin PUT /api/posts/:id/pin
func (h *AdminHandler) APIPin(c *gin.Context) {
	var body pinBody
	if err := c.ShouldBindJSON(&body); err != nil || body.IsPinned == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "is_pinned is required",
			"fields": gin.H{"is_pinned": "is_pinned is required"},
		})
		return
	}
	post, err := h.posts.SetPinned(c.Request.Context(), currentUser(c).ID, c.Param("id"), *body.IsPinned)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
