package handlers

import (
	"net/http"
	"net/url"

	"agora/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type commentBody struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id"`
}

// Create 页面表单发表评论或回复，失败信息通过 flash 带回详情页
func (h *CommentHandler) Create(c *gin.Context) {
	postID := c.Param("id")
	in := services.CommentInput{
		PostID:          postID,
		Content:         c.PostForm("content"),
		ParentCommentID: c.PostForm("parent_comment_id"),
	}

	comment, err := h.comments.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		flashBack(c, err, postID)
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+postID+"#comment-"+comment.ID)
}

// Update 页面表单编辑自己的评论
func (h *CommentHandler) Update(c *gin.Context) {
	comment, err := h.comments.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), c.PostForm("content"))
	if err != nil {
		flashBack(c, err, c.PostForm("post_id"))
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+comment.PostID+"#comment-"+comment.ID)
}

// Delete 页面表单删除自己的评论，回复一并删除
func (h *CommentHandler) Delete(c *gin.Context) {
	postID := c.PostForm("post_id")
	if err := h.comments.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		renderPageError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+url.PathEscape(postID)+"#comments")
}

// flashBack 校验错误回到详情页提示，其余错误渲染错误页
func flashBack(c *gin.Context, err error, postID string) {
	if fieldErrors(err) == nil || postID == "" {
		renderPageError(c, err)
		return
	}
	session := sessions.Default(c)
	session.AddFlash(err.Error())
	session.Save()
	c.Redirect(http.StatusFound, "/community/post/"+url.PathEscape(postID)+"#comments")
}

// APIList GET /api/posts/:id/comments
func (h *CommentHandler) APIList(c *gin.Context) {
	comments, err := h.comments.ForPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// APICreate POST /api/posts/:id/comments
func (h *CommentHandler) APICreate(c *gin.Context) {
	var body commentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), currentUser(c).ID, services.CommentInput{
		PostID:          c.Param("id"),
		Content:         body.Content,
		ParentCommentID: body.ParentCommentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// APICount GET /api/posts/:id/comments/count
func (h *CommentHandler) APICount(c *gin.Context) {
	count, err := h.comments.Count(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// APIReplies GET /api/comments/:id/replies
func (h *CommentHandler) APIReplies(c *gin.Context) {
	replies, err := h.comments.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

func (h *CommentHandler) APIUpdate(c *gin.Context) {
	var body commentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	comment, err := h.comments.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), body.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) APIDelete(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
