package handlers

import (
	"net/http"

	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
	users    *services.UserService
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService, users *services.UserService) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, users: users}
}

// commentThread 顶层评论及其回复
type commentThread struct {
	models.Comment
	Replies []models.Comment
}

// List - 社区帖子列表 /community
func (h *PostHandler) List(c *gin.Context) {
	q := services.RecentQuery{
		Category: models.Category(c.Query("category")),
		Page:     utils.ParsePage(c.Query("page")),
	}
	page, err := h.posts.Recent(c.Request.Context(), q)
	if err != nil {
		renderPageError(c, err)
		return
	}

	Render(c, http.StatusOK, "community/list.html", gin.H{
		"Title":          "Community",
		"Posts":          page.Posts,
		"Page":           page.Page,
		"TotalPages":     page.TotalPages,
		"Total":          page.Total,
		"Categories":     models.Categories,
		"ActiveCategory": string(q.Category),
	})
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	h.renderForm(c, http.StatusOK, gin.H{
		"Title":  "New post",
		"Action": "/community/create-post",
		"Input":  services.PostInput{Category: models.CategoryGeneral},
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	user := currentUser(c)

	var in services.PostInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, gin.H{
			"Title":  "New post",
			"Action": "/community/create-post",
			"Error":  invalidForm,
			"Input":  services.PostInput{Category: models.CategoryGeneral},
		})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		h.formError(c, err, gin.H{
			"Title":  "New post",
			"Action": "/community/create-post",
			"Input":  in,
		})
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+post.ID)
}

// Detail - 帖子详情，包含评论及回复
func (h *PostHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.posts.Get(ctx, c.Param("id"))
	if err != nil {
		renderPageError(c, err)
		return
	}

	comments, err := h.comments.ForPost(ctx, post.ID)
	if err != nil {
		renderPageError(c, err)
		return
	}
	threads := make([]commentThread, len(comments))
	for i, com := range comments {
		threads[i] = commentThread{Comment: com}
		if com.ReplyCount == 0 {
			continue
		}
		replies, err := h.comments.Replies(ctx, com.ID)
		if err != nil {
			renderPageError(c, err)
			return
		}
		threads[i].Replies = replies
	}

	session := sessions.Default(c)
	flashes := session.Flashes()
	if len(flashes) > 0 {
		session.Save()
	}

	user := currentUser(c)
	viewerID := ""
	if user != nil {
		viewerID = user.ID
	}
	Render(c, http.StatusOK, "community/detail.html", gin.H{
		"Title":       post.DisplayTitle(),
		"Description": utils.Truncate(utils.PlainText(post.Content), 150),
		"Post":        post,
		"Threads":     threads,
		"Flashes":     flashes,
		"CanEdit":     user != nil && user.ID == post.UserID,
		"ViewerID":    viewerID,
		"IsAdmin":     user != nil && h.users.IsAdminEmail(user.Email),
	})
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	user := currentUser(c)
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderPageError(c, err)
		return
	}
	if post.UserID != user.ID {
		RenderError(c, http.StatusForbidden, "Unauthorized: You can only edit your own posts")
		return
	}

	h.renderForm(c, http.StatusOK, gin.H{
		"Title":  "Edit post",
		"Action": "/community/post/" + post.ID + "/edit",
		"Post":   post,
		"Input":  services.PostInput{Title: post.Title, Content: post.Content, Category: post.Category},
	})
}

func (h *PostHandler) Update(c *gin.Context) {
	user := currentUser(c)
	id := c.Param("id")

	var in services.PostInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderForm(c, http.StatusBadRequest, gin.H{
			"Title":  "Edit post",
			"Action": "/community/post/" + id + "/edit",
			"Error":  invalidForm,
			"Input":  in,
		})
		return
	}

	if _, err := h.posts.Update(c.Request.Context(), user.ID, id, in); err != nil {
		h.formError(c, err, gin.H{
			"Title":  "Edit post",
			"Action": "/community/post/" + id + "/edit",
			"Input":  in,
		})
		return
	}
	c.Redirect(http.StatusFound, "/community/post/"+id)
}

func (h *PostHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if err := h.posts.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		renderPageError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/community")
}

func (h *PostHandler) renderForm(c *gin.Context, code int, obj gin.H) {
	obj["Categories"] = models.Categories
	Render(c, code, "community/form.html", obj)
}

// formError 校验失败时带着字段提示重新渲染表单
func (h *PostHandler) formError(c *gin.Context, err error, obj gin.H) {
	fields := fieldErrors(err)
	if fields == nil {
		renderPageError(c, err)
		return
	}
	obj["Error"] = err.Error()
	obj["Fields"] = fields
	h.renderForm(c, http.StatusBadRequest, obj)
}

// APIList GET /api/posts?category=&page=
func (h *PostHandler) APIList(c *gin.Context) {
	page, err := h.posts.Recent(c.Request.Context(), services.RecentQuery{
		Category: models.Category(c.Query("category")),
		Page:     utils.ParsePage(c.Query("page")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) APIGet(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) APICreate(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	post, err := h.posts.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) APIUpdate(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	post, err := h.posts.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) APIDelete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// APIMyPosts GET /api/me/posts
func (h *PostHandler) APIMyPosts(c *gin.Context) {
	posts, err := h.posts.ByUser(c.Request.Context(), currentUser(c).ID, utils.StringToInt(c.Query("limit")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Categories GET /api/categories
func (h *PostHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}
