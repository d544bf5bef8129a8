package handlers

import (
	"net/http"

	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
	posts *services.PostService
}

func NewUserHandler(users *services.UserService, posts *services.PostService) *UserHandler {
	return &UserHandler{users: users, posts: posts}
}

// Profile - 用户主页 /profile/:id
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param("id"), 20)
	if err != nil {
		renderPageError(c, err)
		return
	}

	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"Title":   profile.User.Name,
		"Profile": profile,
		"IsOwner": currentUser(c).ID == profile.User.ID,
	})
}

// APIProfile GET /api/users/:id
func (h *UserHandler) APIProfile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param("id"), 10)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// APIPosts GET /api/users/:id/posts
func (h *UserHandler) APIPosts(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.ByUser(ctx, user.ID, utils.StringToInt(c.Query("limit")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// APIMe GET /api/me
func (h *UserHandler) APIMe(c *gin.Context) {
	user := currentUser(c)
	plan, err := h.users.Plan(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"email":    user.Email,
		"plan":     plan,
		"is_admin": h.users.IsAdminEmail(user.Email),
	})
}

// APIUpdateMe PATCH /api/me，未提供的字段保持原值
func (h *UserHandler) APIUpdateMe(c *gin.Context) {
	user := currentUser(c)
	in := services.ProfileInput{Name: user.Name, Image: user.Image}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	updated, err := h.users.UpdateProfile(c.Request.Context(), user.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated, "email": updated.Email})
}
