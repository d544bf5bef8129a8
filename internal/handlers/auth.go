package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users     *services.UserService
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthHandler(users *services.UserService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

type loginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Title": "Sign up"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Title": "Sign up",
			"Error": invalidForm,
		})
		return
	}

	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			renderPageError(c, err)
			return
		}
		Render(c, statusOf(err), "auth/register.html", gin.H{
			"Title":  "Sign up",
			"Error":  err.Error(),
			"Fields": fieldErrors(err),
			"Input":  in,
		})
		return
	}

	h.startSession(c, user)
	c.Redirect(http.StatusFound, "/community")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log in"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBind(&in); err != nil {
		Render(c, http.StatusBadRequest, "auth/login.html", gin.H{
			"Title": "Log in",
			"Error": invalidForm,
		})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			renderPageError(c, err)
			return
		}
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Title": "Log in",
			"Error": err.Error(),
			"Email": in.Email,
		})
		return
	}

	h.startSession(c, user)
	c.Redirect(http.StatusFound, "/community")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/login")
}

// APIRegister POST /api/auth/register
func (h *AuthHandler) APIRegister(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

// APILogin POST /api/auth/login
func (h *AuthHandler) APILogin(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

// APILogout POST /api/auth/logout
func (h *AuthHandler) APILogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) startSession(c *gin.Context, user models.User) {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Printf("[Auth] save session: %v", err)
	}
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user models.User) {
	h.startSession(c, user)
	token, expires, err := utils.IssueToken(h.jwtSecret, user.ID, h.tokenTTL)
	if err != nil {
		respondError(c, fmt.Errorf("issue token: %w", err))
		return
	}
	c.JSON(status, gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expires,
	})
}
