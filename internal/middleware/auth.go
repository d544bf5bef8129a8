package middleware

import (
	"log"
	"net/http"
	"strings"

	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// SessionUserKey 会话中保存当前用户 ID 的键
const SessionUserKey = "user_id"

// AuthRequired ensures a user is logged in. API requests get a JSON 401,
// page requests are redirected to the login page.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			if IsAPI(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoadUser resolves the current user from a bearer token or the session
// and stores it in the context together with the unread notification count.
func LoadUser(users *services.UserService, notifications *services.NotificationService, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if raw, ok := bearerToken(c); ok {
			id, err := utils.ParseToken(jwtSecret, raw)
			if err == nil {
				userID = id
			}
		} else if id, ok := sessions.Default(c).Get(SessionUserKey).(string); ok {
			userID = id
		}

		if userID != "" {
			user, err := users.Get(c.Request.Context(), userID)
			if err == nil {
				c.Set(CheckUserKey, &user)

				count, err := notifications.UnreadCount(c.Request.Context(), user.ID)
				if err != nil {
					log.Printf("[Auth] unread count for %s: %v", user.ID, err)
				}
				c.Set(UnreadCountKey, count)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(CheckUserKey); exists {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

// IsAPI 判断是否为 JSON API 请求
func IsAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}
