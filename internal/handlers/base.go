package handlers

import (
	"errors"
	"log"
	"net/http"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// invalidForm 表单无法解析时的提示
const invalidForm = "Invalid form data, please try again"

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	var se *services.Error
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON body: {"error": msg, "fields": {...}}.
// Unexpected errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	var se *services.Error
	if status == http.StatusInternalServerError || !errors.As(err, &se) {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	body := gin.H{"error": se.Message}
	if len(se.Fields) > 0 {
		body["fields"] = se.Fields
	}
	c.JSON(status, body)
}

// renderPageError 页面请求的错误展示
func renderPageError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("[Page] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		RenderError(c, status, "Something went wrong, please try again later")
		return
	}
	RenderError(c, status, err.Error())
}

// fieldErrors returns the per-field messages of a validation error.
func fieldErrors(err error) map[string]string {
	var se *services.Error
	if errors.As(err, &se) && se.Kind == services.KindValidation {
		return se.Fields
	}
	return nil
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}

// currentUser 由 AuthRequired 保证存在
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
