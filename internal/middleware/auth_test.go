package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *services.Services, models.User) {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cache, _ := utils.NewQueryCache(10, time.Minute)
	svc := services.New(gdb, cache, nil, services.Options{})
	user, err := svc.Users.Register(context.Background(), services.RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("session-secret"))))
	r.Use(LoadUser(svc.Users, svc.Notifications, testSecret))
	r.GET("/login-as/:id", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionUserKey, c.Param("id"))
		s.Save()
		c.Status(http.StatusOK)
	})
	whoami := func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Name)
	}
	r.GET("/api/whoami", AuthRequired(), whoami)
	r.GET("/whoami", AuthRequired(), whoami)
	return r, svc, user
}

func TestAuthRequiredAnonymous(t *testing.T) {
	r, _, _ := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("api status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Authentication required") {
		t.Fatalf("body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("page status = %d location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLoadUserFromBearerToken(t *testing.T) {
	r, _, user := setup(t)

	token, _, err := utils.IssueToken(testSecret, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "Alice" {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}

	bad, _, _ := utils.IssueToken("other-secret", user.ID, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", w.Code)
	}
}

func TestLoadUserFromSession(t *testing.T) {
	r, _, user := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login-as/"+user.ID, nil))
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "Alice" {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestLoadUserUnknownSessionUser(t *testing.T) {
	r, _, _ := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login-as/missing", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
