package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&services.Error{Kind: services.KindValidation, Message: "bad"}, http.StatusBadRequest},
		{&services.Error{Kind: services.KindUnauthorized}, http.StatusUnauthorized},
		{&services.Error{Kind: services.KindForbidden}, http.StatusForbidden},
		{fmt.Errorf("load: %w", &services.Error{Kind: services.KindNotFound}), http.StatusNotFound},
		{&services.Error{Kind: services.KindConflict}, http.StatusConflict},
		{&services.Error{Kind: services.KindUnavailable}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusOf(tc.err); got != tc.want {
			t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(err error) (int, map[string]any) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)
		respondError(c, err)
		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body
	}

	code, body := run(&services.Error{
		Kind:    services.KindValidation,
		Message: "Title must be less than 200 characters",
		Fields:  map[string]string{"title": "Title must be less than 200 characters"},
	})
	if code != http.StatusBadRequest || body["error"] != "Title must be less than 200 characters" {
		t.Fatalf("validation = %d %v", code, body)
	}
	if fields, ok := body["fields"].(map[string]any); !ok || fields["title"] == nil {
		t.Fatalf("fields = %v", body["fields"])
	}

	code, body = run(errors.New("database is on fire"))
	if code != http.StatusInternalServerError || body["error"] != "Internal server error" {
		t.Fatalf("internal = %d %v", code, body)
	}
}
