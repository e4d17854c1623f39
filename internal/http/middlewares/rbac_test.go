package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func rbacRouter(required, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	m := &AuthMiddleware{}

	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			c.Set(ctxRoleKey, role)
		})
	}
	r.GET("/admin", m.RequireRole(required), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name        string
		required    string
		role        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "matching role passes",
			required:   "admin",
			role:       "admin",
			wantStatus: http.StatusOK,
		},
		{
			name:        "wrong role is forbidden",
			required:    "admin",
			role:        "user",
			wantStatus:  http.StatusForbidden,
			wantMessage: "Admin role required",
		},
		{
			name:        "message names the required role",
			required:    "auditor",
			role:        "user",
			wantStatus:  http.StatusForbidden,
			wantMessage: "Auditor role required",
		},
		{
			name:       "missing identity is unauthorized",
			required:   "admin",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rbacRouter(tt.required, tt.role)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantMessage == "" {
				return
			}

			var resp struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
			}
			if resp.Error.Message != tt.wantMessage {
				t.Fatalf("message = %q, want %q", resp.Error.Message, tt.wantMessage)
			}
		})
	}
}
