package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/handlers"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

const testCookieName = "session"

var (
	adminID = uuid.NewString()
	aliceID = uuid.NewString()
	bobID   = uuid.NewString()
)

// Fake repository implementation of the handlers.UsersStore interface

type fakeUsersRepo struct {
	getFn    func(ctx context.Context, id string) (user.User, error)
	listFn   func(ctx context.Context) ([]user.User, error)
	updateFn func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	deleteFn func(ctx context.Context, id string) error

	calls []string
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	f.calls = append(f.calls, "get")
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]user.User, error) {
	f.calls = append(f.calls, "list")
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []user.User{}, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	f.calls = append(f.calls, "update")
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return user.User{ID: id}, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.calls = append(f.calls, "delete")
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func testJWT() *auth.Manager {
	return auth.NewManager("test-secret", time.Hour)
}

func sessionCookie(t *testing.T, m *auth.Manager, id, email, role string) *http.Cookie {
	t.Helper()

	token, err := m.GenerateSessionToken(id, email, role)
	if err != nil {
		t.Fatalf("generate session token: %v", err)
	}

	return &http.Cookie{Name: testCookieName, Value: token}
}

// usersRouter mounts the users handlers behind the real auth middleware so
// the role/ownership rules run against real verified tokens.
func usersRouter(repo *fakeUsersRepo, m *auth.Manager) *gin.Engine {
	r := gin.New()

	authMW := middlewares.NewAuthMiddleware(m, testCookieName)
	h := handlers.NewUsersHandler(repo, nil)

	grp := r.Group("/api/users")
	grp.Use(authMW.RequireAuth())
	grp.GET("", h.ListUsers)
	grp.GET("/:id", h.GetUserByID)
	grp.PUT("/:id", h.UpdateUser)
	grp.DELETE("/:id", authMW.RequireRole("admin"), h.DeleteUser)

	return r
}

func TestUsersRoutesRequireAuth(t *testing.T) {
	m := testJWT()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "list", method: http.MethodGet, path: "/api/users"},
		{name: "get", method: http.MethodGet, path: "/api/users/" + aliceID},
		{name: "update", method: http.MethodPut, path: "/api/users/" + aliceID, body: `{"name":"New Name"}`},
		{name: "delete", method: http.MethodDelete, path: "/api/users/" + aliceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			r := usersRouter(repo, m)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
			}

			// no side effect may reach the store
			if len(repo.calls) != 0 {
				t.Fatalf("repo was called: %v", repo.calls)
			}
		})
	}
}

func TestUpdateUserAuthorization(t *testing.T) {
	m := testJWT()

	tests := []struct {
		name       string
		cookie     *http.Cookie
		targetID   string
		body       string
		wantStatus int
		wantUpdate bool
	}{
		{
			name:       "user updates own name",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   aliceID,
			body:       `{"name":"Alice Cooper"}`,
			wantStatus: http.StatusOK,
			wantUpdate: true,
		},
		{
			name:       "user cannot set own role",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   aliceID,
			body:       `{"role":"admin"}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user cannot update someone else",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   bobID,
			body:       `{"name":"Hijacked"}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin updates another user's role",
			cookie:     sessionCookie(t, m, adminID, "admin@example.com", "admin"),
			targetID:   bobID,
			body:       `{"role":"admin"}`,
			wantStatus: http.StatusOK,
			wantUpdate: true,
		},
		{
			name:       "no recognized fields",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   aliceID,
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid target id",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   "not-a-uuid",
			body:       `{"name":"Alice"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid role value",
			cookie:     sessionCookie(t, m, adminID, "admin@example.com", "admin"),
			targetID:   bobID,
			body:       `{"role":"superuser"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			r := usersRouter(repo, m)

			req := httptest.NewRequest(http.MethodPut, "/api/users/"+tt.targetID, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(tt.cookie)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			gotUpdate := len(repo.calls) > 0

			if gotUpdate != tt.wantUpdate {
				t.Fatalf("repo calls = %v, wantUpdate = %v", repo.calls, tt.wantUpdate)
			}
		})
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	m := testJWT()

	repo := &fakeUsersRepo{
		updateFn: func(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
			return user.User{}, user.ErrEmailTaken
		},
	}
	r := usersRouter(repo, m)

	req := httptest.NewRequest(http.MethodPut, "/api/users/"+aliceID, bytes.NewBufferString(`{"email":"taken@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t, m, aliceID, "alice@example.com", "user"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want 409, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteUserRules(t *testing.T) {
	m := testJWT()

	tests := []struct {
		name       string
		cookie     *http.Cookie
		targetID   string
		deleteFn   func(ctx context.Context, id string) error
		wantStatus int
		wantDelete bool
	}{
		{
			name:       "non-admin denied",
			cookie:     sessionCookie(t, m, aliceID, "alice@example.com", "user"),
			targetID:   bobID,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin cannot delete self",
			cookie:     sessionCookie(t, m, adminID, "admin@example.com", "admin"),
			targetID:   adminID,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin deletes another user",
			cookie:     sessionCookie(t, m, adminID, "admin@example.com", "admin"),
			targetID:   bobID,
			wantStatus: http.StatusNoContent,
			wantDelete: true,
		},
		{
			name:     "unknown user",
			cookie:   sessionCookie(t, m, adminID, "admin@example.com", "admin"),
			targetID: bobID,
			deleteFn: func(ctx context.Context, id string) error {
				return user.ErrNotFound
			},
			wantStatus: http.StatusNotFound,
			wantDelete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{deleteFn: tt.deleteFn}
			r := usersRouter(repo, m)

			req := httptest.NewRequest(http.MethodDelete, "/api/users/"+tt.targetID, nil)
			req.AddCookie(tt.cookie)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			gotDelete := len(repo.calls) > 0

			if gotDelete != tt.wantDelete {
				t.Fatalf("repo calls = %v, wantDelete = %v", repo.calls, tt.wantDelete)
			}
		})
	}
}

func TestGetUserByID(t *testing.T) {
	m := testJWT()

	t.Run("invalid id", func(t *testing.T) {
		r := usersRouter(&fakeUsersRepo{}, m)

		req := httptest.NewRequest(http.MethodGet, "/api/users/42", nil)
		req.AddCookie(sessionCookie(t, m, aliceID, "alice@example.com", "user"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want 400", w.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := &fakeUsersRepo{
			getFn: func(ctx context.Context, id string) (user.User, error) {
				return user.User{}, user.ErrNotFound
			},
		}
		r := usersRouter(repo, m)

		req := httptest.NewRequest(http.MethodGet, "/api/users/"+uuid.NewString(), nil)
		req.AddCookie(sessionCookie(t, m, aliceID, "alice@example.com", "user"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404", w.Code)
		}
	})
}
