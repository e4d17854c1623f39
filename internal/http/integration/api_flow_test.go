package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/domain/user"
	apphttp "github.com/geocoder89/accounthub/internal/http"
	"github.com/geocoder89/accounthub/internal/repo/memory"
	"github.com/geocoder89/accounthub/internal/risk"
	"github.com/gin-gonic/gin"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"

// memWindow is an in-process WindowStore so the full pipeline runs without
// redis. Same contract: every Take counts, oldest surviving entry returned.
type memWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func newMemWindow() *memWindow {
	return &memWindow{entries: make(map[string][]time.Time)}
}

func (w *memWindow) Take(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	kept := w.entries[key][:0]
	for _, ts := range w.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	w.entries[key] = kept

	return int64(len(kept)), kept[0], nil
}

func testConfig() config.Config {
	return config.Config{
		Env:        "test",
		JWTSecret:  "test-secret-key",
		JWTTTL:     time.Hour,
		CookieName: "session",
	}
}

func setupRouter(t *testing.T, guestLimit int) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := testConfig()
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	repo := memory.NewUsersRepo()

	engine := risk.NewEngine(logger, nil, newMemWindow(), risk.EngineOptions{
		Policies: risk.PolicyTable{
			Guest: risk.Policy{Max: guestLimit, Window: time.Minute},
			User:  risk.Policy{Max: 100, Window: time.Minute},
			Admin: risk.Policy{Max: 100, Window: time.Minute},
		},
		FailOpen: true,
	})

	router := apphttp.NewRouter(logger, apphttp.Deps{
		Cfg:    cfg,
		Users:  repo,
		JWT:    jwtManager,
		Engine: engine,
		Start:  time.Now(),
	})

	return router, repo
}

func do(r *gin.Engine, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("User-Agent", browserUA)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func cookieFrom(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignUpSignInUpdateFlow(t *testing.T) {
	r, _ := setupRouter(t, 100)

	// sign up
	w := do(r, http.MethodPost, "/api/auth/sign-up", `{"name":"Alice","email":"alice@example.com","password":"correct-horse"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("sign-up: got %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		User user.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal sign-up response: %v", err)
	}

	// sign in
	w = do(r, http.MethodPost, "/api/auth/sign-in", `{"email":"alice@example.com","password":"correct-horse"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in: got %d, body=%s", w.Code, w.Body.String())
	}

	session := cookieFrom(w, "session")
	if session == nil {
		t.Fatal("sign-in should set the session cookie")
	}

	// authenticated list
	w = do(r, http.MethodGet, "/api/users", "", session)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d, body=%s", w.Code, w.Body.String())
	}

	// update own name
	w = do(r, http.MethodPut, "/api/users/"+created.User.ID, `{"name":"Alice Cooper"}`, session)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, body=%s", w.Code, w.Body.String())
	}

	var updated struct {
		User user.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal update response: %v", err)
	}
	if updated.User.Name != "Alice Cooper" {
		t.Fatalf("name = %q, want Alice Cooper", updated.User.Name)
	}

	// unauthenticated list is rejected
	w = do(r, http.MethodGet, "/api/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: got %d, want 401", w.Code)
	}
}

func TestSignUpInvalidatesCachedList(t *testing.T) {
	r, _ := setupRouter(t, 100)

	w := do(r, http.MethodPost, "/api/auth/sign-up", `{"name":"Alice","email":"alice@example.com","password":"correct-horse"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first sign-up: got %d, body=%s", w.Code, w.Body.String())
	}
	session := cookieFrom(w, "session")

	// prime the list cache
	w = do(r, http.MethodGet, "/api/users", "", session)
	if w.Code != http.StatusOK {
		t.Fatalf("first list: got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/auth/sign-up", `{"name":"Bob","email":"bob@example.com","password":"correct-horse"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("second sign-up: got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/users", "", session)
	if w.Code != http.StatusOK {
		t.Fatalf("second list: got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
	if resp.Count != 2 {
		t.Fatalf("list after second sign-up: count = %d, want 2", resp.Count)
	}
}

func TestGuestSlidingWindow(t *testing.T) {
	r, _ := setupRouter(t, 3)

	for i := 0; i < 3; i++ {
		w := do(r, http.MethodGet, "/api", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200, body=%s", i+1, w.Code, w.Body.String())
		}
	}

	w := do(r, http.MethodGet, "/api", "", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("over-limit request: got %d, want 403, body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("rate-limit denial should carry Retry-After")
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
	if resp.Error.Code != "rate_limited" {
		t.Fatalf("reason code = %q, want rate_limited", resp.Error.Code)
	}
}

func TestBotUserAgentRejected(t *testing.T) {
	r, _ := setupRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "bot_detected" {
		t.Fatalf("reason code = %q, want bot_detected", resp.Error.Code)
	}
}

func TestShieldBlocksSuspiciousQuery(t *testing.T) {
	r, _ := setupRouter(t, 100)

	w := do(r, http.MethodGet, "/api?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E", "", nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "shield_blocked" {
		t.Fatalf("reason code = %q, want shield_blocked", resp.Error.Code)
	}
}

func TestUnknownRouteBody(t *testing.T) {
	r, _ := setupRouter(t, 100)

	w := do(r, http.MethodGet, "/nope", "", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
	if resp["error"] != "Route not found" {
		t.Fatalf(`body = %s, want {"error":"Route not found"}`, w.Body.String())
	}
}

func TestRootAndHealth(t *testing.T) {
	r, _ := setupRouter(t, 100)

	w := do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("root: got %d, want 200", w.Code)
	}

	w = do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: got %d, want 200", w.Code)
	}

	var resp struct {
		Status string  `json:"status"`
		Uptime float64 `json:"uptime"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
}
