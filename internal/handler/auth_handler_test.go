package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"golang.org/x/crypto/bcrypt"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(sessions.Sessions("habitloop_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", Login)
	r.POST("/logout", Logout)
	r.GET("/api/protected", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return r
}

func seedUser(t *testing.T, username, password string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.DB.Create(&db.User{Username: username, Password: string(hashed)}).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestLoginSuccessGrantsAccess(t *testing.T) {
	_, _, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "admin", "secret")
	r := newAuthRouter()

	body, _ := json.Marshal(map[string]any{"username": "admin", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie after login")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected access with session, got %d", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, _, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "admin", "secret")
	r := newAuthRouter()

	body, _ := json.Marshal(map[string]any{"username": "admin", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	_, _, cleanup := setupTestAPI(t)
	defer cleanup()

	r := newAuthRouter()

	body, _ := json.Marshal(map[string]any{"username": "ghost", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthRequiredBlocksAnonymous(t *testing.T) {
	_, _, cleanup := setupTestAPI(t)
	defer cleanup()

	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	_, _, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "admin", "secret")
	r := newAuthRouter()

	body, _ := json.Marshal(map[string]any{"username": "admin", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	loginCookies := w.Result().Cookies()

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range loginCookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 after logout, got %d", w.Code)
	}
}
