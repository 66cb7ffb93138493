package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/config"
	httptransport "github.com/Gurpreetsingh4547/project-peak-api/internal/http"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/handler"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/middleware"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/jwt"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/repository"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/service"
)

type capturingMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *capturingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

// apiClient drives the router like a browser, carrying the session
// cookie between requests.
type apiClient struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Project json.RawMessage `json:"project"`
}

func (c *apiClient) do(method, path string, payload any) (int, envelope) {
	c.t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "token" {
			if cookie.Value == "" {
				c.cookie = nil
			} else {
				c.cookie = cookie
			}
		}
	}

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func newTestAPI(t *testing.T) (*apiClient, *repository.MemoryUserRepo, *capturingMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		OTPExpiry:     5 * time.Minute,
		CookieExpiry:  7 * 24 * time.Hour,
		ResetTokenTTL: 24 * time.Hour,
		AppURL:        "http://localhost:3000",
		ServiceName:   "project-peak-api",
	}

	users := repository.NewMemoryUserRepo()
	projects := repository.NewMemoryProjectRepo()
	mail := &capturingMailer{}
	issuer := jwt.NewIssuer("test-secret", cfg.CookieExpiry, cfg.ResetTokenTTL)

	authService := service.NewAuthService(users, mail, issuer, cfg, zap.NewNop())
	projectService := service.NewProjectService(projects, zap.NewNop())
	guard := &middleware.Auth{Issuer: issuer, AuthService: authService}

	router := httptransport.NewRouter(cfg,
		handler.NewAuthHandler(authService),
		handler.NewProjectHandler(projectService),
		guard,
	)
	return &apiClient{t: t, router: router}, users, mail
}

func signup(t *testing.T, client *apiClient, email string) {
	t.Helper()
	status, env := client.do(http.MethodPost, "/api/v1/signup", gin.H{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"full_name":  "Ada Lovelace",
		"email":      email,
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)
	require.Equal(t, "OTP sent to your email, please verify your account", env.Message)
	require.NotNil(t, client.cookie)
}

func TestHealthEndpoint(t *testing.T) {
	client, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	client.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Server is working!", rec.Body.String())
}

func TestSignupVerifyLogoutLoginFlow(t *testing.T) {
	client, users, _ := newTestAPI(t)

	signup(t, client, "a@x.com")

	var created struct {
		ID       string `json:"_id"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
		Token    string `json:"token"`
	}
	// Re-login to inspect the projection without re-registering.
	status, env := client.do(http.MethodPost, "/api/v1/login", gin.H{
		"email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "a@x.com", created.Email)
	require.False(t, created.Verified)
	require.NotEmpty(t, created.Token)
	require.NotContains(t, string(env.Data), "password")

	user, err := users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	otp, ok := users.Raw(user.ID)
	require.True(t, ok)
	require.NotNil(t, otp.OTP)

	// Wrong code first.
	status, env = client.do(http.MethodPost, "/api/v1/verify", gin.H{"otp": *otp.OTP - 1})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid OTP or has been Expired", env.Message)

	status, env = client.do(http.MethodPost, "/api/v1/verify", gin.H{"otp": *otp.OTP})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Account verified successfully", env.Message)

	status, env = client.do(http.MethodDelete, "/api/v1/logout", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Logged out successfully", env.Message)
	require.Nil(t, client.cookie)

	// The guard rejects once the cookie is gone.
	status, env = client.do(http.MethodPost, "/api/v1/resend/otp", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Please login to access this resource", env.Message)

	status, env = client.do(http.MethodPost, "/api/v1/login", gin.H{
		"email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Login successfully", env.Message)
	require.NotNil(t, client.cookie)
}

func TestSignupDuplicateEmail(t *testing.T) {
	client, _, _ := newTestAPI(t)

	signup(t, client, "a@x.com")
	client.cookie = nil

	status, env := client.do(http.MethodPost, "/api/v1/signup", gin.H{
		"email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, env.Success)
	require.Equal(t, "User already exists", env.Message)
}

func TestForgotAndResetPasswordOverHTTP(t *testing.T) {
	client, _, mail := newTestAPI(t)

	signup(t, client, "a@x.com")
	client.cookie = nil

	status, env := client.do(http.MethodPost, "/api/v1/forget/password", gin.H{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Reset link sent to your email", env.Message)

	mail.mu.Lock()
	body := mail.bodies[len(mail.bodies)-1]
	mail.mu.Unlock()
	var token string
	_, err := fmt.Sscanf(body[len("Click the link to reset your password: http://localhost:3000/reset/password/"):], "%s", &token)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	status, env = client.do(http.MethodPost, "/api/v1/reset/password", gin.H{
		"token": token, "password": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Password reset successfully", env.Message)

	status, env = client.do(http.MethodPost, "/api/v1/login", gin.H{
		"email": "a@x.com", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid Email or Password", env.Message)

	status, env = client.do(http.MethodPost, "/api/v1/login", gin.H{
		"email": "a@x.com", "password": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Login successfully", env.Message)

	// Second use of the same token fails.
	status, env = client.do(http.MethodPost, "/api/v1/reset/password", gin.H{
		"token": token, "password": "yet-another-pass",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid or expired token", env.Message)
}

func TestProjectEndpoints(t *testing.T) {
	client, _, _ := newTestAPI(t)

	signup(t, client, "a@x.com")

	status, env := client.do(http.MethodPost, "/api/v1/add/projects", gin.H{
		"name": "Website", "description": "Marketing site rebuild",
	})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)
	require.Equal(t, "Project created successfully", env.Message)

	var created struct {
		ID     string `json:"_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Project, &created))
	require.Equal(t, "Pending", created.Status)

	status, env = client.do(http.MethodGet, "/api/v1/get/projects?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	status, env = client.do(http.MethodPut, "/api/v1/update/projects/"+created.ID, gin.H{
		"status": "In Progress",
	})
	require.Equal(t, http.StatusOK, status)

	var updated struct {
		Status        string `json:"status"`
		RecentChanges []struct {
			Field string `json:"field"`
			From  string `json:"from"`
			To    string `json:"to"`
		} `json:"recent_changes"`
	}
	require.NoError(t, json.Unmarshal(env.Project, &updated))
	require.Equal(t, "In Progress", updated.Status)
	require.Len(t, updated.RecentChanges, 1)
	require.Equal(t, "status", updated.RecentChanges[0].Field)

	status, env = client.do(http.MethodGet, "/api/v1/project/status", nil)
	require.Equal(t, http.StatusOK, status)
	var report []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report, 12)

	status, env = client.do(http.MethodGet, "/api/v1/recent/projects", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = client.do(http.MethodDelete, "/api/v1/delete/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = client.do(http.MethodDelete, "/api/v1/delete/projects/"+created.ID, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Project not found", env.Message)
}

func TestGuardedRoutesRequireSession(t *testing.T) {
	client, _, _ := newTestAPI(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/verify"},
		{http.MethodDelete, "/api/v1/logout"},
		{http.MethodPost, "/api/v1/resend/otp"},
		{http.MethodPost, "/api/v1/add/projects"},
		{http.MethodGet, "/api/v1/get/projects"},
		{http.MethodGet, "/api/v1/project/status"},
		{http.MethodGet, "/api/v1/recent/projects"},
	} {
		status, env := client.do(route.method, route.path, gin.H{})
		require.Equal(t, http.StatusUnauthorized, status, route.path)
		require.Equal(t, "Please login to access this resource", env.Message, route.path)
	}
}
