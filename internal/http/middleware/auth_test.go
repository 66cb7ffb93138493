package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/config"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/middleware"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/jwt"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/repository"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/service"
)

func newGuardedRouter(t *testing.T) (*gin.Engine, *repository.MemoryUserRepo, *jwt.Issuer, *bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepo()
	issuer := jwt.NewIssuer("test-secret", time.Hour, time.Hour)
	cfg := config.Config{OTPExpiry: 5 * time.Minute, CookieExpiry: time.Hour, AppURL: "http://localhost:3000"}
	authService := service.NewAuthService(users, nopMailer{}, issuer, cfg, zap.NewNop())
	guard := &middleware.Auth{Issuer: issuer, AuthService: authService}

	reached := false
	router := gin.New()
	router.GET("/protected", guard.Authenticate, func(c *gin.Context) {
		reached = true
		user, ok := middleware.CurrentUser(c)
		require.True(t, ok)
		_, ok = middleware.CurrentUserFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"success": true, "email": user.Email})
	})
	return router, users, issuer, &reached
}

type nopMailer struct{}

func (nopMailer) Send(ctx context.Context, to, subject, body string) error { return nil }

func get(router *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: cookie})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateMissingCookie(t *testing.T) {
	router, _, _, reached := newGuardedRouter(t)

	rec := get(router, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Please login to access this resource"}`, rec.Body.String())
	require.False(t, *reached)
}

func TestAuthenticateTamperedToken(t *testing.T) {
	router, users, issuer, reached := newGuardedRouter(t)

	user, err := users.Create(context.Background(), domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	token, _, err := issuer.Session(user.ID.Hex())
	require.NoError(t, err)

	rec := get(router, token+"x")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, *reached)
}

func TestAuthenticateResetTokenRejected(t *testing.T) {
	router, users, issuer, reached := newGuardedRouter(t)

	user, err := users.Create(context.Background(), domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	token, _, err := issuer.ResetToken(user.ID.Hex())
	require.NoError(t, err)

	// A reset credential must never open a session.
	rec := get(router, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, *reached)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	router, users, issuer, reached := newGuardedRouter(t)

	user, err := users.Create(context.Background(), domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	token, _, err := issuer.Session(user.ID.Hex())
	require.NoError(t, err)
	users.Delete(user.ID)

	rec := get(router, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Please login to access this resource"}`, rec.Body.String())
	require.False(t, *reached)
}

func TestAuthenticateValidSession(t *testing.T) {
	router, users, issuer, reached := newGuardedRouter(t)

	user, err := users.Create(context.Background(), domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	token, _, err := issuer.Session(user.ID.Hex())
	require.NoError(t, err)

	rec := get(router, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *reached)
	require.Contains(t, rec.Body.String(), "a@x.com")
}
