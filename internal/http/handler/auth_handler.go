package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/http/middleware"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/service"
)

// AuthHandler exposes the registration, verification, login, and
// password-reset endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// sessionUser is the sanitized projection attached to every
// identity-establishing response. The password hash never appears.
type sessionUser struct {
	ID        string `json:"_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
	Token     string `json:"token"`
}

// Signup registers a new user and issues a first session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondWithSession(c, http.StatusCreated, "OTP sent to your email, please verify your account", result)
}

// Verify consumes the pending OTP for the authenticated caller.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please login to access this resource"})
		return
	}

	var req struct {
		OTP json.Number `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide otp"})
		return
	}
	code, err := req.OTP.Int64()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide otp"})
		return
	}

	result, err := h.Auth.VerifyOTP(c.Request.Context(), user.ID, int(code))
	if err != nil {
		respondError(c, err)
		return
	}

	respondWithSession(c, http.StatusOK, "Account verified successfully", result)
}

// Login authenticates by email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide email and password"})
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondWithSession(c, http.StatusOK, "Login successfully", result)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// ResendOTP rotates and re-delivers the verification code.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please login to access this resource"})
		return
	}

	if err := h.Auth.ResendOTP(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent to your email, please verify your account"})
}

// ForgotPassword mails a reset link to a registered address.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide email"})
		return
	}

	if err := h.Auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reset link sent to your email"})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide token and password"})
		return
	}

	if err := h.Auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

// respondWithSession sets the session cookie and writes the standard
// success envelope with the sanitized user projection.
func respondWithSession(c *gin.Context, status int, message string, result service.AuthResult) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "token",
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data": sessionUser{
			ID:        result.User.ID.Hex(),
			FirstName: result.User.FirstName,
			LastName:  result.User.LastName,
			FullName:  result.User.FullName,
			Email:     result.User.Email,
			Role:      result.User.Role,
			Verified:  result.User.Verified,
			Token:     result.Token,
		},
	})
}

func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Status, gin.H{"success": false, "message": svcErr.Message})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
}
