package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/config"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/jwt"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/mailer"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/otp"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/repository"
)

// AuthResult carries the outcome of an identity-establishing event.
// Every successful signup, login, and OTP verification re-mints a
// session token.
type AuthResult struct {
	User    domain.User
	Token   string
	Expires time.Time
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	FullName  string
	Email     string
	Password  string
}

// AuthService implements the registration, verification, login, and
// password-reset lifecycle.
type AuthService struct {
	users  repository.UserRepository
	mail   mailer.Sender
	tokens *jwt.Issuer
	cfg    config.Config
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, mail mailer.Sender, tokens *jwt.Issuer, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, mail: mail, tokens: tokens, cfg: cfg, logger: logger}
}

// Register creates an unverified user with a fresh OTP, delivers the
// code by mail, and issues a session. A failed mail send fails the
// request, but the created user remains; the resend endpoint is the
// recovery path.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, newValidationError("Please provide email and password")
	}
	if len(in.Password) < 8 {
		return AuthResult{}, newValidationError("Password should be at least 8 characters")
	}

	// Advisory pre-check for a friendlier message; the unique index on
	// email is the actual guarantor.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, newConflictError("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("check existing user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return AuthResult{}, err
	}

	user := domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         domain.RoleAdmin,
	}
	user.SetOTP(code, time.Now().Add(s.cfg.OTPExpiry))

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, newConflictError("User already exists")
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.mail.Send(ctx, created.Email, "Verify your account", fmt.Sprintf("Your OTP is %d", code)); err != nil {
		return AuthResult{}, fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", created.ID.Hex()),
		zap.String("email", created.Email),
	)
	return s.issueSession(created)
}

// Login authenticates by email and password. Lookup and comparison
// failures share one message.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, newValidationError("Please provide email and password")
	}

	user, err := s.users.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, newAuthError("Invalid Email or Password")
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, newAuthError("Invalid Email or Password")
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.Hex()))
	return s.issueSession(user)
}

// VerifyOTP checks the candidate code for an authenticated caller.
// Wrong and expired codes produce the same message.
func (s *AuthService) VerifyOTP(ctx context.Context, userID primitive.ObjectID, code int) (AuthResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, newUnauthorizedError("Please login to access this resource")
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if user.OTP == nil || user.OTPExpiry == nil || *user.OTP != code || !user.OTPExpiry.After(time.Now()) {
		return AuthResult{}, newAuthError("Invalid OTP or has been Expired")
	}

	user.ClearOTP()
	user.Verified = true
	if err := s.users.Update(ctx, &user); err != nil {
		return AuthResult{}, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("account verified", zap.String("user_id", user.ID.Hex()))
	return s.issueSession(user)
}

// ResendOTP rotates the pending code and re-delivers it. Two
// concurrent resends race last-writer-wins; the most recent code is
// the valid one.
func (s *AuthService) ResendOTP(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newNotFoundError("User not found, please register again")
		}
		return fmt.Errorf("find user: %w", err)
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}

	user.SetOTP(code, time.Now().Add(s.cfg.OTPExpiry))
	if err := s.users.Update(ctx, &user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.mail.Send(ctx, user.Email, "Verify your account", fmt.Sprintf("Your OTP is %d", code)); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("otp resent", zap.String("user_id", user.ID.Hex()))
	return nil
}

// ForgotPassword mints a time-bounded reset credential, stores only
// its hash, and mails a link embedding the raw credential.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return newValidationError("Please provide email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newValidationError("Please provide a valid email")
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, expiry, err := s.tokens.ResetToken(user.ID.Hex())
	if err != nil {
		return err
	}

	user.SetResetToken(jwt.HashToken(token), expiry)
	if err := s.users.Update(ctx, &user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	link := fmt.Sprintf("%s/reset/password/%s", strings.TrimRight(s.cfg.AppURL, "/"), token)
	body := fmt.Sprintf("Click the link to reset your password: %s\nThe link is valid for 24 hours.", link)
	if err := s.mail.Send(ctx, user.Email, "Reset your password", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.logger.Info("password reset requested", zap.String("user_id", user.ID.Hex()))
	return nil
}

// ResetPassword consumes a reset credential exactly once: the stored
// hash is cleared in the same write that replaces the password, so a
// leaked raw token cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if rawToken == "" || password == "" {
		return newValidationError("Please provide token and password")
	}
	if len(password) < 8 {
		return newValidationError("Password should be at least 8 characters")
	}

	user, err := s.users.FindByResetTokenHash(ctx, jwt.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newAuthError("Invalid or expired token")
		}
		return fmt.Errorf("find user by reset token: %w", err)
	}

	if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(time.Now()) {
		return newAuthError("Invalid or expired token")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	user.ClearResetToken()
	if err := s.users.Update(ctx, &user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.Hex()))
	return nil
}

// UserByID resolves a session subject to a stored user. Used by the
// access guard.
func (s *AuthService) UserByID(ctx context.Context, id primitive.ObjectID) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, newUnauthorizedError("Please login to access this resource")
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueSession(user domain.User) (AuthResult, error) {
	token, expires, err := s.tokens.Session(user.ID.Hex())
	if err != nil {
		return AuthResult{}, err
	}
	user.PasswordHash = ""
	return AuthResult{User: user, Token: token, Expires: expires}, nil
}
