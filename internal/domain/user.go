package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleAdmin is assigned to every user at registration; roles are not
// user-settable afterwards.
const RoleAdmin = "Admin"

// User represents a registered account. PasswordHash is stored with
// bson omitempty and excluded from every read path except the login
// lookup, so it never leaks into handler responses.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName        string             `bson:"first_name" json:"first_name"`
	LastName         string             `bson:"last_name" json:"last_name"`
	FullName         string             `bson:"full_name" json:"full_name"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"password,omitempty" json:"-"`
	Role             string             `bson:"role" json:"role"`
	Verified         bool               `bson:"verified" json:"verified"`
	OTP              *int               `bson:"otp,omitempty" json:"-"`
	OTPExpiry        *time.Time         `bson:"otp_expiry,omitempty" json:"-"`
	ResetTokenHash   *string            `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiry *time.Time         `bson:"reset_token_expiry,omitempty" json:"-"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// SetOTP stores a pending verification code together with its expiry.
// Both fields always move together.
func (u *User) SetOTP(code int, expiry time.Time) {
	u.OTP = &code
	u.OTPExpiry = &expiry
}

// ClearOTP removes any pending verification code.
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpiry = nil
}

// SetResetToken stores the hash of an issued reset credential and its
// validity bound. The raw credential is never persisted.
func (u *User) SetResetToken(hash string, expiry time.Time) {
	u.ResetTokenHash = &hash
	u.ResetTokenExpiry = &expiry
}

// ClearResetToken consumes the pending reset credential.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
}
