package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Gurpreetsingh4547/project-peak-api/internal/domain"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/jwt"
	"github.com/Gurpreetsingh4547/project-peak-api/internal/service"
)

const ginCurrentUserKey = "currentUser"

type currentUserKey struct{}

// Auth gates privileged routes: it resolves the session cookie to a
// stored user before any handler runs.
type Auth struct {
	Issuer      *jwt.Issuer
	AuthService *service.AuthService
}

// Authenticate extracts the `token` cookie, verifies it, loads the
// user, and attaches it to both the Gin and request contexts. Every
// not-authenticated outcome is a 401 with the same message.
func (m *Auth) Authenticate(c *gin.Context) {
	token, err := c.Cookie("token")
	if err != nil || token == "" {
		abortUnauthenticated(c)
		return
	}

	subject, err := m.Issuer.ParseSession(token)
	if err != nil {
		abortUnauthenticated(c)
		return
	}

	userID, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		abortUnauthenticated(c)
		return
	}

	user, err := m.AuthService.UserByID(c.Request.Context(), userID)
	if err != nil {
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			c.AbortWithStatusJSON(svcErr.Status, gin.H{"success": false, "message": svcErr.Message})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	ctx := context.WithValue(c.Request.Context(), currentUserKey{}, user)
	c.Request = c.Request.WithContext(ctx)
	c.Set(ginCurrentUserKey, user)

	c.Next()
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Please login to access this resource",
	})
}

// CurrentUser returns the authenticated user attached by Authenticate.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(ginCurrentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}

// CurrentUserFromContext extracts the authenticated user from a
// standard context.
func CurrentUserFromContext(ctx context.Context) (domain.User, bool) {
	value := ctx.Value(currentUserKey{})
	if value == nil {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
