package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userRoleKey = "userRole"
	userNameKey = "userName"
)

// Claims carried by admin tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for username valid for ttl.
func IssueToken(secret []byte, username, role string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// AuthRequired validates the bearer token and stores its subject and role on
// the context for RequireRoles.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing bearer token", "request_id": GetRequestID(c)})
			return
		}
		tokenString := strings.TrimSpace(raw[len("bearer "):])

		var claims Claims
		_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: invalid token", "request_id": GetRequestID(c)})
			return
		}

		c.Set(userNameKey, claims.Subject)
		c.Set(userRoleKey, claims.Role)
		c.Next()
	}
}
