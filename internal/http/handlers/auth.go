package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"citibike/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (a API) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	if a.Admin.PasswordHash == "" {
		respondError(c, http.StatusServiceUnavailable, "auth_disabled", "admin login is not configured", nil)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.Admin.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(a.Admin.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", "wrong username or password", nil)
		return
	}

	token, err := middleware.IssueToken(a.Admin.JWTSecret, a.Admin.Username, "admin", tokenTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "cannot issue token", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
	})
}
