package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
)

// AuthHandler exposes the operator session behind the bearer token
type AuthHandler struct {
	console *services.ConsoleService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(console *services.ConsoleService) *AuthHandler {
	return &AuthHandler{
		console: console,
	}
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	resp := gin.H{
		"subject":    session.Subject,
		"role":       session.Role,
		"privileged": session.Privileged(),
	}
	if !session.ExpiresAt.IsZero() {
		resp["expiresAt"] = session.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /auth/logout. Any in-flight or pending draw of the
// operator is abandoned; the token itself stays valid until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	ended := h.console.EndSession(session)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out", "sessionEnded": ended})
}
