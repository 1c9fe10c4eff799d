package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

const sessionKey = "session"

// JWTAuthMiddleware turns a verified bearer token into a models.Session
// stored on the gin context. Without jwt.secret every token is rejected,
// since sessions select per-operator state.
func JWTAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	secret := strings.TrimSpace(cfg.JWT.Secret)
	if secret == "" {
		zap.L().Error("jwt.secret is not set, all bearer tokens will be rejected")
	}

	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
			return
		}

		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token verification is not configured"})
			return
		}

		session, err := utils.SessionFromToken(strings.TrimSpace(authHeader[len(BearerSchema):]), secret)
		if err != nil {
			zap.L().Warn("token rejected", zap.Error(err), zap.String("request_id", RequestID(c)))
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session set by JWTAuthMiddleware.
func SessionFrom(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}
