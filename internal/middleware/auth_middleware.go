package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/pkg/jwt"
)

// PartnerContextKey is the key used to store partner information in Gin context
const PartnerContextKey = "partner"

// PartnerContext represents the authenticated partner's information
type PartnerContext struct {
	PartnerID string   `json:"partner_id"`
	Scopes    []string `json:"scopes"`
}

// AuthMiddleware creates a middleware that validates partner JWT tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		})

		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Auth failed: missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			return
		}

		// Check Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			log.Warn("Auth failed: invalid authorization format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				log.Warn("Auth failed: token expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "token_expired",
					"message": "Partner token has expired",
					"code":    "TOKEN_EXPIRED",
				})
				return
			}
			log.WithError(err).Warn("Auth failed: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid partner token",
				"code":    "INVALID_TOKEN",
			})
			return
		}

		c.Set(PartnerContextKey, PartnerContext{
			PartnerID: claims.PartnerID,
			Scopes:    claims.Scopes,
		})

		c.Next()
	}
}

// RequireScope creates a middleware that checks the partner token carries scope
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		partner, exists := GetPartnerContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Partner context not found. Auth middleware may not be applied.",
				"code":    "MISSING_PARTNER_CONTEXT",
			})
			return
		}

		for _, s := range partner.Scopes {
			if s == scope {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Token does not grant " + scope,
			"code":    "INSUFFICIENT_SCOPE",
		})
	}
}

// GetPartnerContext retrieves the partner context from Gin context
func GetPartnerContext(c *gin.Context) (PartnerContext, bool) {
	value, exists := c.Get(PartnerContextKey)
	if !exists {
		return PartnerContext{}, false
	}

	partner, ok := value.(PartnerContext)
	return partner, ok
}
