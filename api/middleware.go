package api

import (
	"net/http"
	"strings"

	"chatx/auth"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// authMiddleware validates the bearer token and stashes the claims on the
// request context for the handlers.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := ""
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = after
		} else if after, ok := strings.CutPrefix(header, "bearer "); ok {
			token = after
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"data": "missing token"})
			return
		}
		claims, err := auth.ValidateToken(token, s.secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"data": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.CustomClaims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.CustomClaims); ok {
			return claims
		}
	}
	return nil
}
