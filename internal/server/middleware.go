package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/receiptorhq/receiptor/internal/observability/obscontext"
)

// AuthRequired enforces the opaque bearer credential on every API route.
// When API_TOKEN is configured the presented token must match it; either
// way, an absent or empty token is rejected.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if expected := s.cfg.APIToken; expected != "" {
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}

		ctx := obscontext.WithActor(c.Request.Context(), "user")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
