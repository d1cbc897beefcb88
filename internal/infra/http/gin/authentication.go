package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalContextKey = "deskhub.principal"

// principal is the authenticated caller extracted from a bearer token.
// Token issuance and verification keys belong to the auth service; this
// layer only validates and unpacks.
type principal struct {
	ID           string
	Name         string
	IsAdmin      bool
	Capabilities []string
}

func (p principal) Can(capability string) bool {
	capability = strings.ToLower(strings.TrimSpace(capability))
	if capability == "" {
		return false
	}
	for _, c := range p.Capabilities {
		if strings.ToLower(c) == capability {
			return true
		}
	}
	return false
}

type AuthMiddleware struct {
	Secret []byte
	Logger *slog.Logger
}

// Handle attaches a principal when a valid bearer token is present and
// otherwise lets the request continue anonymously; the route handlers decide
// whether authentication is mandatory.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Secret) == 0 {
		c.Next()
		return
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.Secret, nil
	})
	if err != nil || !parsed.Valid {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		c.Next()
		return
	}

	p := principal{}
	if sub, ok := claims["sub"].(string); ok {
		p.ID = sub
	}
	if name, ok := claims["name"].(string); ok {
		p.Name = name
	}
	if isAdmin, ok := claims["is_admin"].(bool); ok {
		p.IsAdmin = isAdmin
	}
	if raw, ok := claims["capabilities"].([]any); ok {
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				p.Capabilities = append(p.Capabilities, s)
			}
		}
	}
	if p.ID != "" {
		setPrincipal(c, p)
	}
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireCapability enforces authentication plus one capability before any
// handler logic runs.
func requireCapability(c *gin.Context, capability string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if capability != "" && !p.Can(capability) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
