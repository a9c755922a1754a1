package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ActorKey is the gin context key of the authenticated shared.Actor
const ActorKey = "actor"

// Claims are the bearer token claims issued by the identity service
type Claims struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies the HS256 bearer token and stores the caller as a shared.Actor
func Auth(cfg *config.AuthConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
			return
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc); err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid bearer token", nil)
			return
		}

		role := shared.Role(claims.Role)
		if claims.Subject == "" || !role.IsValid() {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is missing subject or role", nil)
			return
		}

		c.Set(ActorKey, shared.Actor{
			ID:    claims.Subject,
			Name:  claims.Name,
			Role:  role,
			Phone: shared.NormalizePhone(claims.Phone),
		})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			return
		}
		if !slices.Contains(roles, actor.Role) {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Role "+string(actor.Role)+" may not perform this operation", nil)
			return
		}
		c.Next()
	}
}

// GetActor returns the actor stored by Auth
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
