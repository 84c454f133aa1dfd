package middleware

import (
	"net/http"
	"strings"

	"campus-cravings/helpers"
	"campus-cravings/models"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identify resolves the caller from the token header or a bearer
// Authorization header. Requests without a token continue as guests. A token
// that does not validate, or is not an access token, is rejected.
func Identify(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientToken := tokenFrom(c.Request)
		if clientToken == "" {
			c.Set(identityKey, models.Identity{})
			c.Next()
			return
		}
		claims, err := helpers.ValidateToken(secret, clientToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if claims.Type != helpers.AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "an access token is required"})
			return
		}
		c.Set(identityKey, models.Identity{
			UserID: claims.Uid,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
		})
		c.Next()
	}
}

func tokenFrom(r *http.Request) string {
	if token := r.Header.Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Browsers cannot set headers on websocket upgrades.
	return r.URL.Query().Get("token")
}

// IdentityFrom returns the caller set by Identify, or a guest.
func IdentityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).Registered() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if !identity.Registered() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		if !identity.Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
