package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-users/internal/domain"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
	identityKey        = "identity"
)

// AccessTokenVerifier validates access tokens
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*domain.TokenClaims, error)
}

// AuthMiddleware validates the access token from the accessToken cookie or the
// Authorization header and stores the caller identity in the context
func AuthMiddleware(verifier AccessTokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := verifier.VerifyAccessToken(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid access token")
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func identityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Identity{}
}
