package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/polyblog/backend/internal/model"
	"github.com/polyblog/backend/internal/security"
	"github.com/polyblog/backend/internal/service"
)

const authUserKey = "auth_user"

// AuthMiddleware authenticates from the access_token cookie, falling back to
// a Bearer header for non-browser clients.
func AuthMiddleware(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, _ := c.Cookie(accessCookieName)
		if token == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}
		}
		if token == "" {
			writeAuthError(c, service.ErrInvalidToken)
			c.Abort()
			return
		}

		claims, err := svc.Tokens().Verify(token, security.TokenTypeAccess)
		if err != nil {
			writeAuthError(c, service.ErrInvalidToken)
			c.Abort()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeAuthError(c, service.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(authUserKey, &model.AuthUser{ID: userID, Email: claims.Email})
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
