package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const userContextKey = "eyeonstreet_user"

// SessionMiddleware - middleware для проверки сессионного токена оператора
func SessionMiddleware(svc *Service, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
			return
		}

		claims, err := svc.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			log.WithError(err).Warn("Rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(userContextKey, claims)
		c.Next()
	}
}

// ClaimsFromContext возвращает сессию текущего запроса
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
