// middleware/authenticate.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/workforcehq/aegis/config"
	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
)

// AccessClaims are the JWT claims issued by the identity provider.
type AccessClaims struct {
	jwt.StandardClaims
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// Authenticate verifies the bearer token and places the decoded principal
// on the request context for the authorize middleware.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			_ = c.Error(aegis_errors.ErrAuthTokenMissing)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := &AccessClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(config.GetString("auth.jwtSecret")), nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Rejected invalid token", zap.Error(err), zap.String("ip", c.ClientIP()))
			_ = c.Error(aegis_errors.ErrAuthTokenInvalid)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("email", claims.Email)
		c.Next()
	}
}
