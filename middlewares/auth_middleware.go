package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/utils"
)

const (
	ContextUserID       = "user_id"
	ContextRestaurantID = "restaurant_id"
	ContextToken        = "token"
	ContextClaims       = "claims"
)

// AuthMiddleware requires a valid owner bearer token.
func AuthMiddleware(jwt *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid token format"))
			c.Abort()
			return
		}

		authorize(c, jwt, strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
	}
}

func authorize(c *gin.Context, jwt *utils.JWTManager, tokenString string) {
	claims, err := jwt.ParseToken(tokenString)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		c.Abort()
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRestaurantID, claims.RestaurantID)
	c.Set(ContextToken, tokenString)
	c.Set(ContextClaims, claims)
	c.Next()
}

// Claims returns the token claims stored by the auth middlewares.
func Claims(c *gin.Context) *utils.CustomClaims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*utils.CustomClaims); ok {
			return claims
		}
	}
	return nil
}
