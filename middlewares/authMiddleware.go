package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"civicgrid-be/lifecycle"
)

const (
	ctxUserID  = "user_id"
	ctxIsStaff = "is_staff"
)

// AuthMiddleware validates the JWT from the auth cookie or the Authorization
// header and stores the actor identity and role flag on the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		isStaff, _ := claims["is_staff"].(bool)

		c.Set(ctxUserID, userID)
		c.Set(ctxIsStaff, isStaff)
		c.Next()
	}
}

// StaffOnly rejects requests from non-staff actors. Must run after
// AuthMiddleware.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isStaff, _ := c.Get(ctxIsStaff); isStaff != true {
			c.JSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentActor returns the actor set by AuthMiddleware.
func CurrentActor(c *gin.Context) (lifecycle.Actor, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return lifecycle.Actor{}, false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		return lifecycle.Actor{}, false
	}
	isStaff, _ := c.Get(ctxIsStaff)
	staff, _ := isStaff.(bool)
	return lifecycle.Actor{UserID: id, IsStaff: staff}, true
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("auth_token"); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}
