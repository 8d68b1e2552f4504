package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"coopfund/internal/models"

	"github.com/gin-gonic/gin"
)

// RoleChecker reports whether a wallet holds a capability role.
type RoleChecker interface {
	HasRole(ctx context.Context, wallet string, role models.Role) (bool, error)
}

// AuthMiddleware validates JWT tokens and protects routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Validate token
		claims, err := ValidateToken(tokenString)
		if err != nil {
			log.Printf("Auth Debug: Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid or expired token",
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		// Set member information in context
		c.Set("wallet_address", claims.WalletAddress)
		c.Set("nickname", claims.Nickname)

		c.Next()
	}
}

// RoleMiddleware gates a route group behind a capability role. Must run
// after AuthMiddleware.
func RoleMiddleware(checker RoleChecker, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, ok := GetWalletAddress(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		has, err := checker.HasRole(c.Request.Context(), wallet, role)
		if err != nil {
			log.Printf("Role check failed for %s: %v", wallet, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify permissions"})
			c.Abort()
			return
		}
		if !has {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetWalletAddress retrieves the wallet address from the context
func GetWalletAddress(c *gin.Context) (string, bool) {
	addr, exists := c.Get("wallet_address")
	if !exists {
		return "", false
	}

	address, ok := addr.(string)
	return address, ok
}
