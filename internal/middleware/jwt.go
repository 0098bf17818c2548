package middleware

import (
	"marketplace/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

const (
	TokenCookie = "token" // Cookie carrying the identity token
	EmailKey    = "email" // Context key of the authenticated email
)

// Identity reads the token cookie and stores the caller's email in the
// context. It never rejects a request; Gate decides what anonymous callers
// may reach.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(TokenCookie) // Read the identity cookie
		// No cookie means an anonymous caller
		if err != nil || tokenStr == "" {
			c.Next() // Continue without identity
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		// A bad or expired token is treated like no token
		if err != nil {
			c.Next() // Continue without identity
			return
		}
		c.Set(EmailKey, claims.Email) // Store email in context
		c.Next()                      // Proceed to the next handler
	}
}

// Email returns the authenticated caller, if any
func Email(c *gin.Context) (string, bool) {
	email := c.GetString(EmailKey) // Empty when Identity found no token
	return email, email != ""
}
