package middleware

import (
	"context"  // Context for role lookups
	"net/http" // HTTP status codes

	"marketplace/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// Capability is what a caller must hold to reach a route
type Capability int

const (
	Public        Capability = iota // Anyone
	Authenticated                   // Any caller with a valid token
	Seller                          // Verified seller role
	Admin                           // Admin role
)

// Policy maps "METHOD /route/:pattern" to the capability it requires
type Policy map[string]Capability

// PolicyKey builds the lookup key for a route
func PolicyKey(method, path string) string {
	return method + " " + path // e.g. "PATCH /order/:id"
}

// RoleResolver reads a user's current role from the store
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (domain.Role, error)
}

// Gate enforces the policy table. Roles are read from the store on every
// request so a promotion or demotion applies immediately.
func Gate(policy Policy, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath() // Matched route pattern
		// Unmatched paths fall through to gin's 404
		if route == "" {
			c.Next() // Let NoRoute answer
			return
		}
		capability, ok := policy[PolicyKey(c.Request.Method, route)] // Look up the route
		// Routes nobody declared are closed
		if !ok {
			deny(c, http.StatusForbidden, "forbidden", "route is not accessible")
			return
		}
		// Public routes need no identity
		if capability == Public {
			c.Next() // Proceed to the handler
			return
		}
		email, ok := Email(c) // Caller identity set by Identity
		// Check if the caller is authenticated
		if !ok {
			deny(c, http.StatusUnauthorized, "unauthorized", "Unauthorized access")
			return
		}
		// Authenticated routes stop here
		if capability == Authenticated {
			c.Next() // Proceed to the handler
			return
		}
		role, err := roles.ResolveRole(context.WithoutCancel(c.Request.Context()), email) // Fresh role from the store
		if err != nil {
			deny(c, http.StatusInternalServerError, "internal", "internal server error")
			return
		}
		// Compare the stored role with the required capability
		if (capability == Seller && role != domain.RoleSeller) || (capability == Admin && role != domain.RoleAdmin) {
			deny(c, http.StatusForbidden, "forbidden", "Forbidden access")
			return
		}
		c.Next() // Role is sufficient
	}
}

// deny aborts with the shared error envelope
func deny(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code}) // Abort with status
}
