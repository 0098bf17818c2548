package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/apperr"     // Error taxonomy
	"marketplace/internal/domain"     // Importing domain models
	"marketplace/internal/middleware" // Caller identity
	"marketplace/internal/roles"      // Role ledger

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// SignInRequest is the profile sent on first sign-in
type SignInRequest struct {
	Name  string `json:"name"`  // Display name
	Photo string `json:"photo"` // Avatar URL
}

// RoleRequest carries an admin's decision
type RoleRequest struct {
	Role domain.Role `json:"role" binding:"required"` // New role
}

// SignInHandler creates the user on first sign-in and returns the stored
// record unchanged afterwards
func SignInHandler(rl *roles.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignInRequest // Body is optional
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, log, "Invalid request") // Malformed profile
				return
			}
		}
		user, created, err := rl.SignIn(storeCtx(c), roles.Profile{
			Email: c.Param("email"), // Identity comes from the path
			Name:  req.Name,         // Display name
			Photo: req.Photo,        // Avatar
		})
		if err != nil {
			respondError(c, log, err) // Store failure
			return
		}
		status := http.StatusOK // Existing user
		if created {
			status = http.StatusCreated // First sign-in
		}
		c.JSON(status, user)
	}
}

// RequestPromotionHandler lets a customer ask to become a seller
func RequestPromotionHandler(rl *roles.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.Email(c) // Set by the gate
		// Only the account owner may ask
		if caller != c.Param("email") {
			respondError(c, log, apperr.Forbidden("you may only request a promotion for yourself"))
			return
		}
		user, err := rl.RequestPromotion(storeCtx(c), caller)
		if err != nil {
			respondError(c, log, err) // NotFound or Conflict
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DecideRoleHandler sets a user's role on an admin's behalf
func DecideRoleHandler(rl *roles.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RoleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "role is required") // Missing role
			return
		}
		caller, _ := middleware.Email(c) // Acting admin
		user, err := rl.DecideRole(storeCtx(c), caller, c.Param("email"), req.Role)
		if err != nil {
			respondError(c, log, err) // Forbidden, Invalid or NotFound
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ResolveRoleHandler reports the stored role, customer for unknown users
func ResolveRoleHandler(rl *roles.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := rl.ResolveRole(storeCtx(c), c.Param("email"))
		if err != nil {
			respondError(c, log, err) // Store failure
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": role})
	}
}

// ListUsersHandler returns every user except the one in the path
func ListUsersHandler(rl *roles.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := rl.ListExcept(storeCtx(c), c.Param("email"))
		if err != nil {
			respondError(c, log, err) // Store failure
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
	}
}
