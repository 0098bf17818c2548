package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/config"     // Custom package for configuration
	"marketplace/internal/middleware" // Cookie name
	"marketplace/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// TokenRequest names the identity to sign a token for
type TokenRequest struct {
	Email string `json:"email" binding:"required,email"` // Taken as given, nothing here proves ownership
}

// setTokenCookie writes the identity cookie; maxAge < 0 clears it
func setTokenCookie(c *gin.Context, cfg *config.Config, value string, maxAge int) {
	sameSite := http.SameSiteStrictMode // Same-site front end in development
	if cfg.IsProd {
		sameSite = http.SameSiteNoneMode // Cross-site front end in production
	}
	c.SetSameSite(sameSite)                                                       // Applies to the next cookie
	c.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", cfg.IsProd, true) // HttpOnly, Secure in production
}

// IssueTokenHandler signs an identity token and sets it as an HttpOnly cookie.
// It trusts the posted email; deployments must put an identity provider in
// front of this route.
func IssueTokenHandler(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "a valid email is required")
			return
		}
		token, err := utils.GenerateJWT(req.Email, cfg.JWTSecret, cfg.JWTTTL) // Generate JWT token
		if err != nil {
			log.WithField("error", err.Error()).Error("Failed to generate token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token", "code": "internal"})
			return
		}
		setTokenCookie(c, cfg, token, int(cfg.JWTTTL.Seconds())) // Cookie lives as long as the token
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// LogoutHandler clears the identity cookie
func LogoutHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		setTokenCookie(c, cfg, "", -1) // Expire immediately
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
