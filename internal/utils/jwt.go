package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Claims carries the caller's email; the role is never put on the token
type Claims struct {
	Email                string `json:"email"` // Identity of the caller
	jwt.RegisteredClaims                       // Standard JWT claims
}

// GenerateJWT creates a signed identity token for email valid for ttl
func GenerateJWT(email, secret string, ttl time.Duration) (string, error) {
	// Refuse to sign an anonymous token
	if email == "" {
		return "", errors.New("email is required") // Nothing to identify
	}
	now := time.Now() // Single clock read for both stamps
	// Set token claims
	claims := Claims{
		Email: email, // Custom claim for the caller
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,                            // Subject mirrors the email
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})) // Only accept HS256
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Email != "" {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrTokenInvalidClaims
}
