package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// RequestLogger writes one structured access line per request
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start
		c.Next()            // Run the rest of the chain
		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,           // HTTP method
			"path":    c.Request.URL.Path,         // Raw path
			"route":   c.FullPath(),               // Matched pattern
			"status":  c.Writer.Status(),          // Response status
			"latency": time.Since(start).String(), // Time spent
			"email":   c.GetString(EmailKey),      // Caller, if known
		})
		// Server errors are worth a louder line
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}
