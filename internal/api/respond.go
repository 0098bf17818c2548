package api

import (
	"context" // Detached store contexts

	"marketplace/internal/apperr" // Error taxonomy

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// respondError answers err with the shared {"error", "code"} envelope
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	kind := apperr.KindOf(err) // Classify once
	// Internal causes are logged here and hidden from the client
	if kind == apperr.KindInternal {
		log.WithFields(logrus.Fields{
			"route": c.FullPath(), // Matched route
			"error": err.Error(),  // Full cause
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"error": apperr.Message(err), // Client-safe message
		"code":  string(kind),        // Machine-readable kind
	})
}

// badRequest answers a malformed body
func badRequest(c *gin.Context, log *logrus.Logger, msg string) {
	respondError(c, log, apperr.Invalid(msg)) // Invalid maps to 400
}

// storeCtx detaches store work from the client connection so a disconnect
// cannot cut a unit of work in half
func storeCtx(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context()) // Keep values, drop cancellation
}
