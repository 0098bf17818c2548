package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/stats" // Admin totals
	"marketplace/internal/utils" // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// AdminStatHandler returns user, product and order totals with revenue
func AdminStatHandler(st *stats.Service, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)        // Detached store context
		var cached stats.Snapshot // Cached totals
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, utils.KeyAdminStat, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"stats": cached, "cached": true}) // Indicate response is from cache
			return
		}
		snap, err := st.Snapshot(ctx)
		if err != nil {
			respondError(c, log, err)
			return
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, utils.KeyAdminStat, snap, utils.AdminStatTTL)
		c.JSON(http.StatusOK, gin.H{"stats": snap, "cached": false}) // Indicate response is not from cache
	}
}
