package api

import (
	"context"  // Context for cache operations
	"net/http" // HTTP status codes

	"marketplace/internal/apperr"     // Error taxonomy
	"marketplace/internal/catalog"    // Product store
	"marketplace/internal/domain"     // Importing domain models
	"marketplace/internal/inventory"  // Stock ledger
	"marketplace/internal/middleware" // Caller identity
	"marketplace/internal/roles"      // Role ledger
	"marketplace/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// UpdateProductRequest is the edit body; quantity is only read to refuse it
type UpdateProductRequest struct {
	catalog.ProductDetails
	// Must be absent, stock moves via PATCH /product/quantity/:id
	Quantity *int `json:"quantity"`
}

// QuantityRequest is the manual stock adjustment body
type QuantityRequest struct {
	QuantityToUpdate int                 `json:"quantityToUpdate" binding:"required,gt=0"` // Units to move
	Status           inventory.Direction `json:"status" binding:"required"`                // increase or decrease
}

// CreateProductHandler lists a new product for the calling seller
func CreateProductHandler(cat *catalog.Catalog, rl *roles.Ledger, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.ProductInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "Invalid request") // Malformed product
			return
		}
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Seller identity
		user, err := rl.Get(ctx, email) // Seller display name
		if err != nil {
			respondError(c, log, err)
			return
		}
		product, err := cat.Create(ctx, domain.Seller{Name: user.Name, Email: email}, req)
		if err != nil {
			respondError(c, log, err) // Invalid input or store failure
			return
		}
		invalidate(ctx, rdb, log, product.ID) // Product list changed
		c.JSON(http.StatusCreated, product)
	}
}

// ListProductsHandler returns every product, served from cache when warm
func ListProductsHandler(cat *catalog.Catalog, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)          // Detached store context
		var cached []domain.Product // Cached list
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, utils.KeyAllProducts, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		products, err := cat.List(ctx)
		if err != nil {
			respondError(c, log, err)
			return
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, utils.KeyAllProducts, products, utils.ProductCacheTTL)
		c.JSON(http.StatusOK, products)
	}
}

// SellerProductsHandler returns the calling seller's own products
func SellerProductsHandler(cat *catalog.Catalog, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, _ := middleware.Email(c) // Seller identity
		products, err := cat.ListBySeller(storeCtx(c), email)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GetProductHandler returns one product, served from cache when warm
func GetProductHandler(cat *catalog.Catalog, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)          // Detached store context
		id := c.Param("id")         // Product ID
		key := utils.ProductKey(id) // Cache key
		var cached domain.Product   // Cached product
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		product, err := cat.Get(ctx, id)
		if err != nil {
			respondError(c, log, err) // NotFound
			return
		}
		_ = utils.SetCache(ctx, rdb, key, product, utils.ProductCacheTTL) // Warm the cache
		c.JSON(http.StatusOK, product)
	}
}

// UpdateProductHandler replaces a product's details on its seller's behalf.
// Stock is never set here; an absolute quantity from a stale form would
// undo purchases made since it was loaded.
func UpdateProductHandler(cat *catalog.Catalog, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProductRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "Invalid request")
			return
		}
		// Refuse stock changes on the edit route
		if req.Quantity != nil {
			badRequest(c, log, "quantity cannot be edited, use PATCH /product/quantity/:id")
			return
		}
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Seller identity
		product, err := cat.Update(ctx, email, c.Param("id"), req.ProductDetails)
		if err != nil {
			respondError(c, log, err) // Forbidden, NotFound or Invalid
			return
		}
		invalidate(ctx, rdb, log, product.ID)
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProductHandler removes a product on its seller's behalf
func DeleteProductHandler(cat *catalog.Catalog, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Seller identity
		id := c.Param("id")             // Product ID
		if err := cat.Delete(ctx, email, id); err != nil {
			respondError(c, log, err) // Forbidden or NotFound
			return
		}
		invalidate(ctx, rdb, log, id)
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

// AdjustQuantityHandler moves stock by hand. Only the product's seller may
// do it; decrements never take stock below zero.
func AdjustQuantityHandler(stock *inventory.Ledger, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuantityRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "quantityToUpdate must be a positive number and status is required")
			return
		}
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Caller identity
		id := c.Param("id")             // Product ID
		product, err := stock.AdjustOwned(ctx, email, id, req.QuantityToUpdate, req.Status)
		if err != nil {
			respondError(c, log, err) // Forbidden, NotFound or Conflict
			return
		}
		invalidate(ctx, rdb, log, id)
		c.JSON(http.StatusOK, product)
	}
}

// MovementsHandler lists a product's stock ledger for its seller
func MovementsHandler(cat *catalog.Catalog, stock *inventory.Ledger, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Seller identity
		product, err := cat.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		// Only the owner sees the ledger
		if product.Seller.Email != email {
			respondError(c, log, apperr.Forbidden("only the product's seller may view its stock movements"))
			return
		}
		movements, err := stock.Movements(ctx, product.ID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product, "movements": movements})
	}
}

// invalidate drops cached reads that include the product; a cache failure
// only costs freshness until the TTL runs out
func invalidate(ctx context.Context, rdb *redis.Client, log *logrus.Logger, productID string) {
	if err := utils.InvalidateProduct(ctx, rdb, productID); err != nil {
		log.WithFields(logrus.Fields{"product_id": productID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}
