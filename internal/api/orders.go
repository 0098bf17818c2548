package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/apperr"     // Error taxonomy
	"marketplace/internal/domain"     // Importing domain models
	"marketplace/internal/middleware" // Caller identity
	"marketplace/internal/orders"     // Order lifecycle and views

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// PlaceOrderRequest is the purchase body. Price and seller are taken from
// the product, and the customer email from the caller's token.
type PlaceOrderRequest struct {
	ProductID string `json:"productId" binding:"required"`     // Product to buy
	Quantity  int    `json:"quantity" binding:"required,gt=0"` // Units
	Address   string `json:"address"`                          // Shipping address
	Customer  struct {
		Name  string `json:"name"`  // Buyer display name
		Photo string `json:"photo"` // Buyer avatar
	} `json:"customer"` // Buyer snapshot
}

// StatusRequest moves an order along its lifecycle
type StatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"` // Target status
}

// PlaceOrderHandler creates an order and takes its units out of stock in
// one step
func PlaceOrderHandler(lc *orders.Lifecycle, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PlaceOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "productId and a positive quantity are required")
			return
		}
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Buyer identity
		order, err := lc.Place(ctx, orders.PlaceRequest{
			ProductID: req.ProductID, // Product to buy
			Quantity:  req.Quantity,  // Units
			Address:   req.Address,   // Shipping address
			Customer: domain.Customer{
				Name:  req.Customer.Name,  // Display name
				Email: email,              // Always the caller
				Photo: req.Customer.Photo, // Avatar
			},
		})
		if err != nil {
			respondError(c, log, err) // NotFound, Conflict or Invalid
			return
		}
		invalidate(ctx, rdb, log, order.ProductID) // Stock changed
		c.JSON(http.StatusCreated, order)
	}
}

// CustomerOrdersHandler lists the caller's purchases
func CustomerOrdersHandler(views *orders.ViewBuilder, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := selfFilter(c, log) // ?email= must be the caller
		if !ok {
			return
		}
		rows, err := views.ForCustomer(storeCtx(c), email)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// SellerOrdersHandler lists orders for the caller's products
func SellerOrdersHandler(views *orders.ViewBuilder, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := selfFilter(c, log) // ?email= must be the caller
		if !ok {
			return
		}
		rows, err := views.ForSeller(storeCtx(c), email)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// AdvanceOrderHandler changes an order's status on its seller's behalf
func AdvanceOrderHandler(lc *orders.Lifecycle, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StatusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, log, "status is required")
			return
		}
		email, _ := middleware.Email(c) // Seller identity
		order, changed, err := lc.Advance(storeCtx(c), email, c.Param("id"), req.Status)
		if err != nil {
			respondError(c, log, err) // NotFound, Forbidden, Invalid or Conflict
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "changed": changed})
	}
}

// CancelOrderHandler deletes an undelivered order and restocks its product
func CancelOrderHandler(lc *orders.Lifecycle, rdb *redis.Client, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := storeCtx(c)              // Detached store context
		email, _ := middleware.Email(c) // Customer or seller identity
		result, err := lc.Cancel(ctx, email, c.Param("id"))
		if err != nil {
			respondError(c, log, err) // NotFound, Conflict or Forbidden
			return
		}
		invalidate(ctx, rdb, log, result.Order.ProductID) // Stock changed
		c.JSON(http.StatusOK, result)
	}
}

// selfFilter resolves the ?email= filter, defaulting to the caller and
// refusing anyone else's
func selfFilter(c *gin.Context, log *logrus.Logger) (string, bool) {
	caller, _ := middleware.Email(c) // Set by the gate
	email := c.DefaultQuery("email", caller)
	if email != caller {
		respondError(c, log, apperr.Forbidden("you may only list your own orders"))
		return "", false
	}
	return email, true
}
