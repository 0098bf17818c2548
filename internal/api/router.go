package api

import (
	"net/http" // HTTP status codes

	"marketplace/internal/catalog"    // Product store
	"marketplace/internal/config"     // Custom package for configuration
	"marketplace/internal/inventory"  // Stock ledger
	"marketplace/internal/middleware" // Custom package for middleware
	"marketplace/internal/orders"     // Order lifecycle and views
	"marketplace/internal/roles"      // Role ledger
	"marketplace/internal/stats"      // Admin totals

	"github.com/gin-gonic/gin"                                                     // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp"                      // Default metrics handler
	"github.com/redis/go-redis/v9"                                                 // Redis client
	"github.com/sirupsen/logrus"                                                   // Logrus for structured logging
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin" // Request spans
	"gorm.io/gorm"                                                                 // GORM ORM library
)

// Deps are the services the HTTP layer is built from
type Deps struct {
	Config  *config.Config      // Application configuration
	Log     *logrus.Logger      // Shared logger
	DB      *gorm.DB            // Store handle, used by the health check
	Redis   *redis.Client       // Read cache, nil disables caching
	Roles   *roles.Ledger       // Users and roles
	Stock   *inventory.Ledger   // Stock adjustments
	Orders  *orders.Lifecycle   // Order state machine
	Views   *orders.ViewBuilder // Order dashboards
	Catalog *catalog.Catalog    // Products
	Stats   *stats.Service      // Admin totals
	Metrics http.Handler        // /metrics handler, promhttp default when nil
}

// Route binds a handler to a path and the capability needed to reach it
type Route struct {
	Method     string                // HTTP method
	Path       string                // Gin route pattern
	Capability middleware.Capability // Required capability
	Handler    gin.HandlerFunc       // Endpoint
}

// Routes is the single table both the router and the access gate read
func Routes(d Deps) []Route {
	metrics := d.Metrics // Prometheus scrape handler
	if metrics == nil {
		metrics = promhttp.Handler() // Fall back to the default registry
	}
	return []Route{
		// Users and roles
		{http.MethodPost, "/user/:email", middleware.Public, SignInHandler(d.Roles, d.Log)},
		{http.MethodPatch, "/user/:email", middleware.Authenticated, RequestPromotionHandler(d.Roles, d.Log)},
		{http.MethodPatch, "/user/role/:email", middleware.Admin, DecideRoleHandler(d.Roles, d.Log)},
		{http.MethodGet, "/user/role/:email", middleware.Public, ResolveRoleHandler(d.Roles, d.Log)},
		{http.MethodGet, "/users/:email", middleware.Admin, ListUsersHandler(d.Roles, d.Log)},

		// Products and stock
		{http.MethodPost, "/product", middleware.Seller, CreateProductHandler(d.Catalog, d.Roles, d.Redis, d.Log)},
		{http.MethodGet, "/products", middleware.Public, ListProductsHandler(d.Catalog, d.Redis, d.Log)},
		{http.MethodGet, "/products/seller", middleware.Seller, SellerProductsHandler(d.Catalog, d.Log)},
		{http.MethodGet, "/product/:id", middleware.Public, GetProductHandler(d.Catalog, d.Redis, d.Log)},
		{http.MethodPut, "/product/:id", middleware.Seller, UpdateProductHandler(d.Catalog, d.Redis, d.Log)},
		{http.MethodDelete, "/product/:id", middleware.Seller, DeleteProductHandler(d.Catalog, d.Redis, d.Log)},
		{http.MethodPatch, "/product/quantity/:id", middleware.Authenticated, AdjustQuantityHandler(d.Stock, d.Redis, d.Log)},
		{http.MethodGet, "/product/movements/:id", middleware.Seller, MovementsHandler(d.Catalog, d.Stock, d.Log)},

		// Orders
		{http.MethodPost, "/orders", middleware.Authenticated, PlaceOrderHandler(d.Orders, d.Redis, d.Log)},
		{http.MethodGet, "/orders", middleware.Authenticated, CustomerOrdersHandler(d.Views, d.Log)},
		{http.MethodGet, "/manage-orders", middleware.Seller, SellerOrdersHandler(d.Views, d.Log)},
		{http.MethodPatch, "/order/:id", middleware.Seller, AdvanceOrderHandler(d.Orders, d.Log)},
		{http.MethodDelete, "/order/:id", middleware.Authenticated, CancelOrderHandler(d.Orders, d.Redis, d.Log)},

		// Administration
		{http.MethodGet, "/admin-stat", middleware.Admin, AdminStatHandler(d.Stats, d.Redis, d.Log)},

		// Session
		{http.MethodPost, "/jwt", middleware.Public, IssueTokenHandler(d.Config, d.Log)},
		{http.MethodGet, "/logout", middleware.Public, LogoutHandler(d.Config)},

		// Operations
		{http.MethodGet, "/metrics", middleware.Public, gin.WrapH(metrics)},
		{http.MethodGet, "/healthz", middleware.Public, HealthHandler(d.DB)},
	}
}

// NewRouter builds the gin engine with the shared middleware chain
func NewRouter(d Deps) *gin.Engine {
	// Set Mode to Release if in production
	if d.Config.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New() // Gin router instance
	r.Use(
		gin.Recovery(),                           // Turn panics into 500s
		otelgin.Middleware(d.Config.ServiceName), // One span per request
		middleware.RequestLogger(d.Log),          // Access log
		middleware.CORS(d.Config.CORSOrigins),    // Browser origins
		middleware.Identity(d.Config.JWTSecret),  // Caller from the token cookie
	)

	routes := Routes(d)                            // Route table
	policy := make(middleware.Policy, len(routes)) // Gate policy built from it
	for _, rt := range routes {
		policy[middleware.PolicyKey(rt.Method, rt.Path)] = rt.Capability // Capability per route
	}
	r.Use(middleware.Gate(policy, d.Roles)) // Enforce capabilities
	for _, rt := range routes {
		r.Handle(rt.Method, rt.Path, rt.Handler) // Register the endpoint
	}
	return r
}

// HealthHandler reports liveness and store reachability
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB() // Underlying pool
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context()) // Round trip to the store
		}
		// Report the store as down when the ping fails
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"}) // Healthy
	}
}
