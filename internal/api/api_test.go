package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/catalog"
	"marketplace/internal/config"
	"marketplace/internal/domain"
	"marketplace/internal/inventory"
	"marketplace/internal/middleware"
	"marketplace/internal/orders"
	"marketplace/internal/roles"
	"marketplace/internal/stats"
	"marketplace/internal/testutil"
	"marketplace/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	sellerEmail   = "seller@x.com"
	customerEmail = "buyer@x.com"
	adminEmail    = "admin@x.com"
)

type testServer struct {
	router http.Handler
	db     *gorm.DB
	redis  *miniredis.Miniredis
	cfg    *config.Config
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.DB(t)
	log, _ := testutil.Logger()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		ServiceName: "marketplace-test",
		JWTSecret:   "test-secret",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	stock := inventory.NewLedger(gdb, log)
	router := NewRouter(Deps{
		Config:  cfg,
		Log:     log,
		DB:      gdb,
		Redis:   rdb,
		Roles:   roles.NewLedger(gdb, log),
		Stock:   stock,
		Orders:  orders.NewLifecycle(gdb, stock, nil, log),
		Views:   orders.NewViewBuilder(gdb),
		Catalog: catalog.New(gdb, stock, log),
		Stats:   stats.New(gdb),
	})

	testutil.SeedUser(t, gdb, sellerEmail, domain.RoleSeller, domain.StatusVerified)
	testutil.SeedUser(t, gdb, customerEmail, domain.RoleCustomer, domain.StatusNone)
	testutil.SeedUser(t, gdb, adminEmail, domain.RoleAdmin, domain.StatusVerified)
	return &testServer{router: router, db: gdb, redis: mr, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := utils.GenerateJWT(email, s.cfg.JWTSecret, time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *testServer) createProduct(t *testing.T, qty int) domain.Product {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/product", sellerEmail, gin.H{
		"name": "Fiddle Leaf Fig", "category": "Indoor", "price": "10.00", "quantity": qty,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Product](t, rec)
}

func (s *testServer) placeOrder(t *testing.T, productID string, qty int) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/orders", customerEmail, gin.H{
		"productId": productID, "quantity": qty, "address": "1 Garden Way",
		"customer": gin.H{"name": "Buyer", "photo": "https://img.example/me.jpg"},
	})
}

func TestAnonymousCallerIsRejected(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/orders", "", gin.H{"productId": "p1", "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, envelope{Error: "Unauthorized access", Code: "unauthorized"}, decode[envelope](t, rec))
}

func TestPurchaseFlow(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(t, 5)

	// warm the list cache, then make sure an order invalidates it
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products", "", nil).Code)
	assert.True(t, s.redis.Exists(utils.KeyAllProducts))

	rec := s.placeOrder(t, product.ID, 2)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[domain.Order](t, rec)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, customerEmail, order.Customer.Email)
	assert.Equal(t, sellerEmail, order.Seller)
	assert.Equal(t, "20", order.Price.String())
	assert.False(t, s.redis.Exists(utils.KeyAllProducts))

	got := decode[domain.Product](t, s.do(t, http.MethodGet, "/product/"+product.ID, "", nil))
	assert.Equal(t, 3, got.Quantity)

	views := decode[[]orders.OrderView](t, s.do(t, http.MethodGet, "/orders?email="+customerEmail, customerEmail, nil))
	require.Len(t, views, 1)
	assert.Equal(t, "Fiddle Leaf Fig", views[0].Name)

	rec = s.do(t, http.MethodGet, "/orders?email="+sellerEmail, customerEmail, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	manage := decode[[]orders.OrderView](t, s.do(t, http.MethodGet, "/manage-orders", sellerEmail, nil))
	require.Len(t, manage, 1)

	rec = s.do(t, http.MethodPatch, "/order/"+order.ID, sellerEmail, gin.H{"status": "Delivered"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, rec)["changed"])

	// delivered orders cannot be cancelled by anyone
	for _, who := range []string{customerEmail, sellerEmail} {
		rec = s.do(t, http.MethodDelete, "/order/"+order.ID, who, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode[envelope](t, rec).Code)
	}
	assert.Equal(t, 3, testutil.Quantity(t, s.db, product.ID))
}

func TestInsufficientStockAndCancel(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(t, 2)

	rec := s.placeOrder(t, product.ID, 3)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 2, testutil.Quantity(t, s.db, product.ID))

	order := decode[domain.Order](t, s.placeOrder(t, product.ID, 2))
	assert.Equal(t, 0, testutil.Quantity(t, s.db, product.ID))

	rec = s.do(t, http.MethodDelete, "/order/"+order.ID, "stranger@x.com", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/order/"+order.ID, customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[orders.CancelResult](t, rec)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 2, testutil.Quantity(t, s.db, product.ID))

	rec = s.do(t, http.MethodDelete, "/order/"+order.ID, customerEmail, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelAfterProductDeletedWarns(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(t, 2)
	order := decode[domain.Order](t, s.placeOrder(t, product.ID, 1))

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/product/"+product.ID, sellerEmail, nil).Code)

	rec := s.do(t, http.MethodDelete, "/order/"+order.ID, customerEmail, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[orders.CancelResult](t, rec).Warning)
}

func TestRoleWorkflow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/user/new@x.com", "", gin.H{"name": "New"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/user/new@x.com", "", gin.H{"name": "Renamed"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New", decode[domain.User](t, rec).Name)

	// a user may only request for themselves
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, "/user/new@x.com", customerEmail, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, "/user/new@x.com", "new@x.com", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPatch, "/user/new@x.com", "new@x.com", nil).Code)

	// a seller cannot grant roles and nothing changes
	rec = s.do(t, http.MethodPatch, "/user/role/new@x.com", sellerEmail, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	role := decode[map[string]string](t, s.do(t, http.MethodGet, "/user/role/new@x.com", "", nil))
	assert.Equal(t, "customer", role["role"])

	rec = s.do(t, http.MethodPatch, "/user/role/new@x.com", adminEmail, gin.H{"role": "seller"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[domain.User](t, rec)
	assert.Equal(t, domain.RoleSeller, user.Role)
	assert.Equal(t, domain.StatusVerified, user.Status)

	// the new role applies on the very next request
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/products/seller", "new@x.com", nil).Code)

	list := decode[map[string]any](t, s.do(t, http.MethodGet, "/users/"+adminEmail, adminEmail, nil))
	assert.EqualValues(t, 3, list["total"])
}

func TestAdjustQuantity(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(t, 1)
	path := "/product/quantity/" + product.ID

	rec := s.do(t, http.MethodPatch, path, customerEmail, gin.H{"quantityToUpdate": 1, "status": "increase"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, path, sellerEmail, gin.H{"quantityToUpdate": 2, "status": "decrease"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, path, sellerEmail, gin.H{"quantityToUpdate": 0, "status": "increase"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", decode[envelope](t, rec).Code)

	rec = s.do(t, http.MethodPatch, path, sellerEmail, gin.H{"quantityToUpdate": 4, "status": "increase"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[domain.Product](t, rec).Quantity)

	ledger := decode[struct {
		Movements []domain.StockMovement `json:"movements"`
	}](t, s.do(t, http.MethodGet, "/product/movements/"+product.ID, sellerEmail, nil))
	require.Len(t, ledger.Movements, 2)
	deltas := map[domain.MovementReason]int{}
	for _, m := range ledger.Movements {
		deltas[m.Reason] += m.Delta
	}
	assert.Equal(t, map[domain.MovementReason]int{domain.ReasonOpening: 1, domain.ReasonManual: 4}, deltas)
}

func TestEditProductKeepsStock(t *testing.T) {
	s := newServer(t)
	product := s.createProduct(t, 5)
	path := "/product/" + product.ID

	require.Equal(t, http.StatusCreated, s.placeOrder(t, product.ID, 2).Code)

	// an edit form loaded before the order still carries quantity 5
	rec := s.do(t, http.MethodPut, path, sellerEmail, gin.H{
		"name": "Fiddle Leaf Fig XL", "category": "Indoor", "price": "12.00", "quantity": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", decode[envelope](t, rec).Code)
	assert.Equal(t, 3, testutil.Quantity(t, s.db, product.ID))

	rec = s.do(t, http.MethodPut, path, sellerEmail, gin.H{
		"name": "Fiddle Leaf Fig XL", "category": "Indoor", "price": "12.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[domain.Product](t, rec)
	assert.Equal(t, "Fiddle Leaf Fig XL", got.Name)
	assert.Equal(t, 3, got.Quantity)

	ledger := decode[struct {
		Movements []domain.StockMovement `json:"movements"`
	}](t, s.do(t, http.MethodGet, "/product/movements/"+product.ID, sellerEmail, nil))
	sum := 0
	for _, m := range ledger.Movements {
		sum += m.Delta
	}
	assert.Equal(t, 3, sum)
}

func TestAdminStatIsCached(t *testing.T) {
	s := newServer(t)
	s.createProduct(t, 1)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/admin-stat", sellerEmail, nil).Code)

	first := decode[map[string]any](t, s.do(t, http.MethodGet, "/admin-stat", adminEmail, nil))
	assert.Equal(t, false, first["cached"])
	stats := first["stats"].(map[string]any)
	assert.EqualValues(t, 3, stats["totalUsers"])
	assert.EqualValues(t, 1, stats["totalProducts"])

	second := decode[map[string]any](t, s.do(t, http.MethodGet, "/admin-stat", adminEmail, nil))
	assert.Equal(t, true, second["cached"])
}

func TestSessionCookie(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/jwt", "", gin.H{"email": customerEmail})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	claims, err := utils.ParseJWT(cookies[0].Value, s.cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, customerEmail, claims.Email)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/jwt", "", gin.H{"email": "nope"}).Code)

	rec = s.do(t, http.MethodGet, "/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/nowhere", "", nil).Code)
}
