package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		PATCH("/ping", func(c *gin.Context) { c.String(http.StatusOK, "patched") })

	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/test/ping", nil))
	assert.Equal(t, "patched", w.Body.String())

	assert.Equal(t, "test", group.Name())
	assert.Equal(t, "/test", group.Prefix())
}

func TestRouterWithBasePath(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithBasePath("/v2")).
		Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })).
		Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/test/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDomainGroupMiddleware(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("guarded", "/guarded").
		Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusTeapot) }).
		GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/guarded", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New(memstore.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, memstore.Seed(store))
	engine := NewEngine(Deps{
		Store: store,
		JWT:   auth.NewJWTService("router-test-secret-32-characters!", time.Hour, "orderflow-test"),
	})
	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewEngine_Health(t *testing.T) {
	ts := newBackend(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// The client package and the backend agree on paths, envelopes and errors
func TestNewEngine_ClientRoundTrip(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	var token string
	client, err := api.NewClient(api.Config{BaseURL: ts.URL, Timeout: 5 * time.Second},
		api.WithTokenSource(api.TokenFunc(func() string { return token })))
	require.NoError(t, err)

	_, err = client.ListOrders(ctx, api.ListFilter{})
	assert.True(t, api.IsKind(err, api.KindUnauthorized))

	result, err := client.Login(ctx, api.Credentials{Email: "supplier@example.com", Password: memstore.SeedPassword})
	require.NoError(t, err)
	assert.Equal(t, memstore.SeedSupplierID, result.User.UserID())
	token = result.Token

	payloads, err := client.ListOrders(ctx, api.ListFilter{Flavor: order.FlavorSupply})
	require.NoError(t, err)
	assert.Len(t, payloads, 3)

	p, err := client.UpdateOrderStatus(ctx, "s-2001", order.FlavorSupply, order.OrderStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusApproved, order.Normalize(*p).OrderStatus)

	_, err = client.UpdateOrderStatus(ctx, "s-2001", order.FlavorSupply, order.OrderStatusApproved)
	assert.True(t, api.IsKind(err, api.KindConflict), "got %v", err)

	p, err = client.SubmitPayment(ctx, "s-2002", order.DefaultMaxPaymentAmount)
	require.NoError(t, err)
	assert.True(t, order.Normalize(*p).TotalPrice.Equal(order.DefaultMaxPaymentAmount))

	_, err = client.AssignDriver(ctx, "s-2001", memstore.SeedDriverID)
	assert.True(t, api.IsKind(err, api.KindForbidden), "got %v", err)

	sent, err := client.SendMessage(ctx, memstore.SeedArtisanID, "Approved, packing now")
	require.NoError(t, err)
	assert.Equal(t, memstore.SeedSupplierID, sent.Sender)

	msgs, err := client.ListMessages(ctx, memstore.SeedArtisanID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}
