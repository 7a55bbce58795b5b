package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	store  *memstore.Store
	jwt    *auth.JWTService
}

// newTestServer wires the handlers behind real JWT authentication over a
// seeded store
func newTestServer(t *testing.T, chatOpts ...ChatOption) *testServer {
	t.Helper()
	store := memstore.New(memstore.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, memstore.Seed(store))
	jwtSvc := auth.NewJWTService("handler-test-secret-32-characters", time.Hour, "orderflow-test")

	engine := gin.New()
	middleware.SetupValidator()

	authHandler := NewAuthHandler(store, jwtSvc)
	orderHandler := NewOrderHandler(store, order.NewMachine(order.DefaultPolicy()))
	chatHandler := NewChatHandler(store, chatOpts...)

	engine.POST("/auth/login", authHandler.Login)
	engine.POST("/auth/register", authHandler.Register)

	protected := engine.Group("")
	protected.Use(middleware.JWTAuth(middleware.JWTMiddlewareConfig{JWTService: jwtSvc}))
	protected.GET("/orders", orderHandler.List)
	protected.POST("/orders", orderHandler.Create)
	protected.GET("/orders/:id", orderHandler.Get)
	protected.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	protected.PATCH("/orders/:id/payment-status", orderHandler.UpdatePaymentStatus)
	protected.POST("/orders/:id/payment", orderHandler.SubmitPayment)
	protected.PATCH("/orders/:id/driver", orderHandler.AssignDriver)
	protected.GET("/chat/:peer/messages", chatHandler.ListMessages)
	protected.POST("/chat/:peer/messages", chatHandler.SendMessage)
	protected.GET("/chat/:peer/stream", chatHandler.Stream)

	return &testServer{engine: engine, store: store, jwt: jwtSvc}
}

// tokenFor issues a token for a stored user
func (s *testServer) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	u, err := s.store.User(userID)
	require.NoError(t, err)
	token, err := s.jwt.Generate(auth.Identity{UserID: u.ID, Role: u.Role.String(), Name: u.Name})
	require.NoError(t, err)
	return token
}

// request builds a request as userID; an empty userID sends no token
func (s *testServer) request(t *testing.T, method, path, userID string, body interface{}) *http.Request {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+s.tokenFor(t, userID))
	}
	return req
}

// serve runs req through the engine
func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// do performs a request as userID
func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.serve(s.request(t, method, path, userID, body))
}

// envelope is the decoded response body
type envelope struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	Order       *order.Payload   `json:"order"`
	Orders      []order.Payload  `json:"orders"`
	Token       string           `json:"token"`
	User        map[string]any   `json:"user"`
	Messages    []map[string]any `json:"messages"`
	ChatMessage map[string]any   `json:"chatMessage"`
	Errors      []map[string]any `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// orderIDs returns the IDs of the listed orders
func (e envelope) orderIDs() []string {
	ids := make([]string, 0, len(e.Orders))
	for _, p := range e.Orders {
		ids = append(ids, order.Normalize(p).ID)
	}
	return ids
}

// decodedOrder normalizes the single order of the envelope
func (e envelope) decodedOrder(t *testing.T) *order.Order {
	t.Helper()
	require.NotNil(t, e.Order)
	return order.Normalize(*e.Order)
}
