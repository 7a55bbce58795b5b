package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/handler"
	"github.com/marketplace/orderflow/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Deps are the collaborators of the reference backend
type Deps struct {
	Store       *memstore.Store
	JWT         *auth.JWTService
	Machine     *order.Machine
	Logger      *zap.Logger
	ServiceName string
	// Heartbeat is the keep-alive interval of chat streams; zero keeps the default
	Heartbeat time.Duration
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Machine == nil {
		deps.Machine = order.NewMachine(order.DefaultPolicy())
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))
	if deps.ServiceName != "" {
		engine.Use(middleware.Tracing(deps.ServiceName), middleware.SpanEnricher())
	}

	chatOpts := []handler.ChatOption{handler.WithChatLogger(deps.Logger)}
	if deps.Heartbeat > 0 {
		chatOpts = append(chatOpts, handler.WithHeartbeat(deps.Heartbeat))
	}
	authHandler := handler.NewAuthHandler(deps.Store, deps.JWT)
	orderHandler := handler.NewOrderHandler(deps.Store, deps.Machine)
	chatHandler := handler.NewChatHandler(deps.Store, chatOpts...)

	requireAuth := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService: deps.JWT,
		Logger:     deps.Logger,
	})

	health := NewDomainGroup("health", "/health").
		GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
		})

	authGroup := NewDomainGroup("auth", "/auth").
		POST("/login", authHandler.Login).
		POST("/register", authHandler.Register)

	orders := NewDomainGroup("orders", "/orders").
		Use(requireAuth).
		GET("", orderHandler.List).
		POST("", orderHandler.Create).
		GET("/:id", orderHandler.Get).
		PATCH("/:id/status", orderHandler.UpdateStatus).
		PATCH("/:id/payment-status", orderHandler.UpdatePaymentStatus).
		POST("/:id/payment", orderHandler.SubmitPayment).
		PATCH("/:id/driver", orderHandler.AssignDriver)

	chat := NewDomainGroup("chat", "/chat").
		Use(requireAuth).
		GET("/:peer/messages", chatHandler.ListMessages).
		POST("/:peer/messages", chatHandler.SendMessage).
		GET("/:peer/stream", chatHandler.Stream)

	NewRouter(engine).
		Register(health).
		Register(authGroup).
		Register(orders).
		Register(chat).
		Setup()

	return engine
}
