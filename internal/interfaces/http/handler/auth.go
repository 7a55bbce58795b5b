package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/auth"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// AuthHandler issues tokens
type AuthHandler struct {
	BaseHandler
	store *memstore.Store
	jwt   *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(store *memstore.Store, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{store: store, jwt: jwt}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	h.issue(c, http.StatusOK, user)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	role, ok := order.ParseRole(req.Role)
	if !ok {
		h.Error(c, http.StatusBadRequest, "Unknown role "+req.Role)
		return
	}

	user, err := h.store.CreateUser(memstore.User{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  role,
	}, req.Password)
	if err != nil {
		if errors.Is(err, memstore.ErrEmailTaken) {
			h.Error(c, http.StatusConflict, "Email is already registered")
			return
		}
		h.DomainError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("User registered", zap.String("user_id", user.ID), zap.String("role", role.String()))
	h.issue(c, http.StatusCreated, user)
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *memstore.User) {
	token, err := h.jwt.Generate(auth.Identity{
		UserID: user.ID,
		Role:   user.Role.String(),
		Name:   user.Name,
		Email:  user.Email,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}
	c.JSON(status, dto.Response{
		Success: true,
		Token:   token,
		User:    userPayload(user),
	})
}

func userPayload(u *memstore.User) *api.UserPayload {
	return &api.UserPayload{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role.String(),
		Phone: u.Phone,
	}
}
