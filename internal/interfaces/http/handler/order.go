package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/memstore"
	"github.com/marketplace/orderflow/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// roleAll asks for every order instead of the caller's own
const roleAll = "all"

// OrderHandler serves the order endpoints. Every mutation runs through the
// same state machine the client uses, inside the store's write lock.
type OrderHandler struct {
	BaseHandler
	store   *memstore.Store
	machine *order.Machine
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(store *memstore.Store, machine *order.Machine) *OrderHandler {
	return &OrderHandler{store: store, machine: machine}
}

// visible reports whether actor may see o
func visible(o *order.Order, actor order.Actor) bool {
	switch actor.Role {
	case order.RoleSupervisor, order.RoleAdmin, order.RoleFinance:
		return true
	case order.RoleSupplier:
		return o.Supplier != nil && o.Supplier.ID == actor.ID
	case order.RoleDriver:
		return o.IsAssignedTo(actor.ID)
	default:
		return o.IsOwnedBy(actor.ID)
	}
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	if strings.EqualFold(q.Role, roleAll) && !actor.Role.CanViewAll() {
		h.Error(c, http.StatusForbidden, "Only supervisors and admins can list all orders")
		return
	}
	var (
		status order.OrderStatus
		flavor order.Flavor
	)
	if q.Status != "" {
		if status, ok = order.ParseOrderStatus(q.Status); !ok {
			h.Error(c, http.StatusBadRequest, "Unknown status "+q.Status)
			return
		}
	}
	if q.OrderType != "" {
		if flavor, ok = order.ParseFlavor(q.OrderType); !ok {
			h.Error(c, http.StatusBadRequest, "Unknown order type "+q.OrderType)
			return
		}
	}

	orders := h.store.Orders(func(o *order.Order) bool {
		if !visible(o, actor) {
			return false
		}
		if status != "" && o.OrderStatus != status {
			return false
		}
		return flavor == "" || o.Flavor == flavor
	})
	h.Success(c, dto.OrdersResponse(orders))
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	o, err := h.store.Order(c.Param("id"))
	if err != nil || !visible(o, actor) {
		h.Error(c, http.StatusNotFound, "Order not found")
		return
	}
	h.Success(c, dto.OrderResponse(o))
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	flavor, ok := order.ParseFlavor(req.OrderType)
	if !ok {
		h.Error(c, http.StatusBadRequest, "Unknown order type "+req.OrderType)
		return
	}

	productID := strings.TrimSpace(req.Product)
	if productID == "" {
		productID = strings.TrimSpace(req.Item)
	}
	draft := order.Draft{
		Flavor:          flavor,
		ProductID:       productID,
		SupplierID:      strings.TrimSpace(req.Supplier),
		Quantity:        req.Quantity,
		TotalPrice:      req.TotalPrice,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}
	if err := h.machine.CheckCreate(actor, draft); err != nil {
		h.DomainError(c, err)
		return
	}

	owner, err := h.store.User(actor.ID)
	if err != nil {
		h.Error(c, http.StatusUnauthorized, "Unknown user")
		return
	}
	o := &order.Order{
		Flavor:          flavor,
		Product:         h.store.Product(productID),
		Buyer:           owner.Ref(),
		Quantity:        draft.Quantity,
		TotalPrice:      draft.TotalPrice,
		OrderStatus:     order.OrderStatusPending,
		PaymentStatus:   order.PaymentStatusPending,
		PaymentMethod:   draft.PaymentMethod,
		DeliveryAddress: draft.DeliveryAddress,
		Notes:           draft.Notes,
	}
	if draft.SupplierID != "" {
		supplier, err := h.store.User(draft.SupplierID)
		if err != nil || supplier.Role != order.RoleSupplier {
			h.Error(c, http.StatusBadRequest, "Unknown supplier "+draft.SupplierID)
			return
		}
		ref := supplier.Ref()
		o.Supplier = &ref
	}
	if flavor == order.FlavorSupply {
		ref := owner.Ref()
		o.Artisan = &ref
	} else if o.TotalPrice.IsZero() {
		o.TotalPrice = o.Product.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
	}

	created := h.store.InsertOrder(o)
	logger.GetGinLogger(c).Info("Order created",
		zap.String("order_id", created.ID),
		zap.String("order_type", flavor.String()),
		zap.String("user_id", actor.ID))
	h.Created(c, dto.OrderResponse(created))
}

// UpdateStatus handles PATCH /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	raw := req.OrderStatus
	if raw == "" {
		raw = req.Status
	}
	target, ok := order.ParseOrderStatus(raw)
	if !ok {
		h.Error(c, http.StatusBadRequest, "Unknown status "+raw)
		return
	}
	h.transition(c, order.ActionsToStatus(target), order.Request{})
}

// UpdatePaymentStatus handles PATCH /orders/:id/payment-status
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	target, ok := order.ParsePaymentStatus(req.PaymentStatus)
	if !ok {
		h.Error(c, http.StatusBadRequest, "Unknown payment status "+req.PaymentStatus)
		return
	}
	h.transition(c, order.ActionsToPayment(target), order.Request{})
}

// SubmitPayment handles POST /orders/:id/payment
func (h *OrderHandler) SubmitPayment(c *gin.Context) {
	var req dto.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.transition(c, []order.Action{order.ActionSubmitPayment}, order.Request{Amount: req.Amount})
}

// AssignDriver handles PATCH /orders/:id/driver
func (h *OrderHandler) AssignDriver(c *gin.Context) {
	var req dto.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	driver, err := h.store.User(req.DriverID)
	if err != nil || driver.Role != order.RoleDriver {
		h.DomainError(c, shared.NewDomainError(order.CodeInvalidDriver, "Unknown driver "+req.DriverID))
		return
	}
	h.transition(c, []order.Action{order.ActionAssignDriver}, order.Request{DriverID: driver.ID})
}

// transition applies the first candidate action the machine accepts. The
// check and the write happen under the store lock, so of two conflicting
// requests the second sees the first's result and gets a 409.
func (h *OrderHandler) transition(c *gin.Context, candidates []order.Action, req order.Request) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if len(candidates) == 0 {
		h.Error(c, http.StatusConflict, "No transition leads to the requested status")
		return
	}

	var applied order.Action
	updated, err := h.store.UpdateOrder(id, func(current *order.Order) (*order.Order, error) {
		if !visible(current, actor) {
			return nil, memstore.ErrNotFound
		}
		var rejection error
		for _, action := range candidates {
			req.Action = action
			next, err := h.machine.Apply(current, actor, req, h.store.Now())
			if err == nil {
				applied = action
				return h.resolveDriver(next), nil
			}
			// Prefer the reason of an action the role could have taken
			if rejection == nil || shared.CodeOf(rejection) == order.CodeRoleNotAllowed {
				rejection = err
			}
		}
		return nil, rejection
	})
	if err != nil {
		logger.GetGinLogger(c).Debug("Transition rejected",
			zap.String("order_id", id),
			zap.String("code", shared.CodeOf(err)),
			zap.Error(err))
		h.DomainError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Order transitioned",
		zap.String("order_id", id),
		zap.String("action", applied.String()),
		zap.String("user_id", actor.ID))
	h.Success(c, dto.OrderResponse(updated))
}

// resolveDriver replaces a bare driver ID with the full account
func (h *OrderHandler) resolveDriver(o *order.Order) *order.Order {
	if o.Driver == nil || o.Driver.Name != "" {
		return o
	}
	if u, err := h.store.User(o.Driver.ID); err == nil {
		ref := u.Ref()
		o.Driver = &ref
	}
	return o
}
