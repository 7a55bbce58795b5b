package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appshared "github.com/marketplace/orderflow/internal/application/shared"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Gateway is the remote order API
type Gateway interface {
	ListOrders(ctx context.Context, filter api.ListFilter) ([]order.Payload, error)
	GetOrder(ctx context.Context, id string) (*order.Payload, error)
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*order.Payload, error)
	UpdateOrderStatus(ctx context.Context, id string, flavor order.Flavor, status order.OrderStatus) (*order.Payload, error)
	UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) (*order.Payload, error)
	SubmitPayment(ctx context.Context, id string, amount decimal.Decimal) (*order.Payload, error)
	AssignDriver(ctx context.Context, id, driverID string) (*order.Payload, error)
}

// ActorSource returns the signed-in user
type ActorSource interface {
	Actor() (order.Actor, error)
}

// listAllRole asks the backend for every order rather than the caller's own
const listAllRole order.Role = "all"

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithBook shares an existing order cache
func WithBook(b *Book) Option {
	return func(s *Service) {
		s.book = b
	}
}

// Service runs order use cases against the backend. Every mutation is
// validated locally first and the cache only ever reflects what the server
// returned.
type Service struct {
	gateway  Gateway
	actors   ActorSource
	machine  *order.Machine
	resolver *order.Resolver
	book     *Book
	inflight *inflight
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(gateway Gateway, actors ActorSource, machine *order.Machine, opts ...Option) *Service {
	s := &Service{
		gateway:  gateway,
		actors:   actors,
		machine:  machine,
		resolver: order.NewResolver(machine),
		book:     NewBook(),
		inflight: newInflight(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book returns the order cache
func (s *Service) Book() *Book {
	return s.book
}

// Machine returns the state machine used for local validation
func (s *Service) Machine() *order.Machine {
	return s.machine
}

// List fetches the orders visible to the signed-in user and replaces the cache
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "list")
	defer span.End()

	actor, err := s.actors.Actor()
	if err != nil {
		return nil, err
	}
	if err := appshared.Struct(filter); err != nil {
		return nil, err
	}

	apiFilter := api.ListFilter{Role: actor.Role}
	if actor.Role.CanViewAll() {
		apiFilter.Role = listAllRole
	}
	if filter.Status != "" {
		status, ok := order.ParseOrderStatus(filter.Status)
		if !ok {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown order status %q", filter.Status))
		}
		apiFilter.Status = status
	}
	if filter.Flavor != "" {
		apiFilter.Flavor, _ = order.ParseFlavor(filter.Flavor)
	}

	payloads, err := s.gateway.ListOrders(ctx, apiFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, classify(ctx, err)
	}

	orders := order.NormalizeAll(payloads)
	if filter.Status == "" && filter.Flavor == "" {
		s.book.Replace(orders)
	} else {
		for _, o := range orders {
			s.book.Put(o)
		}
	}

	incomplete := 0
	for _, o := range orders {
		if !o.IsComplete() {
			incomplete++
		}
	}
	if incomplete > 0 {
		logger.WithLogger(ctx, s.logger).Warn("Listed orders with incomplete data",
			zap.Int("incomplete", incomplete), zap.Int("total", len(orders)))
	}
	telemetry.SetAttributes(span, "order.count", len(orders))
	return orders, nil
}

// Get returns the cached order, fetching it when it is not cached
func (s *Service) Get(ctx context.Context, id string) (*order.Order, error) {
	if o, ok := s.book.Get(id); ok {
		return o, nil
	}
	return s.Refresh(ctx, id)
}

// Refresh fetches the canonical order from the server and caches it
func (s *Service) Refresh(ctx context.Context, id string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "refresh",
		telemetry.WithAttribute(telemetry.AttrOrderID, id))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Order ID is required")
	}

	payload, err := s.gateway.GetOrder(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		if api.IsKind(err, api.KindNotFound) {
			s.book.Remove(id)
		}
		return nil, classify(ctx, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, id)
	}

	o := order.Normalize(*payload)
	if o.ID == "" {
		o.ID = id
	}
	s.book.Put(o)
	return o.Clone(), nil
}

// Create validates and places a new order
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create")
	defer span.End()

	actor, err := s.actors.Actor()
	if err != nil {
		return nil, err
	}
	if err := appshared.Struct(input); err != nil {
		return nil, err
	}

	flavor, _ := order.ParseFlavor(input.Flavor)
	draft := order.Draft{
		Flavor:          flavor,
		ProductID:       strings.TrimSpace(input.ProductID),
		SupplierID:      strings.TrimSpace(input.SupplierID),
		Quantity:        input.Quantity,
		TotalPrice:      input.TotalPrice,
		PaymentMethod:   input.PaymentMethod,
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		Notes:           input.Notes,
	}
	if err := s.machine.CheckCreate(actor, draft); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrOrderFlavor, flavor.String(), telemetry.AttrActorRole, actor.Role.String())

	req := api.CreateOrderRequest{
		OrderType:       flavor.String(),
		Supplier:        draft.SupplierID,
		Quantity:        draft.Quantity,
		TotalPrice:      draft.TotalPrice,
		PaymentMethod:   draft.PaymentMethod,
		DeliveryAddress: draft.DeliveryAddress,
		Notes:           draft.Notes,
	}
	if flavor == order.FlavorSupply {
		req.Item = draft.ProductID
	} else {
		req.Product = draft.ProductID
	}

	payload, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Warn("Failed to create order", zap.String("order_type", flavor.String()), zap.Error(err))
		return nil, classify(ctx, err)
	}
	if payload == nil {
		// Created but not echoed back; the next list picks it up.
		return nil, fmt.Errorf("%w: the new order was not returned", shared.ErrRefreshRequired)
	}

	o := order.Normalize(*payload)
	s.book.Put(o)
	logger.WithLogger(ctx, s.logger).Info("Order created",
		zap.String("order_id", o.ID), zap.String("order_type", flavor.String()))
	return o.Clone(), nil
}

// Actions returns what the signed-in user may do with the cached order
func (s *Service) Actions(ctx context.Context, id string) ([]order.PermittedAction, error) {
	actor, err := s.actors.Actor()
	if err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(o, actor), nil
}

// ListWithActions lists orders and resolves the permitted actions of each
func (s *Service) ListWithActions(ctx context.Context, filter ListFilter) ([]OrderActions, error) {
	actor, err := s.actors.Actor()
	if err != nil {
		return nil, err
	}
	orders, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]OrderActions, len(orders))
	for i, o := range orders {
		out[i] = OrderActions{Order: o, Actions: s.resolver.Resolve(o, actor)}
	}
	return out, nil
}

// SubmitPayment records the payment amount of a supply order
func (s *Service) SubmitPayment(ctx context.Context, id string, amount decimal.Decimal) (*order.Order, error) {
	return s.Perform(ctx, id, order.ActionSubmitPayment, ActionParams{Amount: amount})
}

// AssignDriver assigns a delivery driver to the order
func (s *Service) AssignDriver(ctx context.Context, id, driverID string) (*order.Order, error) {
	return s.Perform(ctx, id, order.ActionAssignDriver, ActionParams{DriverID: driverID})
}

// Perform validates action against the cached order, sends it and
// reconciles the cache with the server's answer. Only one action per order
// is handled at a time; a concurrent call fails with ErrRequestInFlight.
//
// Local rejections are returned before anything is sent. After dispatch:
// success caches the server's order; a conflict or missing order refreshes
// the cache and returns ErrRefreshRequired; transport and server failures
// return ErrRetryable and leave the cache untouched.
func (s *Service) Perform(ctx context.Context, id string, action order.Action, params ActionParams) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "perform",
		telemetry.WithAttribute(telemetry.AttrOrderID, id),
		telemetry.WithAttribute(telemetry.AttrAction, action.String()))
	defer span.End()

	actor, err := s.actors.Actor()
	if err != nil {
		return nil, err
	}
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("order_id", id),
		zap.String("action", action.String()),
		zap.String("role", actor.Role.String()))

	// The order is read and validated while holding the slot, so a second
	// caller sees the result of the first one.
	if !s.inflight.acquire(id) {
		return nil, shared.ErrRequestInFlight
	}
	defer s.inflight.release(id)

	current, err := s.Get(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.AttrActorRole, actor.Role.String(),
		telemetry.AttrOrderFlavor, current.Flavor.String(),
		telemetry.AttrOrderStatus, current.OrderStatus.String(),
		telemetry.AttrPaymentStatus, current.PaymentStatus.String())

	req := order.Request{Action: action, Amount: params.Amount, DriverID: strings.TrimSpace(params.DriverID)}
	expected, err := s.machine.Apply(current, actor, req, s.now())
	if err != nil {
		log.Info("Action rejected locally", zap.String("reason", shared.CodeOf(err)))
		return nil, err
	}

	payload, err := s.dispatch(ctx, current, expected, req)
	if ctx.Err() != nil {
		// The caller has gone away; its result is no longer wanted.
		return nil, ctx.Err()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.reconcileFailure(ctx, span, log, id, err)
	}

	if payload == nil {
		log.Info("Server accepted the action without returning the order, refreshing")
		fresh, err := s.Refresh(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrRefreshRequired, err)
		}
		return fresh, nil
	}

	applied := order.Normalize(*payload)
	if applied.ID == "" {
		applied.ID = id
	}
	s.book.Put(applied)
	log.Info("Action applied",
		zap.String("order_status", applied.OrderStatus.String()),
		zap.String("payment_status", applied.PaymentStatus.String()))
	telemetry.AddEvent(span, "order_updated",
		telemetry.AttrOrderStatus, applied.OrderStatus.String(),
		telemetry.AttrPaymentStatus, applied.PaymentStatus.String())
	return applied.Clone(), nil
}

// dispatch sends the request matching the action's axis
func (s *Service) dispatch(ctx context.Context, current, expected *order.Order, req order.Request) (*order.Payload, error) {
	axis, _ := order.AxisOf(req.Action)
	switch axis {
	case order.AxisOrder:
		return s.gateway.UpdateOrderStatus(ctx, current.ID, current.Flavor, expected.OrderStatus)
	case order.AxisPayment:
		return s.gateway.UpdatePaymentStatus(ctx, current.ID, expected.PaymentStatus)
	case order.AxisAmount:
		return s.gateway.SubmitPayment(ctx, current.ID, req.Amount)
	case order.AxisRelation:
		return s.gateway.AssignDriver(ctx, current.ID, req.DriverID)
	}
	return nil, shared.NewDomainError(order.CodeUnknownAction, fmt.Sprintf("Unknown action %q", req.Action))
}

func (s *Service) reconcileFailure(ctx context.Context, span trace.Span, log *logger.ContextLogger, id string, err error) error {
	switch api.KindOf(err) {
	case api.KindConflict, api.KindNotFound:
		log.Warn("Server rejected the action, refreshing order", zap.Error(err))
		if _, refreshErr := s.Refresh(ctx, id); refreshErr != nil && !errors.Is(refreshErr, shared.ErrNotFound) {
			log.Warn("Failed to refresh order after rejection", zap.Error(refreshErr))
		}
		return fmt.Errorf("%w: %w", shared.ErrRefreshRequired, err)
	case api.KindTransport, api.KindServer:
		log.Warn("Action not confirmed by server", zap.Error(err))
		telemetry.AddEvent(span, "retryable_failure")
		return classify(ctx, err)
	case api.KindUnauthorized:
		log.Warn("Session rejected while performing action")
		return classify(ctx, err)
	default:
		log.Warn("Server refused the action", zap.Error(err))
		return classify(ctx, err)
	}
}
