// Package orders builds orders from carts and drives them through their
// lifecycle. Every status change is a compare-and-set in the store followed
// by explicit post-commit hooks for stock and notifications.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus-cravings/models"
	"campus-cravings/services/payment"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

const orderNumberAttempts = 3

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error)
	ListOrdersByCustomer(ctx context.Context, userID, email string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, paymentID string, at time.Time) (*models.Order, error)
	ClaimStockApplication(ctx context.Context, id string) (bool, error)
	MarkFeedbackSubmitted(ctx context.Context, id string) error
}

type MenuReader interface {
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// StockConsumer is satisfied by *stock.Ledger.
type StockConsumer interface {
	DecrementOrder(ctx context.Context, order *models.Order)
}

type Verifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// Publisher delivers order events. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

type Service struct {
	orders   OrderStore
	menu     MenuReader
	stock    StockConsumer
	gateway  payment.Gateway
	verifier Verifier
	events   Publisher
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(orders OrderStore, menu MenuReader, stock StockConsumer, gateway payment.Gateway,
	verifier Verifier, events Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		menu:     menu,
		stock:    stock,
		gateway:  gateway,
		verifier: verifier,
		events:   events,
		logger:   logger.With("component", "orders"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult carries the saved order and, for UPI, the gateway handle the
// client must complete before the order is confirmed.
type CreateResult struct {
	Order   *models.Order
	Payment *payment.Handle
}

// Create validates the cart and places the order. Cash orders are accepted
// immediately and consume stock. UPI orders are saved as unpaid drafts and
// wait for VerifyPayment.
func (s *Service) Create(ctx context.Context, caller models.Identity, cart models.Cart) (*CreateResult, error) {
	order, err := s.build(ctx, caller, cart)
	if err != nil {
		return nil, err
	}
	now := s.now()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.StatusChangedAt = now
	order.OrderNumber = NewOrderNumber(now)

	if order.PaymentMethod == models.PaymentUPI {
		handle, err := s.gateway.CreateOrder(ctx, decimal.NewFromFloat(order.TotalAmount), order.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("cannot start payment: %w", err)
		}
		order.Gateway.OrderID = handle.ID
		if err := s.persist(ctx, order); err != nil {
			return nil, err
		}
		s.logger.Info("upi order awaiting payment",
			"orderNumber", order.OrderNumber, "gatewayOrderId", handle.ID, "total", order.TotalAmount)
		return &CreateResult{Order: order, Payment: handle}, nil
	}

	if err := s.persist(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info("cash order placed", "orderNumber", order.OrderNumber, "total", order.TotalAmount)
	s.consumeStock(ctx, order)
	s.publish(ctx, models.EventNewOrder, order)
	return &CreateResult{Order: order}, nil
}

// persist inserts the order, drawing a fresh order number when the current
// one collides.
func (s *Service) persist(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		err = s.orders.CreateOrder(ctx, order)
		if !errors.Is(err, models.ErrDuplicateOrderNumber) {
			break
		}
		s.logger.Warn("order number collision", "orderNumber", order.OrderNumber, "attempt", attempt)
		order.OrderNumber = NewOrderNumber(order.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("cannot save order: %w", err)
	}
	return nil
}

type VerifyRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment settles a UPI draft. A bad signature marks the payment failed
// and keeps the order. A good one completes the payment, confirms the order
// and announces it. Repeating a successful callback returns the order as is,
// or finishes the confirmation if it did not happen the first time.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyRequest) (*models.Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	order, err := s.orders.GetOrderByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentUPI {
		return nil, fmt.Errorf("%w: order %s is not a upi order", models.ErrValidation, order.OrderNumber)
	}
	if order.PaymentStatus == models.PaymentCompleted && order.Status != models.StatusPending && order.Status != models.StatusCancelled {
		return order, nil
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", models.ErrInvalidTransition, order.OrderNumber, order.Status)
	}
	if order.PaymentStatus == models.PaymentCompleted {
		s.logger.Warn("paid order still pending, confirming again", "orderNumber", order.OrderNumber)
		return s.confirmPaid(ctx, order)
	}

	if !s.verifier.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.failPayment(ctx, order, req.GatewayPaymentID)
		s.logger.Warn("payment signature mismatch", "orderNumber", order.OrderNumber, "gatewayOrderId", req.GatewayOrderID)
		return nil, fmt.Errorf("%w: order %s", models.ErrPaymentVerification, order.OrderNumber)
	}

	paid, err := s.orders.UpdatePaymentStatus(ctx, order.ID.Hex(),
		order.PaymentStatus, models.PaymentCompleted, req.GatewayPaymentID, s.now())
	if errors.Is(err, models.ErrStaleStatus) {
		return s.settled(ctx, order.ID.Hex())
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment verified", "orderNumber", paid.OrderNumber, "gatewayPaymentId", req.GatewayPaymentID)
	return s.confirmPaid(ctx, paid)
}

// FailPayment records a declined UPI payment without touching the order
// status. It is the gateway's failure callback.
func (s *Service) FailPayment(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	order, err := s.orders.GetOrderByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentUPI {
		return nil, fmt.Errorf("%w: order %s is not a upi order", models.ErrValidation, order.OrderNumber)
	}
	if order.Status.Terminal() || order.PaymentStatus == models.PaymentCompleted {
		return nil, fmt.Errorf("%w: order %s is %s and %s",
			models.ErrInvalidTransition, order.OrderNumber, order.Status, order.PaymentStatus)
	}
	s.failPayment(ctx, order, "")
	return s.orders.GetOrder(ctx, order.ID.Hex())
}

func (s *Service) failPayment(ctx context.Context, order *models.Order, paymentID string) {
	if order.PaymentStatus != models.PaymentPending {
		return
	}
	if _, err := s.orders.UpdatePaymentStatus(ctx, order.ID.Hex(),
		models.PaymentPending, models.PaymentFailed, paymentID, s.now()); err != nil {
		s.logger.Error("cannot record failed payment", "orderNumber", order.OrderNumber, "error", err)
	}
}

// confirmPaid confirms a paid order and announces it.
func (s *Service) confirmPaid(ctx context.Context, paid *models.Order) (*models.Order, error) {
	confirmed, err := s.transition(ctx, paid, models.StatusConfirmed)
	if errors.Is(err, models.ErrInvalidTransition) {
		return s.settled(ctx, paid.ID.Hex())
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventNewOrder, confirmed)
	return confirmed, nil
}

// settled reloads an order another writer raced us on. It succeeds only if
// the order ended up paid and not cancelled.
func (s *Service) settled(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentCompleted || order.Status == models.StatusCancelled {
		return nil, fmt.Errorf("%w: order %s is %s and %s",
			models.ErrInvalidTransition, order.OrderNumber, order.Status, order.PaymentStatus)
	}
	return order, nil
}

// Transition moves the order to status to if the state machine allows it.
func (s *Service) Transition(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, to)
}

func (s *Service) transition(ctx context.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	if err := ValidateTransition(order.Status, to); err != nil {
		return nil, err
	}
	updated, err := s.orders.UpdateOrderStatus(ctx, order.ID.Hex(), order.Status, to, s.now())
	if errors.Is(err, models.ErrStaleStatus) {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidTransition, err)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status changed", "orderNumber", updated.OrderNumber, "from", order.Status, "to", to)

	if to == models.StatusConfirmed {
		s.consumeStock(ctx, updated)
	}
	s.publish(ctx, models.EventStatusUpdate, updated)
	return updated, nil
}

// consumeStock decrements stock for the order unless that already happened.
func (s *Service) consumeStock(ctx context.Context, order *models.Order) {
	claimed, err := s.orders.ClaimStockApplication(ctx, order.ID.Hex())
	if err != nil {
		s.logger.Error("cannot claim stock application", "orderNumber", order.OrderNumber, "error", err)
		return
	}
	if !claimed {
		return
	}
	order.StockApplied = true
	s.stock.DecrementOrder(ctx, order)
}

// Advance applies the time rules to a single order on request.
func (s *Service) Advance(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := DueTransition(order, s.now())
	if !ok {
		return nil, fmt.Errorf("%w: order %s is not due to advance from %s",
			models.ErrInvalidTransition, order.OrderNumber, order.Status)
	}
	return s.transition(ctx, order, next)
}

// AdvanceDue applies the time rules to every confirmed or preparing order and
// returns how many moved. A failing order is logged and skipped.
func (s *Service) AdvanceDue(ctx context.Context) (int, error) {
	active, err := s.orders.ListOrdersByStatus(ctx, models.StatusConfirmed, models.StatusPreparing)
	if err != nil {
		return 0, fmt.Errorf("cannot list active orders: %w", err)
	}
	now := s.now()
	advanced := 0
	for i := range active {
		next, ok := DueTransition(&active[i], now)
		if !ok {
			continue
		}
		if _, err := s.transition(ctx, &active[i], next); err != nil {
			s.logger.Warn("auto advance failed", "orderNumber", active[i].OrderNumber, "to", next, "error", err)
			continue
		}
		advanced++
	}
	return advanced, nil
}

// MarkCashCollected completes payment for a cash order.
func (s *Service) MarkCashCollected(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentCash {
		return nil, fmt.Errorf("%w: order %s is not a cash order", models.ErrValidation, order.OrderNumber)
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return order, nil
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", models.ErrInvalidTransition, order.OrderNumber, order.Status)
	}
	updated, err := s.orders.UpdatePaymentStatus(ctx, orderID, order.PaymentStatus, models.PaymentCompleted, "", s.now())
	if errors.Is(err, models.ErrStaleStatus) {
		return s.settled(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash collected", "orderNumber", updated.OrderNumber, "total", updated.TotalAmount)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

type TrackedOrder struct {
	*models.Order
	EstimatedCompletion time.Time `json:"estimatedCompletion"`
	TimeRemaining       int       `json:"timeRemaining"`
}

func (s *Service) Track(ctx context.Context, orderNumber string) (*TrackedOrder, error) {
	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return &TrackedOrder{
		Order:               order,
		EstimatedCompletion: order.EstimatedCompletion(),
		TimeRemaining:       order.TimeRemaining(s.now()),
	}, nil
}

func (s *Service) ListMine(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	if !caller.Registered() {
		return nil, fmt.Errorf("%w: sign in to list your orders", models.ErrValidation)
	}
	return s.orders.ListOrdersByCustomer(ctx, caller.UserID, caller.Email)
}

// ListByStatus lists orders in one status, or all of them when status is empty.
func (s *Service) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if status == "" {
		return s.orders.ListOrdersByStatus(ctx)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	return s.orders.ListOrdersByStatus(ctx, status)
}

func (s *Service) publish(ctx context.Context, kind models.EventType, order *models.Order) {
	event := models.OrderEvent{
		ID:            uuid.NewString(),
		Type:          kind,
		OrderID:       order.ID.Hex(),
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		EstimatedTime: order.EstimatedTime,
		OccurredAt:    s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("order event not delivered", "event", kind, "orderNumber", order.OrderNumber, "error", err)
	}
}
