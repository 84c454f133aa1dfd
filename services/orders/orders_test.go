package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"campus-cravings/database"
	"campus-cravings/models"
	"campus-cravings/services/payment"
	"campus-cravings/services/stock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSecret = "test-secret"

type recorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recorder) Publish(_ context.Context, event models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type countingGateway struct {
	payment.Gateway
	calls int
}

func (g *countingGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*payment.Handle, error) {
	g.calls++
	return g.Gateway.CreateOrder(ctx, amount, receipt)
}

type fixture struct {
	svc     *Service
	store   *database.Memory
	events  *recorder
	gateway *countingGateway
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:   database.NewMemory(),
		events:  &recorder{},
		gateway: &countingGateway{Gateway: payment.NewFakeGateway("INR", testSecret)},
		now:     time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	ledger := stock.NewLedger(f.store, logger)
	f.svc = NewService(f.store, f.store, ledger, f.gateway, payment.NewVerifier(testSecret), f.events, logger,
		WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) item(t *testing.T, name string, price float64, prep, daily, current int) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		Name:            name,
		Category:        models.CategorySnacks,
		Price:           price,
		PreparationTime: prep,
		DailyStock:      daily,
		CurrentStock:    current,
		IsAvailable:     true,
	}
	item.ApplyStockFlags()
	require.NoError(t, f.store.CreateMenuItem(context.Background(), item))
	return item
}

func (f *fixture) stockOf(t *testing.T, item *models.MenuItem) int {
	t.Helper()
	got, err := f.store.GetMenuItem(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	return got.CurrentStock
}

var guest = &models.GuestInfo{Name: "Asha", Phone: "9876543210", Email: "asha@campus.edu"}

func cashCart(lines ...models.CartItem) models.Cart {
	return models.Cart{Items: lines, PaymentMethod: models.PaymentCash, OrderType: models.OrderPickup, GuestInfo: guest}
}

func line(item *models.MenuItem, qty int) models.CartItem {
	return models.CartItem{Item: item.ID.Hex(), Name: item.Name, Quantity: qty, Price: item.Price}
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals([]models.OrderItem{
		{Price: 100, Quantity: 2},
		{Price: 50, Quantity: 1},
	})
	assert.Equal(t, "250", totals.Subtotal.String())
	assert.Equal(t, "12.5", totals.Tax.String())
	assert.Equal(t, "262.5", totals.Total.String())
}

func TestTotalsMatchRoundedTax(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "lines")
		lines := make([]models.OrderItem, n)
		want := decimal.Zero
		for i := range lines {
			paise := rapid.Int64Range(0, 100000).Draw(t, "paise")
			qty := rapid.IntRange(1, 20).Draw(t, "qty")
			price := decimal.New(paise, -2)
			lines[i] = models.OrderItem{Price: price.InexactFloat64(), Quantity: qty}
			want = want.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}
		totals := ComputeTotals(lines)
		assert.True(t, want.Equal(totals.Subtotal), "subtotal %s != %s", totals.Subtotal, want)
		assert.True(t, want.Mul(decimal.RequireFromString("1.05")).Round(2).Equal(totals.Total))
	})
}

func TestEstimatedTime(t *testing.T) {
	assert.Equal(t, 25, EstimatedTime(20))
	assert.Equal(t, 15, EstimatedTime(5))
	assert.Equal(t, 15, EstimatedTime(10))
}

func TestNewOrderNumber(t *testing.T) {
	number := NewOrderNumber(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^CC-20240314-\d{6}$`), number)
}

func TestCreateCashOrder(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Thali", 100, 20, 10, 10)
	b := f.item(t, "Lassi", 50, 5, 0, 0)

	result, err := f.svc.Create(context.Background(), models.Identity{}, cashCart(line(a, 2), line(b, 1)))
	require.NoError(t, err)
	require.Nil(t, result.Payment)

	order := result.Order
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, 250.0, order.Subtotal)
	assert.Equal(t, 12.5, order.Tax)
	assert.Equal(t, 262.5, order.TotalAmount)
	assert.Equal(t, 25, order.EstimatedTime)
	assert.Equal(t, 20, order.MaxPrepTime)
	assert.Equal(t, models.CustomerGuest, order.Customer.Kind)
	assert.Empty(t, order.TableNumber)
	assert.Zero(t, f.gateway.calls)

	assert.Equal(t, 8, f.stockOf(t, a))
	assert.Equal(t, []models.EventType{models.EventNewOrder}, f.events.types())

	saved, err := f.store.GetOrder(context.Background(), order.ID.Hex())
	require.NoError(t, err)
	assert.True(t, saved.StockApplied)
}

func TestCreateSnapshotsMenuPrice(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Thali", 100, 20, 0, 0)

	cart := cashCart(models.CartItem{Item: a.ID.Hex(), Name: "Cheap Thali", Quantity: 1, Price: 1})
	cart.TotalAmount = 1.05
	result, err := f.svc.Create(context.Background(), models.Identity{}, cart)
	require.NoError(t, err)
	assert.Equal(t, "Thali", result.Order.Items[0].Name)
	assert.Equal(t, 100.0, result.Order.Items[0].Price)
	assert.Equal(t, 105.0, result.Order.TotalAmount)
}

func TestCreateCollectsEveryShortage(t *testing.T) {
	f := newFixture(t)
	samosa := f.item(t, "Samosa", 20, 10, 10, 3)
	off := f.item(t, "Juice", 40, 5, 0, 0)
	_, err := f.store.UpdateMenuItem(context.Background(), off.ID.Hex(), models.MenuItemUpdate{IsAvailable: new(bool)})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), models.Identity{}, cashCart(line(samosa, 5), line(off, 1)))

	var stockErr *models.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 2)
	assert.Equal(t, models.StockShortage{Item: "Samosa", Requested: 5, Available: 3, Message: "only 3 Samosa left"}, stockErr.Shortages[0])
	assert.Equal(t, 0, stockErr.Shortages[1].Available)
	assert.Equal(t, 3, f.stockOf(t, samosa))
	assert.Empty(t, f.events.types())
}

func TestCreateSumsRepeatedItems(t *testing.T) {
	f := newFixture(t)
	samosa := f.item(t, "Samosa", 20, 10, 10, 5)

	plain := line(samosa, 3)
	spicy := line(samosa, 3)
	spicy.Customizations = map[string]string{"spice": "hot"}
	_, err := f.svc.Create(context.Background(), models.Identity{}, cashCart(plain, spicy))

	var stockErr *models.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, models.StockShortage{Item: "Samosa", Requested: 6, Available: 5, Message: "only 5 Samosa left"}, stockErr.Shortages[0])
	assert.Equal(t, 5, f.stockOf(t, samosa))

	spicy.Quantity = 2
	result, err := f.svc.Create(context.Background(), models.Identity{}, cashCart(plain, spicy))
	require.NoError(t, err)
	assert.Len(t, result.Order.Items, 2)
	assert.Equal(t, 0, f.stockOf(t, samosa))
}

func TestCreateRejectsInvalidCarts(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Thali", 100, 20, 0, 0)

	tests := map[string]models.Cart{
		"emptyCart":     cashCart(),
		"badPayment":    {Items: []models.CartItem{line(a, 1)}, PaymentMethod: "card", OrderType: models.OrderPickup, GuestInfo: guest},
		"badOrderType":  {Items: []models.CartItem{line(a, 1)}, PaymentMethod: models.PaymentCash, OrderType: "delivery", GuestInfo: guest},
		"zeroQuantity":  cashCart(line(a, 0)),
		"unknownItem":   cashCart(models.CartItem{Item: "5f1d7f3b9d3e2a0001a1b2c3", Quantity: 1}),
		"malformedItem": cashCart(models.CartItem{Item: "nope", Quantity: 1}),
		"noGuestInfo":   {Items: []models.CartItem{line(a, 1)}, PaymentMethod: models.PaymentCash, OrderType: models.OrderPickup},
		"guestNoPhone": {Items: []models.CartItem{line(a, 1)}, PaymentMethod: models.PaymentCash, OrderType: models.OrderPickup,
			GuestInfo: &models.GuestInfo{Name: "Asha"}},
		"guestBadEmail": {Items: []models.CartItem{line(a, 1)}, PaymentMethod: models.PaymentCash, OrderType: models.OrderPickup,
			GuestInfo: &models.GuestInfo{Name: "Asha", Phone: "1", Email: "not-an-email"}},
	}
	for name, cart := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), models.Identity{}, cart)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestCreateRegisteredDineIn(t *testing.T) {
	f := newFixture(t)
	a := f.item(t, "Thali", 100, 20, 0, 0)
	caller := models.Identity{UserID: "u1", Email: "ravi@campus.edu", Role: models.RoleUser}

	cart := models.Cart{Items: []models.CartItem{line(a, 1)}, PaymentMethod: models.PaymentCash, OrderType: models.OrderDineIn}
	result, err := f.svc.Create(context.Background(), caller, cart)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTableNumber, result.Order.TableNumber)
	assert.Equal(t, models.RegisteredCustomer("u1", "ravi@campus.edu"), result.Order.Customer)

	cart.TableNumber = "7"
	result, err = f.svc.Create(context.Background(), caller, cart)
	require.NoError(t, err)
	assert.Equal(t, "7", result.Order.TableNumber)

	mine, err := f.svc.ListMine(context.Background(), caller)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListMine(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

type collidingStore struct {
	*database.Memory
	collisions int
	numbers    []string
}

func (s *collidingStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.numbers = append(s.numbers, order.OrderNumber)
	if s.collisions > 0 {
		s.collisions--
		return models.ErrDuplicateOrderNumber
	}
	return s.Memory.CreateOrder(ctx, order)
}

func TestCreateRetriesOrderNumberCollisions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := database.NewMemory()
	item := &models.MenuItem{Name: "Thali", Price: 100, PreparationTime: 10, IsAvailable: true}
	require.NoError(t, mem.CreateMenuItem(context.Background(), item))

	store := &collidingStore{Memory: mem, collisions: 2}
	svc := NewService(store, mem, stock.NewLedger(mem, logger), payment.NewFakeGateway("INR", testSecret),
		payment.NewVerifier(testSecret), &recorder{}, logger)
	_, err := svc.Create(context.Background(), models.Identity{}, cashCart(line(item, 1)))
	require.NoError(t, err)
	assert.Len(t, store.numbers, 3)

	store.collisions = 3
	store.numbers = nil
	_, err = svc.Create(context.Background(), models.Identity{}, cashCart(line(item, 1)))
	assert.ErrorIs(t, err, models.ErrDuplicateOrderNumber)
	assert.Len(t, store.numbers, 3)
}

func TestUPIPaymentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)

	cart := cashCart(line(a, 2))
	cart.PaymentMethod = models.PaymentUPI
	result, err := f.svc.Create(ctx, models.Identity{}, cart)
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 1, f.gateway.calls)
	assert.EqualValues(t, 21000, result.Payment.Amount)
	assert.Equal(t, result.Order.OrderNumber, result.Payment.Receipt)
	assert.Equal(t, models.StatusPending, result.Order.Status)
	assert.Equal(t, 10, f.stockOf(t, a))
	assert.Empty(t, f.events.types())

	req := VerifyRequest{
		GatewayOrderID:   result.Payment.ID,
		GatewayPaymentID: "pay_123",
		Signature:        payment.Sign(result.Payment.ID, "pay_123", testSecret),
	}
	order, err := f.svc.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
	assert.Equal(t, models.StatusConfirmed, order.Status)
	assert.Equal(t, "pay_123", order.Gateway.PaymentID)
	assert.Equal(t, 8, f.stockOf(t, a))
	assert.Equal(t, []models.EventType{models.EventStatusUpdate, models.EventNewOrder}, f.events.types())

	again, err := f.svc.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, again.Status)
	assert.Equal(t, 8, f.stockOf(t, a))
	assert.Len(t, f.events.types(), 2)
}

func TestUPIPaymentMismatchKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)

	cart := cashCart(line(a, 1))
	cart.PaymentMethod = models.PaymentUPI
	result, err := f.svc.Create(ctx, models.Identity{}, cart)
	require.NoError(t, err)

	_, err = f.svc.VerifyPayment(ctx, VerifyRequest{
		GatewayOrderID:   result.Payment.ID,
		GatewayPaymentID: "pay_123",
		Signature:        payment.Sign(result.Payment.ID, "pay_123", "wrong-secret"),
	})
	assert.ErrorIs(t, err, models.ErrPaymentVerification)

	saved, err := f.store.GetOrder(ctx, result.Order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, saved.PaymentStatus)
	assert.Equal(t, models.StatusPending, saved.Status)
	assert.Equal(t, 10, f.stockOf(t, a))
	assert.Empty(t, f.events.types())

	_, err = f.svc.VerifyPayment(ctx, VerifyRequest{GatewayOrderID: "order_unknown", GatewayPaymentID: "p", Signature: "s"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func (f *fixture) upiOrder(t *testing.T, item *models.MenuItem, qty int) *CreateResult {
	t.Helper()
	cart := cashCart(line(item, qty))
	cart.PaymentMethod = models.PaymentUPI
	result, err := f.svc.Create(context.Background(), models.Identity{}, cart)
	require.NoError(t, err)
	return result
}

func signedRequest(gatewayOrderID, paymentID string) VerifyRequest {
	return VerifyRequest{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        payment.Sign(gatewayOrderID, paymentID, testSecret),
	}
}

func TestVerifyPaymentRejectsCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)
	result := f.upiOrder(t, a, 2)

	_, err := f.svc.Transition(ctx, result.Order.ID.Hex(), models.StatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.VerifyPayment(ctx, signedRequest(result.Payment.ID, "pay_late"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	saved, err := f.store.GetOrder(ctx, result.Order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, saved.Status)
	assert.Equal(t, models.PaymentPending, saved.PaymentStatus)
	assert.Empty(t, saved.Gateway.PaymentID)
	assert.Equal(t, 10, f.stockOf(t, a))
}

func TestVerifyPaymentFinishesInterruptedConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)
	result := f.upiOrder(t, a, 3)

	// The payment write landed but the confirm step never ran.
	_, err := f.store.UpdatePaymentStatus(ctx, result.Order.ID.Hex(),
		models.PaymentPending, models.PaymentCompleted, "pay_1", f.now)
	require.NoError(t, err)

	order, err := f.svc.VerifyPayment(ctx, signedRequest(result.Payment.ID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
	assert.Equal(t, 7, f.stockOf(t, a))
	assert.Equal(t, []models.EventType{models.EventStatusUpdate, models.EventNewOrder}, f.events.types())

	again, err := f.svc.VerifyPayment(ctx, signedRequest(result.Payment.ID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, again.Status)
	assert.Equal(t, 7, f.stockOf(t, a))
	assert.Len(t, f.events.types(), 2)
}

func TestFailPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)
	result := f.upiOrder(t, a, 1)

	order, err := f.svc.FailPayment(ctx, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, order.PaymentStatus)
	assert.Equal(t, models.StatusPending, order.Status)

	// A later successful attempt still settles the order.
	order, err = f.svc.VerifyPayment(ctx, signedRequest(result.Payment.ID, "pay_2"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, order.Status)

	_, err = f.svc.FailPayment(ctx, result.Payment.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = f.svc.FailPayment(ctx, "order_unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)

	result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)
	id := result.Order.ID.Hex()

	_, err = f.svc.Transition(ctx, id, models.StatusPreparing)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = f.svc.Transition(ctx, id, models.StatusPending)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = f.svc.Transition(ctx, id, "shipped")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	for _, to := range []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		order, err := f.svc.Transition(ctx, id, to)
		require.NoError(t, err)
		assert.Equal(t, to, order.Status)
	}
	// Stock was consumed when the cash order was placed, not again on confirm.
	assert.Equal(t, 9, f.stockOf(t, a))

	for _, to := range []models.OrderStatus{models.StatusCancelled, models.StatusReady, models.StatusCompleted} {
		_, err = f.svc.Transition(ctx, id, to)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
}

func TestCancelDoesNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 10, 10)

	result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 3)))
	require.NoError(t, err)
	order, err := f.svc.Transition(ctx, result.Order.ID.Hex(), models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, order.Status)
	assert.Equal(t, 7, f.stockOf(t, a))

	_, err = f.svc.Transition(ctx, result.Order.ID.Hex(), models.StatusConfirmed)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDueTransition(t *testing.T) {
	created := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	order := &models.Order{Status: models.StatusConfirmed, MaxPrepTime: 20, CreatedAt: created}

	_, ok := DueTransition(order, created.Add(119*time.Second))
	assert.False(t, ok)
	next, ok := DueTransition(order, created.Add(2*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, models.StatusPreparing, next)

	order.Status = models.StatusPreparing
	_, ok = DueTransition(order, created.Add(15*time.Minute))
	assert.False(t, ok)
	next, ok = DueTransition(order, created.Add(16*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, models.StatusReady, next)

	for _, status := range []models.OrderStatus{models.StatusPending, models.StatusReady, models.StatusCompleted, models.StatusCancelled} {
		order.Status = status
		_, ok = DueTransition(order, created.Add(24*time.Hour))
		assert.False(t, ok, status)
	}
}

func TestAdvanceDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 0, 0)

	result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)
	id := result.Order.ID.Hex()
	_, err = f.svc.Transition(ctx, id, models.StatusConfirmed)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	n, err := f.svc.AdvanceDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.svc.Advance(ctx, id)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	f.now = f.now.Add(time.Minute)
	n, err = f.svc.AdvanceDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.now = f.now.Add(14 * time.Minute)
	order, err := f.svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, order.Status)

	n, err = f.svc.AdvanceDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkCashCollected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 0, 0)

	result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)
	order, err := f.svc.MarkCashCollected(ctx, result.Order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)

	order, err = f.svc.MarkCashCollected(ctx, result.Order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)

	cart := cashCart(line(a, 1))
	cart.PaymentMethod = models.PaymentUPI
	upi, err := f.svc.Create(ctx, models.Identity{}, cart)
	require.NoError(t, err)
	_, err = f.svc.MarkCashCollected(ctx, upi.Order.ID.Hex())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMarkCashCollectedRejectsTerminalOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 0, 0)

	for _, path := range [][]models.OrderStatus{
		{models.StatusCancelled},
		{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusCompleted},
	} {
		result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
		require.NoError(t, err)
		id := result.Order.ID.Hex()
		for _, to := range path {
			_, err := f.svc.Transition(ctx, id, to)
			require.NoError(t, err)
		}

		_, err = f.svc.MarkCashCollected(ctx, id)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		saved, err := f.store.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, saved.PaymentStatus)
	}
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 0, 0)

	result, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	tracked, err := f.svc.Track(ctx, result.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 15, tracked.TimeRemaining)
	assert.Equal(t, result.Order.CreatedAt.Add(25*time.Minute), tracked.EstimatedCompletion)

	_, err = f.svc.Track(ctx, "CC-00000000-000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.item(t, "Thali", 100, 20, 0, 0)

	first, err := f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, models.Identity{}, cashCart(line(a, 1)))
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, first.Order.ID.Hex(), models.StatusConfirmed)
	require.NoError(t, err)

	all, err := f.svc.ListByStatus(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	confirmed, err := f.svc.ListByStatus(ctx, models.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.Order.ID, confirmed[0].ID)

	_, err = f.svc.ListByStatus(ctx, "lost")
	assert.ErrorIs(t, err, models.ErrValidation)
}
