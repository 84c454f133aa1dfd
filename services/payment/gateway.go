package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

var ErrGateway = errors.New("payment gateway error")

// Handle is what the client needs to open the gateway checkout.
type Handle struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"keyId"`
}

type Gateway interface {
	// CreateOrder registers a payment of amount rupees and returns the
	// gateway's order handle. The receipt is our order number.
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*Handle, error)
}

// ToPaise converts rupees to the smallest currency unit.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type RazorpayGateway struct {
	client   *razorpay.Client
	keyID    string
	currency string
	logger   *slog.Logger
}

func NewRazorpayGateway(keyID, secret, currency string, logger *slog.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		client:   razorpay.NewClient(keyID, secret),
		keyID:    keyID,
		currency: currency,
		logger:   logger.With("component", "razorpay"),
	}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paise := ToPaise(amount)
	data := map[string]interface{}{
		"amount":          paise,
		"currency":        g.currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: response without order id", ErrGateway)
	}
	g.logger.Info("gateway order created", "gatewayOrderId", id, "receipt", receipt, "amount", paise)
	return &Handle{ID: id, Amount: paise, Currency: g.currency, Receipt: receipt, KeyID: g.keyID}, nil
}

// FakeGateway issues local order ids for development and tests. It plays
// the checkout too: Complete signs a payment the way the real gateway would,
// so the verifier runs unchanged.
type FakeGateway struct {
	keyID    string
	currency string
	secret   string
}

func NewFakeGateway(currency, secret string) *FakeGateway {
	return &FakeGateway{keyID: "fake_key", currency: currency, secret: secret}
}

func (g *FakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Handle{
		ID:       "fake_ord_" + uuid.NewString(),
		Amount:   ToPaise(amount),
		Currency: g.currency,
		Receipt:  receipt,
		KeyID:    g.keyID,
	}, nil
}

// Complete returns a fresh payment id for the gateway order and its
// callback signature.
func (g *FakeGateway) Complete(gatewayOrderID string) (paymentID, signature string) {
	paymentID = "fake_pay_" + uuid.NewString()
	return paymentID, Sign(gatewayOrderID, paymentID, g.secret)
}
