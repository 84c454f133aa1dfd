package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVerifyAcceptsOwnSignature(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orderID := rapid.StringMatching(`order_[A-Za-z0-9]{4,14}`).Draw(t, "orderID")
		paymentID := rapid.StringMatching(`pay_[A-Za-z0-9]{4,14}`).Draw(t, "paymentID")
		secret := rapid.StringMatching(`[A-Za-z0-9]{8,32}`).Draw(t, "secret")

		assert.True(t, Verify(orderID, paymentID, Sign(orderID, paymentID, secret), secret))
	})
}

func TestVerifyRejectsSingleCharacterMutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sig := Sign("order_abc", "pay_xyz", "s3cret")
		pos := rapid.IntRange(0, len(sig)-1).Draw(t, "pos")
		replacement := rapid.SampledFrom([]byte("0123456789abcdef")).Draw(t, "char")
		if sig[pos] == replacement {
			t.Skip("no-op mutation")
		}
		mutated := sig[:pos] + string(replacement) + sig[pos+1:]

		assert.False(t, Verify("order_abc", "pay_xyz", mutated, "s3cret"))
	})
}

func TestVerifyRejects(t *testing.T) {
	sig := Sign("order_abc", "pay_xyz", "s3cret")

	tests := map[string]struct {
		orderID, paymentID, signature, secret string
	}{
		"wrongSecret":    {"order_abc", "pay_xyz", sig, "other"},
		"swappedIDs":     {"pay_xyz", "order_abc", sig, "s3cret"},
		"emptySignature": {"order_abc", "pay_xyz", "", "s3cret"},
		"emptySecret":    {"order_abc", "pay_xyz", sig, ""},
		"uppercase":      {"order_abc", "pay_xyz", strings.ToUpper(sig), "s3cret"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Verify(tt.orderID, tt.paymentID, tt.signature, tt.secret))
		})
	}
}

func TestVerifierBindsSecret(t *testing.T) {
	v := NewVerifier("s3cret")
	assert.True(t, v.Verify("order_abc", "pay_xyz", Sign("order_abc", "pay_xyz", "s3cret")))
	assert.False(t, v.Verify("order_abc", "pay_xyz", Sign("order_abc", "pay_xyz", "other")))
}

func TestToPaise(t *testing.T) {
	assert.EqualValues(t, 26250, ToPaise(decimal.RequireFromString("262.5")))
	assert.EqualValues(t, 10, ToPaise(decimal.RequireFromString("0.1")))
	assert.EqualValues(t, 105, ToPaise(decimal.RequireFromString("1.05")))
}

func TestFakeGateway(t *testing.T) {
	g := NewFakeGateway("INR", "fake-secret")
	handle, err := g.CreateOrder(context.Background(), decimal.RequireFromString("262.50"), "CC-20240101-123456")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle.ID, "fake_ord_"))
	assert.EqualValues(t, 26250, handle.Amount)
	assert.Equal(t, "INR", handle.Currency)
	assert.Equal(t, "CC-20240101-123456", handle.Receipt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.CreateOrder(ctx, decimal.NewFromInt(1), "r")
	assert.Error(t, err)
}

func TestFakeGatewayCompleteSigns(t *testing.T) {
	g := NewFakeGateway("INR", "fake-secret")
	paymentID, signature := g.Complete("fake_ord_1")
	assert.True(t, strings.HasPrefix(paymentID, "fake_pay_"))
	assert.True(t, NewVerifier("fake-secret").Verify("fake_ord_1", paymentID, signature))
	assert.False(t, NewVerifier("other").Verify("fake_ord_1", paymentID, signature))

	again, _ := g.Complete("fake_ord_1")
	assert.NotEqual(t, paymentID, again)
}
