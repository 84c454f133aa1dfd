package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 the gateway sends back for a successful
// payment: the key is the gateway secret, the message is "orderId|paymentId".
func Sign(gatewayOrderID, gatewayPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the signature in constant time.
func Verify(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(gatewayOrderID, gatewayPaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verifier binds Verify to one gateway secret.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return Verify(gatewayOrderID, gatewayPaymentID, signature, v.secret)
}
