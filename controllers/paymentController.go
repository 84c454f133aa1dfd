package controllers

import (
	"net/http"

	"campus-cravings/services/orders"
	"campus-cravings/services/payment"

	"github.com/gin-gonic/gin"
)

type fakePaymentRequest struct {
	GatewayOrderID string `json:"razorpay_order_id" validate:"required"`
}

// FakeCheckout completes a payment through the fake gateway and settles the
// order with the signed callback, the same way a real checkout would.
func FakeCheckout(gateway *payment.FakeGateway, svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req fakePaymentRequest
		if !bindJSON(c, &req) {
			return
		}
		paymentID, signature := gateway.Complete(req.GatewayOrderID)
		order, err := svc.VerifyPayment(ctx, orders.VerifyRequest{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: paymentID,
			Signature:        signature,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"order":   order,
			"message": "Payment verified successfully (fake payment mode)",
		})
	}
}

func SimulatePaymentFailure(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req fakePaymentRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := svc.FailPayment(ctx, req.GatewayOrderID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "order": order, "message": "Payment failed (simulated)"})
	}
}
