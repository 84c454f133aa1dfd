package routes

import (
	controller "campus-cravings/controllers"

	"github.com/gin-gonic/gin"
)

// PaymentRoutes exposes the checkout of the fake gateway. Nothing is
// registered when a real gateway is in use.
func PaymentRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	if deps.FakeGateway == nil {
		return
	}
	incomingRoutes.POST("/api/payment/verify", controller.FakeCheckout(deps.FakeGateway, deps.Orders))
	incomingRoutes.POST("/api/payment/simulate-failure", controller.SimulatePaymentFailure(deps.Orders))
}
