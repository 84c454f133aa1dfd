package routes

import (
	"campus-cravings/controllers"
	"campus-cravings/middleware"

	"github.com/gin-gonic/gin"
)

func OrderRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	incomingRoutes.POST("/api/orders", controllers.CreateOrder(deps.Orders))
	incomingRoutes.POST("/api/orders/verify", controllers.VerifyPayment(deps.Orders))
	incomingRoutes.GET("/api/orders/track/:orderNumber", controllers.TrackOrder(deps.Orders))
	incomingRoutes.GET("/api/orders/my", middleware.RequireUser(), controllers.GetMyOrders(deps.Orders))

	admin := incomingRoutes.Group("/api/admin/orders", middleware.RequireAdmin())
	admin.GET("", controllers.GetOrders(deps.Orders))
	admin.GET("/:id", controllers.GetOrder(deps.Orders))
	admin.PUT("/:id/status", controllers.UpdateOrderStatus(deps.Orders))
	admin.POST("/:id/advance", controllers.AdvanceOrder(deps.Orders))
	admin.POST("/:id/payment", controllers.MarkCashCollected(deps.Orders))
}
