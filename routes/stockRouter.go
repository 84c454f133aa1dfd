package routes

import (
	controller "campus-cravings/controllers"
	"campus-cravings/middleware"

	"github.com/gin-gonic/gin"
)

func StockRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	admin := incomingRoutes.Group("/api/admin/stock", middleware.RequireAdmin())
	admin.GET("/status", controller.GetStockStatus(deps.Stock))
	admin.POST("/reset", controller.ResetStock(deps.Stock))
	admin.PUT("/bulk-update", controller.BulkUpdateStock(deps.Stock))
	admin.PUT("/:id", controller.UpdateStock(deps.Stock))
}
