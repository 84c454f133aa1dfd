package routes

import (
	controller "campus-cravings/controllers"
	"campus-cravings/middleware"

	"github.com/gin-gonic/gin"
)

func SocketRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	incomingRoutes.GET("/ws", controller.HandleWebSocket(deps.Hub))
	incomingRoutes.GET("/ws/admin", middleware.RequireAdmin(), controller.HandleAdminWebSocket(deps.Hub))
}
