package routes

import (
	controller "campus-cravings/controllers"
	"campus-cravings/middleware"

	"github.com/gin-gonic/gin"
)

func MenuRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	incomingRoutes.GET("/api/menu", controller.GetMenus(deps.Menu))
	incomingRoutes.GET("/api/menu/:id", controller.GetMenu(deps.Menu))
	incomingRoutes.GET("/api/menu/popular/items", controller.GetPopularMenus(deps.Menu))
	incomingRoutes.GET("/api/menu/categories/all", controller.GetMenuCategories(deps.Menu))

	admin := incomingRoutes.Group("/api/admin/menu", middleware.RequireAdmin())
	admin.POST("", controller.CreateMenu(deps.Menu))
	admin.PUT("/:id", controller.UpdateMenu(deps.Menu))
	admin.DELETE("/:id", controller.DeleteMenu(deps.Menu))
}
