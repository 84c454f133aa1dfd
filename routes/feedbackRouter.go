package routes

import (
	controller "campus-cravings/controllers"
	"campus-cravings/middleware"

	"github.com/gin-gonic/gin"
)

func FeedbackRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	incomingRoutes.POST("/api/feedback", controller.SubmitFeedback(deps.Feedback))
	incomingRoutes.GET("/api/feedback/menu-item/:id", controller.GetMenuItemFeedback(deps.Feedback))
	incomingRoutes.GET("/api/feedback/my-feedback", middleware.RequireUser(), controller.GetMyFeedback(deps.Feedback))
}
