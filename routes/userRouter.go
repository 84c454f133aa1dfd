package routes

import (
	controller "campus-cravings/controllers"

	"github.com/gin-gonic/gin"
)

func UserRoutes(incomingRoutes *gin.Engine, deps Dependencies) {
	incomingRoutes.POST("/users/signup", controller.SignUp(deps.Users, deps.Secret))
	incomingRoutes.POST("/users/login", controller.Login(deps.Users, deps.Secret))
}
