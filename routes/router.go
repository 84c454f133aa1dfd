package routes

import (
	"net/http"
	"time"

	"campus-cravings/controllers"
	"campus-cravings/middleware"
	"campus-cravings/services/notify"
	"campus-cravings/services/orders"
	"campus-cravings/services/payment"
	"campus-cravings/services/stock"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the handlers are built from.
type Dependencies struct {
	Orders         *orders.Service
	Feedback       *orders.FeedbackService
	Stock          *stock.Ledger
	Menu           controllers.MenuStore
	Users          controllers.UserStore
	Hub            *notify.Hub
	FakeGateway    *payment.FakeGateway
	Secret         string
	AllowedOrigins []string
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"POST", "GET", "PATCH", "DELETE", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Identify(deps.Secret))

	router.GET("/api/health", controllers.Health())
	UserRoutes(router, deps)
	MenuRoutes(router, deps)
	OrderRoutes(router, deps)
	StockRoutes(router, deps)
	FeedbackRoutes(router, deps)
	PaymentRoutes(router, deps)
	SocketRoutes(router, deps)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Page not found"})
	})
	return router
}
