package controllers

import (
	"net/http"

	"campus-cravings/middleware"
	"campus-cravings/models"
	"campus-cravings/services/orders"

	"github.com/gin-gonic/gin"
)

// CreateOrder answers 201 with the order for cash and 200 with the gateway
// handle for UPI, which stays unconfirmed until VerifyPayment.
func CreateOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var cart models.Cart
		if err := c.ShouldBindJSON(&cart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := svc.Create(ctx, middleware.IdentityFrom(c), cart)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.Payment != nil {
			c.JSON(http.StatusOK, gin.H{
				"success":       true,
				"message":       "Complete the payment to confirm your order",
				"razorpayOrder": result.Payment,
				"order":         result.Order,
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order placed successfully", "order": result.Order})
	}
}

func VerifyPayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req orders.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := svc.VerifyPayment(ctx, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified", "order": order})
	}
}

func TrackOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		tracked, err := svc.Track(ctx, c.Param("orderNumber"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": tracked})
	}
}

func GetMyOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListMine(ctx, middleware.IdentityFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	}
}

func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListByStatus(ctx, models.OrderStatus(c.Query("status")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	}
}

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
	}
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		order, err := svc.Transition(ctx, c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
	}
}

func AdvanceOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.Advance(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
	}
}

func MarkCashCollected(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.MarkCashCollected(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
	}
}
