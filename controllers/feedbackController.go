package controllers

import (
	"net/http"

	"campus-cravings/middleware"
	"campus-cravings/models"
	"campus-cravings/services/orders"

	"github.com/gin-gonic/gin"
)

func SubmitFeedback(svc *orders.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req models.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		feedback, err := svc.Submit(ctx, middleware.IdentityFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Thanks for your feedback", "data": feedback})
	}
}

func GetMenuItemFeedback(svc *orders.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListForMenuItem(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	}
}

func GetMyFeedback(svc *orders.FeedbackService) gin.HandlerFunc {
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
