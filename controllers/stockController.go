package controllers

import (
	"net/http"

	"campus-cravings/models"
	"campus-cravings/services/stock"

	"github.com/gin-gonic/gin"
)

func GetStockStatus(ledger *stock.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		report, err := ledger.Status(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
	}
}

type stockRequest struct {
	DailyStock   int  `json:"dailyStock" validate:"min=0"`
	CurrentStock *int `json:"currentStock" validate:"omitempty,min=0"`
}

// UpdateStock sets an item's stock. Omitting currentStock refills to the
// new daily value.
func UpdateStock(ledger *stock.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req stockRequest
		if !bindJSON(c, &req) {
			return
		}
		current := req.DailyStock
		if req.CurrentStock != nil {
			current = *req.CurrentStock
		}
		item, err := ledger.SetStock(ctx, c.Param("id"), req.DailyStock, current)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
	}
}

func ResetStock(ledger *stock.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		n, err := ledger.ResetDaily(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Daily stock reset", "itemsReset": n})
	}
}

type bulkStockRequest struct {
	Updates []models.DailyStockUpdate `json:"updates" validate:"required,min=1,dive"`
}

func BulkUpdateStock(ledger *stock.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req bulkStockRequest
		if !bindJSON(c, &req) {
			return
		}
		n, err := ledger.BulkSetDaily(ctx, req.Updates)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "itemsUpdated": n})
	}
}
