package controllers

import (
	"context"
	"net/http"
	"time"

	"campus-cravings/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MenuStore interface {
	ListMenuItems(ctx context.Context, category models.Category) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	ListPopularMenuItems(ctx context.Context, limit int64) ([]models.MenuItem, error)
	ListMenuCategories(ctx context.Context) ([]models.Category, error)
}

const popularLimit = 6

func GetMenus(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := store.ListMenuItems(ctx, models.Category(c.Query("category")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Menu items fetched successfully",
			"data":    items,
		})
	}
}

func GetMenu(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		item, err := store.GetMenuItem(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
	}
}

func GetPopularMenus(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := store.ListPopularMenuItems(ctx, popularLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	}
}

func GetMenuCategories(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := store.ListMenuCategories(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": categories})
	}
}

// menuItemRequest lets create distinguish omitted fields from zero values.
type menuItemRequest struct {
	models.MenuItem
	CurrentStock *int  `json:"currentStock"`
	IsAvailable  *bool `json:"isAvailable"`
}

func CreateMenu(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var req menuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item := req.MenuItem
		if item.PreparationTime == 0 {
			item.PreparationTime = models.DefaultPreparationTime
		}
		item.IsAvailable = req.IsAvailable == nil || *req.IsAvailable
		if req.CurrentStock != nil {
			item.CurrentStock = *req.CurrentStock
		} else if item.Tracked() {
			item.CurrentStock = item.DailyStock
		}
		if err := validate.Struct(&item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item.ApplyStockFlags()
		item.ID = primitive.NewObjectID()
		item.CreatedAt = time.Now().UTC()
		item.UpdatedAt = item.CreatedAt
		item.Rating = models.Rating{}

		if err := store.CreateMenuItem(ctx, &item); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": item})
	}
}

func UpdateMenu(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		var update models.MenuItemUpdate
		if !bindJSON(c, &update) {
			return
		}
		item, err := store.UpdateMenuItem(ctx, c.Param("id"), update)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
	}
}

// DeleteMenu removes the item. Orders and feedback that reference it keep
// their snapshots.
func DeleteMenu(store MenuStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		if err := store.DeleteMenuItem(ctx, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Menu item deleted successfully"})
	}
}
