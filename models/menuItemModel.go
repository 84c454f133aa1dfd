package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category string

const (
	CategoryDrinks   Category = "drinks"
	CategoryMeals    Category = "meals"
	CategorySnacks   Category = "snacks"
	CategoryDesserts Category = "desserts"
)

// DefaultPreparationTime is used when a menu item is created without one.
const DefaultPreparationTime = 15

type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

type MenuItem struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	Name            string             `bson:"name" json:"name" validate:"required,min=1,max=100"`
	Description     string             `bson:"description" json:"description" validate:"required"`
	Price           float64            `bson:"price" json:"price" validate:"min=0"`
	Category        Category           `bson:"category" json:"category" validate:"required,oneof=drinks meals snacks desserts"`
	Image           string             `bson:"image" json:"image"`
	IsVeg           bool               `bson:"isVeg" json:"isVeg"`
	IsAvailable     bool               `bson:"isAvailable" json:"isAvailable"`
	DailyStock      int                `bson:"dailyStock" json:"dailyStock" validate:"min=0"`
	CurrentStock    int                `bson:"currentStock" json:"currentStock" validate:"min=0"`
	IsOutOfStock    bool               `bson:"isOutOfStock" json:"isOutOfStock"`
	PreparationTime int                `bson:"preparationTime" json:"preparationTime" validate:"min=5"`
	Rating          Rating             `bson:"rating" json:"rating"`
	Tags            []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsPopular       bool               `bson:"isPopular" json:"isPopular"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Tracked reports whether the item takes part in daily stock accounting.
func (m *MenuItem) Tracked() bool {
	return m.DailyStock > 0
}

// ApplyStockFlags recomputes the derived availability flags for tracked items.
// Untracked items keep whatever isAvailable was set to by an admin.
func (m *MenuItem) ApplyStockFlags() {
	if !m.Tracked() {
		m.IsOutOfStock = false
		return
	}
	if m.CurrentStock < 0 {
		m.CurrentStock = 0
	}
	m.IsOutOfStock = m.CurrentStock <= 0
	m.IsAvailable = m.CurrentStock > 0
}

// Orderable reports whether qty units can be ordered right now.
func (m *MenuItem) Orderable(qty int) bool {
	if !m.Tracked() {
		return m.IsAvailable
	}
	return m.CurrentStock >= qty
}

// MenuItemUpdate carries admin edits. Nil fields are left untouched; stock is
// edited through the stock endpoints only.
type MenuItemUpdate struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description     *string   `json:"description"`
	Price           *float64  `json:"price" validate:"omitempty,min=0"`
	Category        *Category `json:"category" validate:"omitempty,oneof=drinks meals snacks desserts"`
	Image           *string   `json:"image"`
	IsVeg           *bool     `json:"isVeg"`
	IsAvailable     *bool     `json:"isAvailable"`
	PreparationTime *int      `json:"preparationTime" validate:"omitempty,min=5"`
	Tags            []string  `json:"tags"`
	IsPopular       *bool     `json:"isPopular"`
}

// Apply copies the set fields onto item.
func (u MenuItemUpdate) Apply(item *MenuItem) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Image != nil {
		item.Image = *u.Image
	}
	if u.IsVeg != nil {
		item.IsVeg = *u.IsVeg
	}
	if u.IsAvailable != nil && !item.Tracked() {
		item.IsAvailable = *u.IsAvailable
	}
	if u.PreparationTime != nil {
		item.PreparationTime = *u.PreparationTime
	}
	if u.Tags != nil {
		item.Tags = u.Tags
	}
	if u.IsPopular != nil {
		item.IsPopular = *u.IsPopular
	}
}

type DailyStockUpdate struct {
	ItemID     string `json:"itemId" validate:"required"`
	DailyStock int    `json:"dailyStock" validate:"min=0"`
}
