package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentUPI  PaymentMethod = "upi"
	PaymentCash PaymentMethod = "cash"
)

type OrderType string

const (
	OrderPickup OrderType = "pickup"
	OrderDineIn OrderType = "dine-in"
)

// DefaultTableNumber is assigned to dine-in orders that omit a table.
const DefaultTableNumber = "1"

type OrderItem struct {
	MenuItem        primitive.ObjectID `bson:"menuItem" json:"menuItem"`
	Name            string             `bson:"name" json:"name"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	Customizations  map[string]string  `bson:"customizations" json:"customizations"`
	Price           float64            `bson:"price" json:"price"`
	ItemTotal       float64            `bson:"itemTotal" json:"itemTotal"`
	PreparationTime int                `bson:"preparationTime" json:"preparationTime"`
}

type GatewayRef struct {
	OrderID   string `bson:"orderId,omitempty" json:"orderId,omitempty"`
	PaymentID string `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
}

type Order struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	OrderNumber       string             `bson:"orderNumber" json:"orderNumber"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Customer          Customer           `bson:"customer" json:"customer"`
	OrderType         OrderType          `bson:"orderType" json:"orderType"`
	TableNumber       string             `bson:"tableNumber,omitempty" json:"tableNumber,omitempty"`
	PaymentMethod     PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus     PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	Status            OrderStatus        `bson:"status" json:"status"`
	Subtotal          float64            `bson:"subtotal" json:"subtotal"`
	Tax               float64            `bson:"tax" json:"tax"`
	TotalAmount       float64            `bson:"totalAmount" json:"totalAmount"`
	EstimatedTime     int                `bson:"estimatedTime" json:"estimatedTime"`
	MaxPrepTime       int                `bson:"maxPrepTime" json:"maxPrepTime"`
	Gateway           GatewayRef         `bson:"gateway" json:"gateway"`
	StockApplied      bool               `bson:"stockApplied" json:"-"`
	FeedbackSubmitted bool               `bson:"feedbackSubmitted" json:"feedbackSubmitted"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	StatusChangedAt   time.Time          `bson:"statusChangedAt" json:"statusChangedAt"`
}

// HasMenuItem reports whether the order contains a line for the menu item.
func (o *Order) HasMenuItem(id primitive.ObjectID) bool {
	for _, item := range o.Items {
		if item.MenuItem == id {
			return true
		}
	}
	return false
}

// EstimatedCompletion is createdAt plus the estimated preparation time.
func (o *Order) EstimatedCompletion() time.Time {
	return o.CreatedAt.Add(time.Duration(o.EstimatedTime) * time.Minute)
}

// TimeRemaining returns whole minutes left until EstimatedCompletion, never negative.
func (o *Order) TimeRemaining(now time.Time) int {
	left := o.EstimatedCompletion().Sub(now)
	if left <= 0 {
		return 0
	}
	minutes := int(left / time.Minute)
	if left%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// CartItem is one line of a submitted cart. Name and Price are what the client
// displayed; the builder replaces both with the menu snapshot.
type CartItem struct {
	Item           string            `json:"item"`
	Name           string            `json:"name"`
	Quantity       int               `json:"quantity"`
	Customizations map[string]string `json:"customizations"`
	Price          float64           `json:"price"`
}

// Cart is the order creation request.
type Cart struct {
	Items         []CartItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	OrderType     OrderType     `json:"orderType"`
	TableNumber   string        `json:"tableNumber"`
	GuestInfo     *GuestInfo    `json:"guestInfo"`
	TotalAmount   float64       `json:"totalAmount"`
}
