package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Feedback struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Order     primitive.ObjectID `bson:"order" json:"order"`
	MenuItem  primitive.ObjectID `bson:"menuItem" json:"menuItem"`
	Rater     Customer           `bson:"rater" json:"rater"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type FeedbackRequest struct {
	OrderID    string `json:"orderId" validate:"required"`
	MenuItemID string `json:"menuItemId" validate:"required"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	Comment    string `json:"comment" validate:"max=1000"`
	GuestEmail string `json:"guestEmail" validate:"omitempty,email"`
}
