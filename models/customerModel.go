package models

import "fmt"

type CustomerKind string

const (
	CustomerRegistered CustomerKind = "registered"
	CustomerGuest      CustomerKind = "guest"
)

type GuestInfo struct {
	Name  string `bson:"name" json:"name" validate:"required"`
	Phone string `bson:"phone" json:"phone" validate:"required"`
	Email string `bson:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
}

// Customer is a tagged union: Kind selects which of UserID or Guest is set.
// Build it with RegisteredCustomer or GuestCustomer.
type Customer struct {
	Kind   CustomerKind `bson:"kind" json:"kind"`
	UserID string       `bson:"userId,omitempty" json:"userId,omitempty"`
	Email  string       `bson:"email,omitempty" json:"email,omitempty"`
	Guest  *GuestInfo   `bson:"guest,omitempty" json:"guest,omitempty"`
}

func RegisteredCustomer(userID, email string) Customer {
	return Customer{Kind: CustomerRegistered, UserID: userID, Email: email}
}

func GuestCustomer(info GuestInfo) Customer {
	return Customer{Kind: CustomerGuest, Guest: &info}
}

// Validate enforces that exactly one side of the union is populated.
func (c Customer) Validate() error {
	switch c.Kind {
	case CustomerRegistered:
		if c.UserID == "" {
			return fmt.Errorf("%w: registered customer without user id", ErrValidation)
		}
		if c.Guest != nil {
			return fmt.Errorf("%w: registered customer carries guest details", ErrValidation)
		}
	case CustomerGuest:
		if c.Guest == nil {
			return fmt.Errorf("%w: guest details are required", ErrValidation)
		}
		if c.UserID != "" {
			return fmt.Errorf("%w: guest customer carries a user id", ErrValidation)
		}
		if c.Guest.Name == "" || c.Guest.Phone == "" {
			return fmt.Errorf("%w: guest name and phone are required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown customer kind %q", ErrValidation, c.Kind)
	}
	return nil
}

// ContactEmail is the email used to match the customer across orders.
func (c Customer) ContactEmail() string {
	if c.Kind == CustomerGuest && c.Guest != nil {
		return c.Guest.Email
	}
	return c.Email
}

// Identity is the caller as resolved by the auth middleware.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

func (i Identity) Registered() bool {
	return i.UserID != ""
}

func (i Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// Owns reports whether the caller may act on an order placed by c. Guests
// are matched by the email they supply.
func (i Identity) Owns(c Customer, guestEmail string) bool {
	if i.Registered() {
		if c.Kind == CustomerRegistered && c.UserID == i.UserID {
			return true
		}
		return i.Email != "" && c.ContactEmail() == i.Email
	}
	return guestEmail != "" && c.Kind == CustomerGuest && c.ContactEmail() == guestEmail
}
