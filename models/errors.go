package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPaymentVerification  = errors.New("payment verification failed")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrForbidden            = errors.New("forbidden")
	// ErrStaleStatus is returned by stores when a compare-and-set on status
	// finds the order in a different state than expected.
	ErrStaleStatus = errors.New("order status changed concurrently")
)

type StockShortage struct {
	Item      string `json:"item"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Message   string `json:"message"`
}

// InsufficientStockError lists every cart line that cannot be served.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.Item, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}
