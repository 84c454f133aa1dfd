package orders

import (
	"fmt"
	"time"

	"campus-cravings/models"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusCompleted, models.StatusCancelled},
}

const (
	// PreparingAfter is how long a confirmed order waits before the kitchen
	// is assumed to have started on it.
	PreparingAfter = 2 * time.Minute
	readyFraction  = 0.8
)

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
	}
	return nil
}

// DueTransition returns the status the order should move to on time alone.
// Only confirmed and preparing orders advance automatically.
func DueTransition(order *models.Order, now time.Time) (models.OrderStatus, bool) {
	elapsed := now.Sub(order.CreatedAt)
	switch order.Status {
	case models.StatusConfirmed:
		if elapsed >= PreparingAfter {
			return models.StatusPreparing, true
		}
	case models.StatusPreparing:
		prep := order.MaxPrepTime
		if prep == 0 {
			prep = models.DefaultPreparationTime
		}
		if elapsed >= time.Duration(float64(prep)*readyFraction*float64(time.Minute)) {
			return models.StatusReady, true
		}
	}
	return "", false
}
