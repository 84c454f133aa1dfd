package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"campus-cravings/models"

	"github.com/shopspring/decimal"
)

const (
	minEstimatedTime = 15
	prepBuffer       = 5
)

var taxRate = decimal.RequireFromString("0.05")

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices each line from its snapshot and applies 5% tax,
// rounded to two decimals.
func ComputeTotals(lines []models.OrderItem) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(lineTotal(line))
	}
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

func lineTotal(line models.OrderItem) decimal.Decimal {
	return decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
}

func EstimatedTime(maxPrep int) int {
	return max(minEstimatedTime, maxPrep+prepBuffer)
}

// NewOrderNumber formats CC-YYYYMMDD-NNNNNN with six random digits.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("CC-%s-%06d", now.Format("20060102"), rand.IntN(1000000))
}

// build validates the cart against the menu and produces an unsaved order.
// Stock shortages are collected across all lines before failing, one per
// menu item.
func (s *Service) build(ctx context.Context, caller models.Identity, cart models.Cart) (*models.Order, error) {
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", models.ErrValidation)
	}
	if cart.PaymentMethod != models.PaymentUPI && cart.PaymentMethod != models.PaymentCash {
		return nil, fmt.Errorf("%w: unsupported payment method %q", models.ErrValidation, cart.PaymentMethod)
	}
	if cart.OrderType != models.OrderPickup && cart.OrderType != models.OrderDineIn {
		return nil, fmt.Errorf("%w: unsupported order type %q", models.ErrValidation, cart.OrderType)
	}

	customer, err := s.customerFor(caller, cart.GuestInfo)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Customer:      customer,
		OrderType:     cart.OrderType,
		PaymentMethod: cart.PaymentMethod,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPending,
		Items:         make([]models.OrderItem, 0, len(cart.Items)),
	}
	if cart.OrderType == models.OrderDineIn {
		order.TableNumber = cart.TableNumber
		if order.TableNumber == "" {
			order.TableNumber = models.DefaultTableNumber
		}
	}

	// Stock is checked against the total quantity of each item across lines.
	requested := make(map[string]int, len(cart.Items))
	for _, line := range cart.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %q must be at least 1", models.ErrValidation, line.Name)
		}
		requested[line.Item] += line.Quantity
	}

	var shortages []models.StockShortage
	short := make(map[string]bool)
	for _, line := range cart.Items {
		item, err := s.menu.GetMenuItem(ctx, line.Item)
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: menu item %s does not exist", models.ErrValidation, line.Item)
		}
		if err != nil {
			return nil, err
		}
		if !item.Orderable(requested[line.Item]) {
			if !short[line.Item] {
				short[line.Item] = true
				shortages = append(shortages, shortage(item, requested[line.Item]))
			}
			continue
		}

		prep := item.PreparationTime
		if prep == 0 {
			prep = models.DefaultPreparationTime
		}
		orderLine := models.OrderItem{
			MenuItem:        item.ID,
			Name:            item.Name,
			Quantity:        line.Quantity,
			Customizations:  line.Customizations,
			Price:           item.Price,
			PreparationTime: prep,
		}
		orderLine.ItemTotal = lineTotal(orderLine).InexactFloat64()
		order.Items = append(order.Items, orderLine)
		order.MaxPrepTime = max(order.MaxPrepTime, prep)
	}
	if len(shortages) > 0 {
		return nil, &models.InsufficientStockError{Shortages: shortages}
	}

	totals := ComputeTotals(order.Items)
	order.Subtotal = totals.Subtotal.InexactFloat64()
	order.Tax = totals.Tax.InexactFloat64()
	order.TotalAmount = totals.Total.InexactFloat64()
	order.EstimatedTime = EstimatedTime(order.MaxPrepTime)

	if cart.TotalAmount != 0 && !decimal.NewFromFloat(cart.TotalAmount).Equal(totals.Total) {
		s.logger.Info("client total differs from menu prices",
			"clientTotal", cart.TotalAmount, "total", order.TotalAmount)
	}
	return order, nil
}

func shortage(item *models.MenuItem, requested int) models.StockShortage {
	available := 0
	message := fmt.Sprintf("%s is currently unavailable", item.Name)
	if item.Tracked() {
		available = item.CurrentStock
		message = fmt.Sprintf("only %d %s left", available, item.Name)
	}
	return models.StockShortage{Item: item.Name, Requested: requested, Available: available, Message: message}
}

func (s *Service) customerFor(caller models.Identity, guest *models.GuestInfo) (models.Customer, error) {
	if caller.Registered() {
		return models.RegisteredCustomer(caller.UserID, caller.Email), nil
	}
	if guest == nil {
		return models.Customer{}, fmt.Errorf("%w: guest name and phone are required", models.ErrValidation)
	}
	if err := validate.Struct(guest); err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	customer := models.GuestCustomer(*guest)
	if err := customer.Validate(); err != nil {
		return models.Customer{}, err
	}
	return customer, nil
}
