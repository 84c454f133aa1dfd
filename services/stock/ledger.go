// Package stock owns every write to a menu item's currentStock.
package stock

import (
	"context"
	"fmt"
	"log/slog"

	"campus-cravings/models"
)

// Store is the persistence the ledger needs. DecrementStock must be a single
// atomic update that floors at zero and leaves untracked items untouched.
type Store interface {
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	ListTrackedMenuItems(ctx context.Context) ([]models.MenuItem, error)
	DecrementStock(ctx context.Context, id string, qty int) (*models.MenuItem, error)
	ResetDailyStock(ctx context.Context) (int64, error)
	SetStock(ctx context.Context, id string, daily, current int) (*models.MenuItem, error)
	BulkSetDailyStock(ctx context.Context, updates []models.DailyStockUpdate) (int64, error)
}

type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger.With("component", "stock")}
}

type Check struct {
	OK        bool
	Available int
	Tracked   bool
	Item      *models.MenuItem
}

// ReserveCheck reports whether qty units of the item could be ordered now.
// It never writes.
func (l *Ledger) ReserveCheck(ctx context.Context, itemID string, qty int) (Check, error) {
	item, err := l.store.GetMenuItem(ctx, itemID)
	if err != nil {
		return Check{}, err
	}
	check := Check{OK: item.Orderable(qty), Tracked: item.Tracked(), Item: item}
	if check.Tracked {
		check.Available = item.CurrentStock
	} else if item.IsAvailable {
		check.Available = qty
	}
	return check, nil
}

func (l *Ledger) Decrement(ctx context.Context, itemID string, qty int) (*models.MenuItem, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrValidation)
	}
	item, err := l.store.DecrementStock(ctx, itemID, qty)
	if err != nil {
		return nil, fmt.Errorf("cannot decrement stock of %s: %w", itemID, err)
	}
	if item.Tracked() && item.IsOutOfStock {
		l.logger.Warn("menu item sold out", "item", item.Name, "itemId", itemID)
	}
	return item, nil
}

// DecrementOrder consumes stock for every line of the order. A failing line
// is logged and the rest still go through.
func (l *Ledger) DecrementOrder(ctx context.Context, order *models.Order) {
	for _, line := range order.Items {
		if _, err := l.Decrement(ctx, line.MenuItem.Hex(), line.Quantity); err != nil {
			l.logger.Error("stock decrement failed",
				"orderNumber", order.OrderNumber, "item", line.Name, "quantity", line.Quantity, "error", err)
		}
	}
	l.logger.Debug("stock consumed", "orderNumber", order.OrderNumber, "lines", len(order.Items))
}

// ResetDaily restores every tracked item to its daily stock. Running it twice
// has the same effect as running it once.
func (l *Ledger) ResetDaily(ctx context.Context) (int64, error) {
	n, err := l.store.ResetDailyStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot reset daily stock: %w", err)
	}
	l.logger.Info("daily stock reset", "items", n)
	return n, nil
}

type LowStockReport struct {
	LowStock   []models.MenuItem `json:"lowStock"`
	OutOfStock []models.MenuItem `json:"outOfStock"`
}

// LowStock reports whether a tracked item has at most a fifth of its daily
// stock left but is not yet sold out.
func LowStock(item *models.MenuItem) bool {
	return item.Tracked() && item.CurrentStock > 0 && item.CurrentStock*5 <= item.DailyStock
}

func (l *Ledger) LowStockScan(ctx context.Context) (LowStockReport, error) {
	items, err := l.store.ListTrackedMenuItems(ctx)
	if err != nil {
		return LowStockReport{}, fmt.Errorf("cannot list tracked items: %w", err)
	}
	return classify(items), nil
}

func classify(items []models.MenuItem) LowStockReport {
	report := LowStockReport{LowStock: []models.MenuItem{}, OutOfStock: []models.MenuItem{}}
	for i := range items {
		switch {
		case items[i].CurrentStock <= 0:
			report.OutOfStock = append(report.OutOfStock, items[i])
		case LowStock(&items[i]):
			report.LowStock = append(report.LowStock, items[i])
		}
	}
	return report
}

type Summary struct {
	TotalTracked int `json:"totalTracked"`
	LowStock     int `json:"lowStock"`
	OutOfStock   int `json:"outOfStock"`
	InStock      int `json:"inStock"`
}

type StatusReport struct {
	LowStockReport
	AllTrackedItems []models.MenuItem `json:"allTrackedItems"`
	Summary         Summary           `json:"summary"`
}

func (l *Ledger) Status(ctx context.Context) (StatusReport, error) {
	items, err := l.store.ListTrackedMenuItems(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("cannot list tracked items: %w", err)
	}
	report := StatusReport{LowStockReport: classify(items), AllTrackedItems: items}
	report.Summary = Summary{
		TotalTracked: len(items),
		LowStock:     len(report.LowStock),
		OutOfStock:   len(report.OutOfStock),
		InStock:      len(items) - len(report.OutOfStock),
	}
	return report, nil
}

func (l *Ledger) SetStock(ctx context.Context, itemID string, daily, current int) (*models.MenuItem, error) {
	if daily < 0 || current < 0 {
		return nil, fmt.Errorf("%w: stock values cannot be negative", models.ErrValidation)
	}
	item, err := l.store.SetStock(ctx, itemID, daily, current)
	if err != nil {
		return nil, fmt.Errorf("cannot set stock of %s: %w", itemID, err)
	}
	l.logger.Info("stock updated", "item", item.Name, "dailyStock", daily, "currentStock", item.CurrentStock)
	return item, nil
}

// BulkSetDaily assigns new daily stock values and resets current stock to
// match. The count of updated items is returned even when some were missing.
func (l *Ledger) BulkSetDaily(ctx context.Context, updates []models.DailyStockUpdate) (int64, error) {
	for _, u := range updates {
		if u.DailyStock < 0 {
			return 0, fmt.Errorf("%w: daily stock for %s cannot be negative", models.ErrValidation, u.ItemID)
		}
	}
	n, err := l.store.BulkSetDailyStock(ctx, updates)
	if err != nil {
		return n, fmt.Errorf("cannot update daily stock: %w", err)
	}
	l.logger.Info("daily stock updated", "items", n)
	return n, nil
}
