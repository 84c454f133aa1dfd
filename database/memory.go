package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory keeps every collection in process. It backs STORE=memory and the
// tests, and mirrors the atomicity of the Mongo stores: each method holds the
// lock for its whole read-modify-write.
type Memory struct {
	mu        sync.Mutex
	menuItems map[primitive.ObjectID]models.MenuItem
	orders    map[primitive.ObjectID]models.Order
	feedback  []models.Feedback
	users     map[string]models.User
}

func NewMemory() *Memory {
	return &Memory{
		menuItems: make(map[primitive.ObjectID]models.MenuItem),
		orders:    make(map[primitive.ObjectID]models.Order),
		users:     make(map[string]models.User),
	}
}

func (m *Memory) GetMenuItem(_ context.Context, id string) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[oid]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	return cloneMenuItem(item), nil
}

func (m *Memory) ListMenuItems(_ context.Context, category models.Category) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.MenuItem{}
	for _, item := range m.menuItems {
		if category == "" || item.Category == category {
			items = append(items, *cloneMenuItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsAvailable != items[j].IsAvailable {
			return items[i].IsAvailable
		}
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (m *Memory) ListTrackedMenuItems(_ context.Context) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.MenuItem{}
	for _, item := range m.menuItems {
		if item.Tracked() {
			items = append(items, *cloneMenuItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// ListPopularMenuItems mirrors MenuItemStore.ListPopularMenuItems.
func (m *Memory) ListPopularMenuItems(_ context.Context, limit int64) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.MenuItem{}
	for _, item := range m.menuItems {
		if item.IsPopular && item.IsAvailable {
			items = append(items, *cloneMenuItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rating.Average != items[j].Rating.Average {
			return items[i].Rating.Average > items[j].Rating.Average
		}
		return items[i].Name < items[j].Name
	})
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) ListMenuCategories(_ context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[models.Category]bool)
	categories := []models.Category{}
	for _, item := range m.menuItems {
		if item.IsAvailable && !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories, nil
}

func (m *Memory) CreateMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	m.menuItems[item.ID] = *cloneMenuItem(*item)
	return nil
}

func (m *Memory) UpdateMenuItem(_ context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[oid]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	update.Apply(&item)
	item.UpdatedAt = time.Now().UTC()
	m.menuItems[oid] = item
	return cloneMenuItem(item), nil
}

func (m *Memory) DeleteMenuItem(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menuItems[oid]; !ok {
		return fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	delete(m.menuItems, oid)
	return nil
}

func (m *Memory) DecrementStock(_ context.Context, id string, qty int) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[oid]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	if item.Tracked() {
		item.CurrentStock -= qty
		item.ApplyStockFlags()
		item.UpdatedAt = time.Now().UTC()
		m.menuItems[oid] = item
	}
	return cloneMenuItem(item), nil
}

func (m *Memory) ResetDailyStock(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for oid, item := range m.menuItems {
		if !item.Tracked() {
			continue
		}
		item.CurrentStock = item.DailyStock
		item.IsOutOfStock = false
		item.IsAvailable = true
		item.UpdatedAt = now
		m.menuItems[oid] = item
		n++
	}
	return n, nil
}

func (m *Memory) SetStock(_ context.Context, id string, daily, current int) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[oid]
	if !ok {
		return nil, fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	item.DailyStock = daily
	item.CurrentStock = current
	item.ApplyStockFlags()
	item.UpdatedAt = time.Now().UTC()
	m.menuItems[oid] = item
	return cloneMenuItem(item), nil
}

func (m *Memory) BulkSetDailyStock(_ context.Context, updates []models.DailyStockUpdate) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(updates))
	for _, u := range updates {
		oid, err := parseID(u.ItemID)
		if err != nil {
			return 0, err
		}
		oids = append(oids, oid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched int64
	now := time.Now().UTC()
	for i, u := range updates {
		item, ok := m.menuItems[oids[i]]
		if !ok {
			continue
		}
		item.DailyStock = u.DailyStock
		item.CurrentStock = u.DailyStock
		item.ApplyStockFlags()
		item.UpdatedAt = now
		m.menuItems[oids[i]] = item
		matched++
	}
	if missing := int64(len(updates)) - matched; missing > 0 {
		return matched, fmt.Errorf("%w: %d of %d menu items", models.ErrNotFound, missing, len(updates))
	}
	return matched, nil
}

func (m *Memory) UpdateMenuItemRating(_ context.Context, id string, rating models.Rating) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[oid]
	if !ok {
		return fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	item.Rating = rating
	m.menuItems[oid] = item
	return nil
}

func (m *Memory) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("%w: %s", models.ErrDuplicateOrderNumber, order.OrderNumber)
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	m.orders[order.ID] = *cloneOrder(*order)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (*models.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[oid]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	return cloneOrder(order), nil
}

func (m *Memory) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	return m.findOrder(func(o *models.Order) bool { return o.OrderNumber == orderNumber }, orderNumber)
}

func (m *Memory) GetOrderByGatewayOrderID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	return m.findOrder(func(o *models.Order) bool {
		return gatewayOrderID != "" && o.Gateway.OrderID == gatewayOrderID
	}, gatewayOrderID)
}

func (m *Memory) findOrder(match func(*models.Order) bool, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if match(&order) {
			return cloneOrder(order), nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, key)
}

func (m *Memory) ListOrdersByStatus(_ context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	return m.listOrders(func(o *models.Order) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (m *Memory) ListOrdersByCustomer(_ context.Context, userID, email string) ([]models.Order, error) {
	return m.listOrders(func(o *models.Order) bool {
		if userID != "" && o.Customer.UserID == userID {
			return true
		}
		return email != "" && o.Customer.ContactEmail() == email
	}), nil
}

func (m *Memory) listOrders(match func(*models.Order) bool) []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := []models.Order{}
	for _, order := range m.orders {
		if match(&order) {
			orders = append(orders, *cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	return m.compareAndSet(id, func(o *models.Order) bool {
		if o.Status != from {
			return false
		}
		o.Status = to
		o.UpdatedAt = at
		o.StatusChangedAt = at
		return true
	})
}

func (m *Memory) UpdatePaymentStatus(_ context.Context, id string, from, to models.PaymentStatus, paymentID string, at time.Time) (*models.Order, error) {
	return m.compareAndSet(id, func(o *models.Order) bool {
		if o.PaymentStatus != from || o.Status.Terminal() {
			return false
		}
		o.PaymentStatus = to
		o.UpdatedAt = at
		if paymentID != "" {
			o.Gateway.PaymentID = paymentID
		}
		return true
	})
}

func (m *Memory) compareAndSet(id string, apply func(*models.Order) bool) (*models.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[oid]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	if !apply(&order) {
		return nil, fmt.Errorf("%w: order %s", models.ErrStaleStatus, id)
	}
	m.orders[oid] = order
	return cloneOrder(order), nil
}

func (m *Memory) ClaimStockApplication(_ context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[oid]
	if !ok || order.StockApplied {
		return false, nil
	}
	order.StockApplied = true
	m.orders[oid] = order
	return true, nil
}

func (m *Memory) MarkFeedbackSubmitted(_ context.Context, id string) error {
	_, err := m.compareAndSet(id, func(o *models.Order) bool {
		o.FeedbackSubmitted = true
		return true
	})
	return err
}

func (m *Memory) CreateFeedback(_ context.Context, feedback *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if feedback.ID.IsZero() {
		feedback.ID = primitive.NewObjectID()
	}
	m.feedback = append(m.feedback, *feedback)
	return nil
}

func (m *Memory) CountFeedbackByOrder(_ context.Context, orderID string) (int64, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.feedback {
		if f.Order == oid {
			n++
		}
	}
	return n, nil
}

func (m *Memory) MenuItemRating(_ context.Context, menuItemID string) (models.Rating, error) {
	oid, err := parseID(menuItemID)
	if err != nil {
		return models.Rating{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, count int
	for _, f := range m.feedback {
		if f.MenuItem == oid {
			sum += f.Rating
			count++
		}
	}
	if count == 0 {
		return models.Rating{}, nil
	}
	return models.Rating{Average: float64(sum) / float64(count), Count: count}, nil
}

func (m *Memory) ListFeedbackByMenuItem(_ context.Context, menuItemID string, limit int64) ([]models.Feedback, error) {
	oid, err := parseID(menuItemID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	feedback := []models.Feedback{}
	for i := len(m.feedback) - 1; i >= 0; i-- {
		if m.feedback[i].MenuItem == oid {
			feedback = append(feedback, m.feedback[i])
		}
	}
	sort.SliceStable(feedback, func(i, j int) bool { return feedback[i].CreatedAt.After(feedback[j].CreatedAt) })
	if limit > 0 && int64(len(feedback)) > limit {
		feedback = feedback[:limit]
	}
	return feedback, nil
}

func (m *Memory) ListFeedbackByRater(_ context.Context, userID, email string) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feedback := []models.Feedback{}
	for i := len(m.feedback) - 1; i >= 0; i-- {
		rater := m.feedback[i].Rater
		if (userID != "" && rater.UserID == userID) || (email != "" && rater.ContactEmail() == email) {
			feedback = append(feedback, m.feedback[i])
		}
	}
	sort.SliceStable(feedback, func(i, j int) bool { return feedback[i].CreatedAt.After(feedback[j].CreatedAt) })
	return feedback, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("%w: %s", models.ErrDuplicateEmail, user.Email)
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.Email] = *user
	return nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, email)
	}
	return &user, nil
}

func cloneMenuItem(item models.MenuItem) *models.MenuItem {
	if item.Tags != nil {
		item.Tags = append([]string(nil), item.Tags...)
	}
	return &item
}

func cloneOrder(order models.Order) *models.Order {
	items := make([]models.OrderItem, len(order.Items))
	for i, line := range order.Items {
		if line.Customizations != nil {
			c := make(map[string]string, len(line.Customizations))
			for k, v := range line.Customizations {
				c[k] = v
			}
			line.Customizations = c
		}
		items[i] = line
	}
	order.Items = items
	if order.Customer.Guest != nil {
		guest := *order.Customer.Guest
		order.Customer.Guest = &guest
	}
	return &order
}
