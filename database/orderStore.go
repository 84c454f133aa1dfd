package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderStore struct {
	collection *mongo.Collection
}

func NewOrderStore(m *Mongo) *OrderStore {
	return &OrderStore{collection: m.OpenCollection(OrdersCollection)}
}

func (s *OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateOrderNumber, order.OrderNumber)
		}
		return fmt.Errorf("order was not created: %w", err)
	}
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid}, id)
}

func (s *OrderStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"orderNumber": orderNumber}, orderNumber)
}

func (s *OrderStore) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"gateway.orderId": gatewayOrderID}, gatewayOrderID)
}

func (s *OrderStore) findOne(ctx context.Context, filter bson.M, key string) (*models.Order, error) {
	var order models.Order
	if err := s.collection.FindOne(ctx, filter).Decode(&order); err != nil {
		return nil, notFound(err, "order", key)
	}
	return &order, nil
}

// ListOrdersByStatus returns the newest orders first. No statuses means all.
func (s *OrderStore) ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	filter := bson.M{}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return s.find(ctx, filter)
}

// ListOrdersByCustomer matches registered orders by user id and any order
// whose contact email equals email.
func (s *OrderStore) ListOrdersByCustomer(ctx context.Context, userID, email string) ([]models.Order, error) {
	or := bson.A{}
	if userID != "" {
		or = append(or, bson.M{"customer.userId": userID})
	}
	if email != "" {
		or = append(or, bson.M{"customer.email": email}, bson.M{"customer.guest.email": email})
	}
	if len(or) == 0 {
		return []models.Order{}, nil
	}
	return s.find(ctx, bson.M{"$or": or})
}

func (s *OrderStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error occured while listing orders: %w", err)
	}
	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("error occured while decoding orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves the order from one status to another only if it is
// still in from. ErrStaleStatus means another writer got there first.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at, "statusChangedAt": at}}
	return s.compareAndSet(ctx, oid, bson.M{"status": from}, update)
}

// UpdatePaymentStatus is the payment-status counterpart of UpdateOrderStatus.
// Completed and cancelled orders never match.
func (s *OrderStore) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, paymentID string, at time.Time) (*models.Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"paymentStatus": to, "updatedAt": at}
	if paymentID != "" {
		set["gateway.paymentId"] = paymentID
	}
	expect := bson.M{
		"paymentStatus": from,
		"status":        bson.M{"$nin": bson.A{models.StatusCompleted, models.StatusCancelled}},
	}
	return s.compareAndSet(ctx, oid, expect, bson.M{"$set": set})
}

func (s *OrderStore) compareAndSet(ctx context.Context, oid primitive.ObjectID, expect bson.M, update bson.M) (*models.Order, error) {
	filter := bson.M{"_id": oid}
	for k, v := range expect {
		filter[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, cerr := s.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if cerr != nil {
			return nil, fmt.Errorf("error occured while checking order %s: %w", oid.Hex(), cerr)
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, oid.Hex())
		}
		return nil, fmt.Errorf("%w: order %s", models.ErrStaleStatus, oid.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("order %s was not updated: %w", oid.Hex(), err)
	}
	return &order, nil
}

// ClaimStockApplication flips stockApplied from false to true and reports
// whether this caller won. Only the winner may consume stock for the order.
func (s *OrderStore) ClaimStockApplication(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "stockApplied": false},
		bson.M{"$set": bson.M{"stockApplied": true}})
	if err != nil {
		return false, fmt.Errorf("stock claim failed for order %s: %w", id, err)
	}
	return result.ModifiedCount == 1, nil
}

func (s *OrderStore) MarkFeedbackSubmitted(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"feedbackSubmitted": true}})
	if err != nil {
		return fmt.Errorf("order %s was not updated: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	return nil
}
