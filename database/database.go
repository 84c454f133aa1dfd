package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	MenuItemsCollection = "menuItems"
	OrdersCollection    = "orders"
	FeedbackCollection  = "feedback"
	UsersCollection     = "users"
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	logger *slog.Logger
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Mongo, error) {
	clientOptions := options.Client().ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", dbName)
	return &Mongo{Client: client, DB: client.Database(dbName), logger: logger}, nil
}

func (m *Mongo) OpenCollection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

// EnsureIndexes creates the indexes the stores rely on. The orderNumber and
// email indexes are what turns collisions into duplicate-key errors.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		OrdersCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "gateway.orderId", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "customer.userId", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		FeedbackCollection: {
			{Keys: bson.D{{Key: "menuItem", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "order", Value: 1}}},
		},
		MenuItemsCollection: {
			{Keys: bson.D{{Key: "dailyStock", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := m.OpenCollection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", collection, err)
		}
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	m.logger.Info("disconnected from MongoDB")
	return nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", models.ErrNotFound, id)
	}
	return oid, nil
}
