package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MenuItemStore struct {
	collection *mongo.Collection
}

func NewMenuItemStore(m *Mongo) *MenuItemStore {
	return &MenuItemStore{collection: m.OpenCollection(MenuItemsCollection)}
}

func (s *MenuItemStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var item models.MenuItem
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		return nil, notFound(err, "menu item", id)
	}
	return &item, nil
}

// ListMenuItems returns available items first, then by category and name.
func (s *MenuItemStore) ListMenuItems(ctx context.Context, category models.Category) ([]models.MenuItem, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "isAvailable", Value: -1},
		{Key: "category", Value: 1},
		{Key: "name", Value: 1},
	})
	return s.find(ctx, filter, opts)
}

func (s *MenuItemStore) ListTrackedMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return s.find(ctx, bson.M{"dailyStock": bson.M{"$gt": 0}}, opts)
}

// ListPopularMenuItems returns available items flagged popular, best rated
// first.
func (s *MenuItemStore) ListPopularMenuItems(ctx context.Context, limit int64) ([]models.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rating.average", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"isPopular": true, "isAvailable": true}, opts)
}

// ListMenuCategories returns the categories that have an available item.
func (s *MenuItemStore) ListMenuCategories(ctx context.Context) ([]models.Category, error) {
	values, err := s.collection.Distinct(ctx, "category", bson.M{"isAvailable": true})
	if err != nil {
		return nil, fmt.Errorf("error occured while listing categories: %w", err)
	}
	categories := make([]models.Category, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok {
			categories = append(categories, models.Category(name))
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories, nil
}

func (s *MenuItemStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.MenuItem, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error occured while listing menu items: %w", err)
	}
	items := []models.MenuItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("error occured while decoding menu items: %w", err)
	}
	return items, nil
}

func (s *MenuItemStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("menu item was not created: %w", err)
	}
	return nil
}

// UpdateMenuItem writes only the edited fields so concurrent stock
// decrements are never overwritten.
func (s *MenuItemStore) UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	item, err := s.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(item)
	item.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":            item.Name,
		"description":     item.Description,
		"price":           item.Price,
		"category":        item.Category,
		"image":           item.Image,
		"isVeg":           item.IsVeg,
		"preparationTime": item.PreparationTime,
		"tags":            item.Tags,
		"isPopular":       item.IsPopular,
		"updatedAt":       item.UpdatedAt,
	}
	filter := bson.M{"_id": item.ID}
	if update.IsAvailable != nil {
		set["isAvailable"] = *update.IsAvailable
		filter["dailyStock"] = bson.M{"$lte": 0}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.MenuItem
	err = s.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) && update.IsAvailable != nil {
		// Tracked items derive isAvailable from stock; drop the flag and retry.
		delete(set, "isAvailable")
		err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": item.ID}, bson.M{"$set": set}, opts).Decode(&updated)
	}
	if err != nil {
		return nil, notFound(err, "menu item", id)
	}
	return &updated, nil
}

func (s *MenuItemStore) DeleteMenuItem(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("menu item %s was not deleted: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	return nil
}

// stockFlags is the update pipeline stage that recomputes the derived
// availability flags of a tracked item from its current stock.
var stockFlags = bson.D{{Key: "$set", Value: bson.D{
	{Key: "isOutOfStock", Value: bson.D{{Key: "$lte", Value: bson.A{"$currentStock", 0}}}},
	{Key: "isAvailable", Value: bson.D{{Key: "$gt", Value: bson.A{"$currentStock", 0}}}},
}}}

// DecrementStock subtracts qty from a tracked item in a single atomic update,
// flooring at zero. Untracked items are returned unchanged.
func (s *MenuItemStore) DecrementStock(ctx context.Context, id string, qty int) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "currentStock", Value: bson.D{{Key: "$max", Value: bson.A{
				0, bson.D{{Key: "$subtract", Value: bson.A{"$currentStock", qty}}},
			}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
		stockFlags,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var item models.MenuItem
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid, "dailyStock": bson.M{"$gt": 0}}, pipeline, opts).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.GetMenuItem(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("stock was not decremented: %w", err)
	}
	return &item, nil
}

// ResetDailyStock restores every tracked item to its daily stock and returns
// how many items were matched.
func (s *MenuItemStore) ResetDailyStock(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "currentStock", Value: "$dailyStock"},
			{Key: "isOutOfStock", Value: false},
			{Key: "isAvailable", Value: true},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	result, err := s.collection.UpdateMany(ctx, bson.M{"dailyStock": bson.M{"$gt": 0}}, pipeline)
	if err != nil {
		return 0, fmt.Errorf("daily stock was not reset: %w", err)
	}
	return result.MatchedCount, nil
}

func (s *MenuItemStore) SetStock(ctx context.Context, id string, daily, current int) (*models.MenuItem, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var item models.MenuItem
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": stockFields(daily, current)}, opts).Decode(&item)
	if err != nil {
		return nil, notFound(err, "menu item", id)
	}
	return &item, nil
}

// BulkSetDailyStock sets daily and current stock for each listed item. Items
// that do not exist are reported through ErrNotFound after the others have
// been written.
func (s *MenuItemStore) BulkSetDailyStock(ctx context.Context, updates []models.DailyStockUpdate) (int64, error) {
	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		oid, err := parseID(u.ItemID)
		if err != nil {
			return 0, err
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": stockFields(u.DailyStock, u.DailyStock)}))
	}
	if len(writes) == 0 {
		return 0, nil
	}
	result, err := s.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("daily stock was not updated: %w", err)
	}
	if missing := int64(len(writes)) - result.MatchedCount; missing > 0 {
		return result.MatchedCount, fmt.Errorf("%w: %d of %d menu items", models.ErrNotFound, missing, len(writes))
	}
	return result.MatchedCount, nil
}

func (s *MenuItemStore) UpdateMenuItemRating(ctx context.Context, id string, rating models.Rating) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"rating": rating}})
	if err != nil {
		return fmt.Errorf("rating was not updated: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: menu item %s", models.ErrNotFound, id)
	}
	return nil
}

// stockFields builds the $set document for an explicit stock assignment,
// keeping the derived flags consistent with MenuItem.ApplyStockFlags.
func stockFields(daily, current int) bson.M {
	item := models.MenuItem{DailyStock: daily, CurrentStock: current}
	item.ApplyStockFlags()
	set := bson.M{
		"dailyStock":   item.DailyStock,
		"currentStock": item.CurrentStock,
		"isOutOfStock": item.IsOutOfStock,
		"updatedAt":    time.Now().UTC(),
	}
	if item.Tracked() {
		set["isAvailable"] = item.IsAvailable
	}
	return set
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, id)
	}
	return fmt.Errorf("error occured while loading %s %s: %w", kind, id, err)
}
