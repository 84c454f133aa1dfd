package database

import (
	"context"
	"fmt"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FeedbackStore struct {
	collection *mongo.Collection
}

func NewFeedbackStore(m *Mongo) *FeedbackStore {
	return &FeedbackStore{collection: m.OpenCollection(FeedbackCollection)}
}

func (s *FeedbackStore) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID.IsZero() {
		feedback.ID = primitive.NewObjectID()
	}
	if _, err := s.collection.InsertOne(ctx, feedback); err != nil {
		return fmt.Errorf("feedback was not created: %w", err)
	}
	return nil
}

func (s *FeedbackStore) CountFeedbackByOrder(ctx context.Context, orderID string) (int64, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return 0, err
	}
	count, err := s.collection.CountDocuments(ctx, bson.M{"order": oid})
	if err != nil {
		return 0, fmt.Errorf("error occured while counting feedback: %w", err)
	}
	return count, nil
}

// MenuItemRating aggregates every rating left for the menu item. The average
// is returned unrounded.
func (s *FeedbackStore) MenuItemRating(ctx context.Context, menuItemID string) (models.Rating, error) {
	oid, err := parseID(menuItemID)
	if err != nil {
		return models.Rating{}, err
	}
	matchStage := bson.D{{Key: "$match", Value: bson.D{{Key: "menuItem", Value: oid}}}}
	groupStage := bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$menuItem"},
		{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}}

	cursor, err := s.collection.Aggregate(ctx, mongo.Pipeline{matchStage, groupStage})
	if err != nil {
		return models.Rating{}, fmt.Errorf("error occured while aggregating ratings: %w", err)
	}
	var results []models.Rating
	if err := cursor.All(ctx, &results); err != nil {
		return models.Rating{}, fmt.Errorf("error occured while decoding ratings: %w", err)
	}
	if len(results) == 0 {
		return models.Rating{}, nil
	}
	return results[0], nil
}

func (s *FeedbackStore) ListFeedbackByMenuItem(ctx context.Context, menuItemID string, limit int64) ([]models.Feedback, error) {
	oid, err := parseID(menuItemID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.collection.Find(ctx, bson.M{"menuItem": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("error occured while listing feedback: %w", err)
	}
	feedback := []models.Feedback{}
	if err := cursor.All(ctx, &feedback); err != nil {
		return nil, fmt.Errorf("error occured while decoding feedback: %w", err)
	}
	return feedback, nil
}

// ListFeedbackByRater returns the feedback left by a user id or contact
// email, newest first.
func (s *FeedbackStore) ListFeedbackByRater(ctx context.Context, userID, email string) ([]models.Feedback, error) {
	or := bson.A{}
	if userID != "" {
		or = append(or, bson.M{"rater.userId": userID})
	}
	if email != "" {
		or = append(or, bson.M{"rater.email": email}, bson.M{"rater.guest.email": email})
	}
	if len(or) == 0 {
		return []models.Feedback{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, fmt.Errorf("error occured while listing feedback: %w", err)
	}
	feedback := []models.Feedback{}
	if err := cursor.All(ctx, &feedback); err != nil {
		return nil, fmt.Errorf("error occured while decoding feedback: %w", err)
	}
	return feedback, nil
}
