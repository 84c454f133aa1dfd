package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"campus-cravings/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const feedbackListLimit = 50

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	CountFeedbackByOrder(ctx context.Context, orderID string) (int64, error)
	MenuItemRating(ctx context.Context, menuItemID string) (models.Rating, error)
	ListFeedbackByMenuItem(ctx context.Context, menuItemID string, limit int64) ([]models.Feedback, error)
	ListFeedbackByRater(ctx context.Context, userID, email string) ([]models.Feedback, error)
}

type RatingWriter interface {
	UpdateMenuItemRating(ctx context.Context, id string, rating models.Rating) error
}

type FeedbackService struct {
	feedback FeedbackStore
	orders   OrderStore
	ratings  RatingWriter
	logger   *slog.Logger
	now      func() time.Time
}

func NewFeedbackService(feedback FeedbackStore, orders OrderStore, ratings RatingWriter, logger *slog.Logger) *FeedbackService {
	return &FeedbackService{
		feedback: feedback,
		orders:   orders,
		ratings:  ratings,
		logger:   logger.With("component", "feedback"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a rating for one item of a completed order the caller owns,
// then refreshes the item's aggregate rating.
func (s *FeedbackService) Submit(ctx context.Context, caller models.Identity, req models.FeedbackRequest) (*models.Feedback, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(order.Customer, req.GuestEmail) {
		return nil, fmt.Errorf("%w: order %s does not belong to the caller", models.ErrForbidden, order.OrderNumber)
	}
	if order.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: feedback is only accepted for completed orders", models.ErrValidation)
	}
	menuItemID, err := primitive.ObjectIDFromHex(req.MenuItemID)
	if err != nil || !order.HasMenuItem(menuItemID) {
		return nil, fmt.Errorf("%w: menu item %s is not part of order %s", models.ErrValidation, req.MenuItemID, order.OrderNumber)
	}

	feedback := &models.Feedback{
		Order:     order.ID,
		MenuItem:  menuItemID,
		Rater:     rater(caller, order.Customer),
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.now(),
	}
	if err := s.feedback.CreateFeedback(ctx, feedback); err != nil {
		return nil, err
	}

	if err := s.refreshRating(ctx, req.MenuItemID); err != nil {
		s.logger.Error("cannot refresh rating", "menuItemId", req.MenuItemID, "error", err)
	}
	if err := s.markOrderIfDone(ctx, order); err != nil {
		s.logger.Error("cannot flag order feedback", "orderNumber", order.OrderNumber, "error", err)
	}
	return feedback, nil
}

func rater(caller models.Identity, customer models.Customer) models.Customer {
	if caller.Registered() {
		return models.RegisteredCustomer(caller.UserID, caller.Email)
	}
	guest := models.GuestInfo{}
	if customer.Guest != nil {
		guest = models.GuestInfo{Name: customer.Guest.Name, Email: customer.Guest.Email}
	}
	return models.Customer{Kind: models.CustomerGuest, Guest: &guest}
}

func (s *FeedbackService) refreshRating(ctx context.Context, menuItemID string) error {
	rating, err := s.feedback.MenuItemRating(ctx, menuItemID)
	if err != nil {
		return err
	}
	rating.Average = math.Round(rating.Average*10) / 10
	err = s.ratings.UpdateMenuItemRating(ctx, menuItemID, rating)
	if errors.Is(err, models.ErrNotFound) {
		// Item removed from the menu; the feedback itself is kept.
		return nil
	}
	return err
}

func (s *FeedbackService) markOrderIfDone(ctx context.Context, order *models.Order) error {
	if order.FeedbackSubmitted {
		return nil
	}
	count, err := s.feedback.CountFeedbackByOrder(ctx, order.ID.Hex())
	if err != nil {
		return err
	}
	if count < int64(len(order.Items)) {
		return nil
	}
	return s.orders.MarkFeedbackSubmitted(ctx, order.ID.Hex())
}

func (s *FeedbackService) ListForMenuItem(ctx context.Context, menuItemID string) ([]models.Feedback, error) {
	return s.feedback.ListFeedbackByMenuItem(ctx, menuItemID, feedbackListLimit)
}

// ListMine returns the feedback the signed-in caller has left.
func (s *FeedbackService) ListMine(ctx context.Context, caller models.Identity) ([]models.Feedback, error) {
	if !caller.Registered() {
		return nil, fmt.Errorf("%w: sign in to list your feedback", models.ErrValidation)
	}
	return s.feedback.ListFeedbackByRater(ctx, caller.UserID, caller.Email)
}
