package repositories

import (
	"context"
	"fmt"
	"time"

	errs "flexkazi/freelancer-service/errors"
	"flexkazi/freelancer-service/logging"
	"flexkazi/freelancer-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	usersCollection      *mongo.Collection
	statsCollection      *mongo.Collection
	categoriesCollection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		usersCollection:      db.Collection("users"),
		statsCollection:      db.Collection("site_statistics"),
		categoriesCollection: db.Collection("work_categories"),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %v", err)
	}

	var user models.User
	err = r.usersCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.usersCollection.FindOne(ctx, bson.M{"personal.emailAddress": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &user, nil
}

func (r *UserRepository) Insert(ctx context.Context, user models.User) (primitive.ObjectID, error) {
	result, err := r.usersCollection.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to save user: %v", err)
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

func (r *UserRepository) SetField(ctx context.Context, userID string, field string, value interface{}) error {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %v", err)
	}

	result, err := r.usersCollection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	if result.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}

// Activate flips a pending account to active once the emailed code checks
// out.
func (r *UserRepository) Activate(ctx context.Context, email, code string) error {
	filter := bson.M{
		"personal.emailAddress": email,
		"verificationCode":      code,
		"verificationExpiry":    bson.M{"$gt": time.Now()},
	}
	update := bson.M{
		"$set":   bson.M{"accountState": models.AccountActive},
		"$unset": bson.M{"verificationCode": "", "verificationExpiry": ""},
	}

	result, err := r.usersCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to activate user: %v", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("invalid or expired verification code")
	}
	return nil
}

// DeleteExpiredUnverified removes signups whose verification window has
// lapsed without the code ever being entered.
func (r *UserRepository) DeleteExpiredUnverified(ctx context.Context) (int64, error) {
	filter := bson.M{
		"accountState":       models.AccountPendingVerification,
		"verificationExpiry": bson.M{"$lt": time.Now()},
	}
	result, err := r.usersCollection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired signups: %v", err)
	}
	return result.DeletedCount, nil
}

// IncrementSiteStats bumps the advisory counters document. Callers treat
// failure as non-critical; the primary operation has already succeeded.
func (r *UserRepository) IncrementSiteStats(ctx context.Context, deltas map[string]int64) {
	inc := bson.M{}
	for field, delta := range deltas {
		inc[field] = delta
	}

	opts := options.Update().SetUpsert(true)
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"lastUpdate": time.Now()},
	}
	_, err := r.statsCollection.UpdateOne(ctx, bson.M{"_id": models.SiteStatisticsID}, update, opts)
	if err != nil {
		logging.Logger.Warnf("Event ID: SITE_STATS_UPDATE_FAILED, Description: Failed to update site statistics %v: %v", deltas, err)
	}
}

func (r *UserRepository) GetSiteStats(ctx context.Context) (*models.SiteStatistics, error) {
	var stats models.SiteStatistics
	err := r.statsCollection.FindOne(ctx, bson.M{"_id": models.SiteStatisticsID}).Decode(&stats)
	if err == mongo.ErrNoDocuments {
		return &models.SiteStatistics{ID: models.SiteStatisticsID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
	}
	return &stats, nil
}

// AddToWorkCategory registers a freelancer under their primary category and
// bumps the member count atomically.
func (r *UserRepository) AddToWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{
		"$set": bson.M{"freelancers." + userID: true},
		"$inc": bson.M{"memberCount": int64(1)},
	}
	_, err := r.categoriesCollection.UpdateOne(ctx, bson.M{"_id": category}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update work category %s: %v", category, err)
	}
	return nil
}

func (r *UserRepository) RemoveFromWorkCategory(ctx context.Context, category models.TaskCategory, userID string) error {
	update := bson.M{
		"$unset": bson.M{"freelancers." + userID: ""},
		"$inc":   bson.M{"memberCount": int64(-1)},
	}
	_, err := r.categoriesCollection.UpdateOne(ctx, bson.M{"_id": category}, update)
	if err != nil {
		return fmt.Errorf("failed to update work category %s: %v", category, err)
	}
	return nil
}
