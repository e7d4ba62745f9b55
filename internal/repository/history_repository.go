package repository

import (
	"context"
	"sort"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// One learning-history document per user, entries ordered by recency on
// every read.
type HistoryRepository struct {
	Col *mongo.Collection
}

func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{Col: db.Collection("learning_histories")}
}

func (r *HistoryRepository) Get(ctx context.Context, userID string) (*models.LearningHistory, error) {
	var history models.LearningHistory
	err := r.Col.FindOne(ctx, bson.M{"userId": userID}).Decode(&history)
	if err == mongo.ErrNoDocuments {
		return &models.LearningHistory{UserID: userID, Courses: []models.CourseProgress{}}, nil
	}
	if err != nil {
		return nil, err
	}
	SortByRecency(history.Courses)
	return &history, nil
}

// Touch upserts one course-progress entry, replacing any previous entry for
// the same course id.
func (r *HistoryRepository) Touch(ctx context.Context, userID string, progress models.CourseProgress) error {
	progress.LastAccessed = time.Now()

	// Drop any stale entry for this course first, then push the fresh one.
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$pull": bson.M{"courses": bson.M{"courseId": progress.CourseID}}},
	)
	if err != nil {
		return err
	}

	opts := options.Update().SetUpsert(true)
	_, err = r.Col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$push": bson.M{"courses": progress},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		opts,
	)
	return err
}

func (r *HistoryRepository) RemoveEntry(ctx context.Context, userID, courseID string) error {
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"courses": bson.M{"courseId": courseID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

func (r *HistoryRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set": bson.M{"courses": []models.CourseProgress{}, "updatedAt": time.Now()},
		},
	)
	return err
}

// SortByRecency orders progress entries by lastAccessed descending. The sort
// is stable so re-reads without intervening writes return the same order.
func SortByRecency(courses []models.CourseProgress) {
	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].LastAccessed.After(courses[j].LastAccessed)
	})
}
