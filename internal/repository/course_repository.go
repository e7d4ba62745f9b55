package repository

import (
	"context"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Every mutation filters on ownerId; there is no optimistic concurrency
// control, so concurrent edits to the same course are last-writer-wins.
type CourseRepository struct {
	Col *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{Col: db.Collection("courses")}
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	result, err := r.Col.InsertOne(ctx, course)
	if err != nil {
		return err
	}
	course.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *CourseRepository) FindByShareID(ctx context.Context, shareID string) (*models.Course, error) {
	var course models.Course
	err := r.Col.FindOne(ctx, bson.M{"shareId": shareID}).Decode(&course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindOwned(ctx context.Context, shareID, ownerID string) (*models.Course, error) {
	var course models.Course
	err := r.Col.FindOne(ctx, bson.M{"shareId": shareID, "ownerId": ownerID}).Decode(&course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error) {
	cur, err := r.Col.Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var courses []models.Course
	if err := cur.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) Delete(ctx context.Context, shareID, ownerID string) error {
	result, err := r.Col.DeleteOne(ctx, bson.M{"shareId": shareID, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *CourseRepository) update(ctx context.Context, shareID, ownerID string, update bson.M) error {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now()
	result, err := r.Col.UpdateOne(ctx, bson.M{"shareId": shareID, "ownerId": ownerID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SaveThread replaces the whole message list for one topic thread. Threads
// are append-only from the engine's perspective, but the client may reset a
// thread wholesale on regeneration.
func (r *CourseRepository) SaveThread(ctx context.Context, shareID, ownerID, topicID string, messages []models.Message) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$set": bson.M{"threads." + topicID: messages}})
}

func (r *CourseRepository) SetRelatedTopics(ctx context.Context, shareID, ownerID, threadID string, related []string) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$set": bson.M{"relatedTopics." + threadID: related}})
}

// CompleteSubtopic adds a subtopic id to the completed set. The set only
// grows; entries are removed only when the whole course is deleted.
func (r *CourseRepository) CompleteSubtopic(ctx context.Context, shareID, ownerID, subtopicID string) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$addToSet": bson.M{"completedSubtopics": subtopicID}})
}

func (r *CourseRepository) SetCurrentChat(ctx context.Context, shareID, ownerID string, current models.CurrentChat) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$set": bson.M{"currentChat": current}})
}

// SaveQuizResult overwrites the quiz for one scope wholesale.
func (r *CourseRepository) SaveQuizResult(ctx context.Context, shareID, ownerID, scope string, result models.QuizResult) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$set": bson.M{"quizResults." + scope: result}})
}

// SubmitQuizAnswers records the user's chosen options and score for an
// already-generated quiz scope.
func (r *CourseRepository) SubmitQuizAnswers(ctx context.Context, shareID, ownerID, scope string, answers map[string]int, score int) error {
	return r.update(ctx, shareID, ownerID, bson.M{"$set": bson.M{
		"quizResults." + scope + ".answers": answers,
		"quizResults." + scope + ".score":   score,
	}})
}
