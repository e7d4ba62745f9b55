package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"` // absent for social-login accounts
	GoogleID     string             `bson:"googleId,omitempty" json:"-"`
	Name         string             `bson:"name" json:"name"`
	CustomPrompt string             `bson:"customPrompt,omitempty" json:"customPrompt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CourseProgress is one entry of a user's learning history, summarizing a
// course by its public share id. Both counts are in completable-subtopic
// units so completed can never exceed total.
type CourseProgress struct {
	CourseID           string    `bson:"courseId" json:"courseId"`
	Title              string    `bson:"title" json:"title"`
	TotalSubtopics     int       `bson:"totalSubtopics" json:"totalSubtopics"`
	CompletedSubtopics int       `bson:"completedSubtopics" json:"completedSubtopics"`
	LastAccessed       time.Time `bson:"lastAccessed" json:"lastAccessed"`
}

type LearningHistory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Courses   []CourseProgress   `bson:"courses" json:"courses"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
