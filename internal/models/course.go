package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Topic tree. IDs are dotted-path strings assigned once at generation time
// ("1", "1.2", "1.2.1") and never renumbered. A node with children is not a
// completable unit; every topic's first subtopic is a standalone
// introduction leaf.

type SubSubtopic struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

type Subtopic struct {
	ID           string        `bson:"id" json:"id"`
	Name         string        `bson:"name" json:"name"`
	SubSubtopics []SubSubtopic `bson:"subSubtopics,omitempty" json:"subSubtopics,omitempty"`
}

type Topic struct {
	ID        string     `bson:"id" json:"id"`
	Name      string     `bson:"name" json:"name"`
	Subtopics []Subtopic `bson:"subtopics" json:"subtopics"`
}

func TopicNames(topics []Topic) []string {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return names
}

func AllSubtopicNames(topics []Topic) []string {
	var names []string
	for _, t := range topics {
		for _, s := range t.Subtopics {
			names = append(names, s.Name)
		}
	}
	return names
}

// CompletableUnits counts the completable leaves of the tree: subtopics
// without sub-subtopics plus every sub-subtopic. A node with children is not
// itself completable, so this is the denominator for progress ratios.
func CompletableUnits(topics []Topic) int {
	n := 0
	for _, t := range topics {
		for _, s := range t.Subtopics {
			if len(s.SubSubtopics) == 0 {
				n++
			} else {
				n += len(s.SubSubtopics)
			}
		}
	}
	return n
}

// SubtopicNamesForTopic returns the subtopic names of the topic with the
// given id, or nil when the topic is absent.
func SubtopicNamesForTopic(topics []Topic, topicID string) []string {
	for _, t := range topics {
		if t.ID != topicID {
			continue
		}
		names := make([]string, 0, len(t.Subtopics))
		for _, s := range t.Subtopics {
			names = append(names, s.Name)
		}
		return names
	}
	return nil
}

// Message kinds. Tool round-trips are persisted as an explicit pair of
// toolInvocation/toolResult turns so the model can remember an image fetch
// across turns.
const (
	MessageKindPlain          = "plain"
	MessageKindToolInvocation = "toolInvocation"
	MessageKindToolResult     = "toolResult"
)

type ToolCallRecord struct {
	Name      string `bson:"name" json:"name"`
	Arguments string `bson:"arguments" json:"arguments"`
}

type ToolResponseRecord struct {
	Name   string `bson:"name" json:"name"`
	Result string `bson:"result" json:"result"`
}

type Message struct {
	ID           int64               `bson:"id" json:"id"`
	Role         string              `bson:"role" json:"role"` // user | model | system | function
	Kind         string              `bson:"kind,omitempty" json:"kind,omitempty"`
	Content      string              `bson:"content" json:"content"`
	Thinking     bool                `bson:"-" json:"thinking,omitempty"` // placeholder turns are never persisted
	Followups    []string            `bson:"followups,omitempty" json:"followups,omitempty"`
	Image        string              `bson:"image,omitempty" json:"image,omitempty"`
	ToolCall     *ToolCallRecord     `bson:"toolCall,omitempty" json:"toolCall,omitempty"`
	ToolResponse *ToolResponseRecord `bson:"toolResponse,omitempty" json:"toolResponse,omitempty"`
}

// ImageContext is the reconstructed model-called/function-responded turn
// pair handed back to the client for persistence alongside the answer.
type ImageContext struct {
	Call     Message `bson:"call" json:"call"`
	Response Message `bson:"response" json:"response"`
}

// CurrentChat records the last-viewed node of a course.
type CurrentChat struct {
	TopicID      string `bson:"topicId" json:"topicId"`
	SubtopicID   string `bson:"subtopicId" json:"subtopicId"`
	SubtopicName string `bson:"subtopicName" json:"subtopicName"`
}

type Course struct {
	ID                 primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	ShareID            string                `bson:"shareId" json:"shareId"`
	OwnerID            string                `bson:"ownerId" json:"-"`
	Title              string                `bson:"title" json:"title"`
	Introduction       string                `bson:"introduction" json:"introduction"`
	Topics             []Topic               `bson:"topics" json:"topics"`
	Threads            map[string][]Message  `bson:"threads,omitempty" json:"threads,omitempty"`
	RelatedTopics      map[string][]string   `bson:"relatedTopics,omitempty" json:"relatedTopics,omitempty"`
	CompletedSubtopics []string              `bson:"completedSubtopics,omitempty" json:"completedSubtopics,omitempty"`
	QuizResults        map[string]QuizResult `bson:"quizResults,omitempty" json:"quizResults,omitempty"`
	CurrentChat        *CurrentChat          `bson:"currentChat,omitempty" json:"currentChat,omitempty"`
	CreatedAt          time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// Thread lookups use explicit presence checks; an absent thread is not
// implicitly created.
func (c *Course) Thread(topicID string) ([]Message, bool) {
	if c.Threads == nil {
		return nil, false
	}
	msgs, ok := c.Threads[topicID]
	return msgs, ok
}
