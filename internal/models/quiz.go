package models

import "fmt"

const QuizOptionCount = 4

// Quiz scopes are keyed inside a course as "topic-<id>" or "overall".
const OverallQuizScope = "overall"

func TopicQuizScope(topicID string) string {
	return "topic-" + topicID
}

type QuizQuestion struct {
	ID       int      `bson:"id" json:"id"`
	Question string   `bson:"question" json:"question"`
	Options  []string `bson:"options" json:"options"`
	Correct  int      `bson:"correct" json:"correct"`
}

type QuizResult struct {
	Questions []QuizQuestion `bson:"questions" json:"questions"`
	Answers   map[string]int `bson:"answers,omitempty" json:"answers,omitempty"` // question id -> chosen option index
	Score     int            `bson:"score" json:"score"`
}

// ValidateQuestions checks the fixed quiz shape the UI depends on: exactly
// four options per question and a correct index inside [0,3]. Returns one
// error string per violation.
func ValidateQuestions(questions []QuizQuestion) []string {
	var errs []string
	if len(questions) == 0 {
		errs = append(errs, "quiz contains no questions")
		return errs
	}
	for i, q := range questions {
		if q.Question == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", i+1))
		}
		if len(q.Options) != QuizOptionCount {
			errs = append(errs, fmt.Sprintf("question %d: expected %d options, got %d", i+1, QuizOptionCount, len(q.Options)))
		}
		if q.Correct < 0 || q.Correct >= QuizOptionCount {
			errs = append(errs, fmt.Sprintf("question %d: correct index %d out of range", i+1, q.Correct))
		}
	}
	return errs
}

// ScoreAnswers computes the cumulative score for a set of submitted answers.
func ScoreAnswers(questions []QuizQuestion, answers map[string]int) int {
	score := 0
	for _, q := range questions {
		if chosen, ok := answers[fmt.Sprintf("%d", q.ID)]; ok && chosen == q.Correct {
			score++
		}
	}
	return score
}
