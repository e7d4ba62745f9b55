package handlers

import (
	"testing"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/models"
)

func TestCourseProgressUsesOneCountingUnit(t *testing.T) {
	course := &models.Course{
		ShareID: "abc123",
		Title:   "Photosynthesis",
		Topics: []models.Topic{
			{ID: "1", Name: "Foundations", Subtopics: []models.Subtopic{
				{ID: "1.1", Name: "Introduction to Foundations"},
				{ID: "1.2", Name: "Chloroplast Structure", SubSubtopics: []models.SubSubtopic{
					{ID: "1.2.1", Name: "Thylakoids"},
					{ID: "1.2.2", Name: "Stroma"},
				}},
			}},
			{ID: "2", Name: "Light Reactions", Subtopics: []models.Subtopic{
				{ID: "2.1", Name: "Introduction to Light Reactions"},
				{ID: "2.2", Name: "Photosystems"},
			}},
		},
		// More completed leaves than there are topics; both counts must
		// still be in the same unit.
		CompletedSubtopics: []string{"1.1", "1.2.1", "1.2.2", "2.1"},
	}

	progress := courseProgress(course)
	if progress.CourseID != "abc123" || progress.Title != "Photosynthesis" {
		t.Errorf("identity fields = %+v", progress)
	}
	// Leaves: 1.1, 1.2.1, 1.2.2, 2.1, 2.2.
	if progress.TotalSubtopics != 5 {
		t.Errorf("total = %d, want 5", progress.TotalSubtopics)
	}
	if progress.CompletedSubtopics != 4 {
		t.Errorf("completed = %d, want 4", progress.CompletedSubtopics)
	}
	if progress.CompletedSubtopics > progress.TotalSubtopics {
		t.Errorf("completed %d exceeds total %d", progress.CompletedSubtopics, progress.TotalSubtopics)
	}
}
