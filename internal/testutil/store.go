package testutil

import (
	"testing"
	"time"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
)

// TestUserID is the user every test store is scoped to.
const TestUserID = "test-user"

// NewTestStore creates an in-memory SQLiteStore with all migrations applied,
// scoped to TestUserID. It automatically closes the store when the test
// completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s.ForUser(TestUserID)
}

// Task returns a valid task with the given id and title and sensible
// defaults for everything else.
func Task(id, title string, category model.Category) model.Task {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return model.Task{
		ID:            id,
		Title:         title,
		Category:      category,
		Priority:      model.PriorityMedium,
		RecurringType: model.RecurringNone,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
