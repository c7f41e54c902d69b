package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/testutil"
)

func TestUnscopedStoreRequiresUser(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	_, err = s.GetTasks(ctx)
	assert.ErrorIs(t, err, model.ErrAuthRequired)

	err = s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework))
	assert.ErrorIs(t, err, model.ErrAuthRequired)

	err = s.ForUser("   ").CreateTag(ctx, model.Tag{Name: "math"})
	assert.ErrorIs(t, err, model.ErrAuthRequired)
}

func TestTaskCRUD(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	task := testutil.Task("t1", "Read chapter 4", model.CategoryRevision)
	task.Description = "pages 80-120"
	task.Progress = 40
	task.DueDate = &due
	task.EstimatedTime = testutil.Ptr(2.5)
	require.NoError(t, s.CreateTask(ctx, task))

	got, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Read chapter 4", got.Title)
	assert.Equal(t, "pages 80-120", got.Description)
	assert.Equal(t, model.CategoryRevision, got.Category)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, 40, got.Progress)
	assert.False(t, got.Completed)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	require.NotNil(t, got.EstimatedTime)
	assert.InDelta(t, 2.5, *got.EstimatedTime, 1e-9)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.RecurringEndDate)

	got.Title = "Read chapter 5"
	got.DueDate = nil
	completedNow, err := s.UpdateTask(ctx, *got, nil)
	require.NoError(t, err)
	assert.False(t, completedNow)

	updated, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Read chapter 5", updated.Title)
	assert.Nil(t, updated.DueDate)
	assert.True(t, task.CreatedAt.Equal(updated.CreatedAt))

	completedNow, err = s.UpdateTaskState(ctx, "t1", 100, true)
	require.NoError(t, err)
	assert.True(t, completedNow)
	updated, err = s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Progress)
	assert.True(t, updated.Completed)

	require.NoError(t, s.DeleteTask(ctx, "t1"))
	_, err = s.GetTaskByID(ctx, "t1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, "t1"), model.ErrNotFound)
	_, err = s.UpdateTaskState(ctx, "t1", 10, false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetTasksNewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		task := testutil.Task(id, "task "+id, model.CategoryOther)
		task.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.CreateTask(ctx, task))
	}

	tasks, err := s.GetTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	for _, task := range tasks {
		assert.Empty(t, task.Tags)
		assert.Empty(t, task.Subtasks)
		assert.Zero(t, task.TotalTimeSpent)
	}
}

func TestStoreIsolatesUsers(t *testing.T) {
	s := testutil.NewTestStore(t)
	other := s.ForUser("someone-else")
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, testutil.Task("mine", "Mine", model.CategoryHomework)))

	tasks, err := other.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = other.GetTaskByID(ctx, "mine")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, other.DeleteTask(ctx, "mine"), model.ErrNotFound)

	// Tag names are unique per user, not globally.
	require.NoError(t, s.CreateTag(ctx, model.Tag{Name: "math"}))
	require.NoError(t, other.CreateTag(ctx, model.Tag{Name: "math"}))
}

func TestTags(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t2", "Lab", model.CategoryProjects)))
	require.NoError(t, s.CreateTag(ctx, model.Tag{ID: "g1", Name: "physics", Color: "#00f"}))
	require.NoError(t, s.CreateTag(ctx, model.Tag{ID: "g2", Name: "english"}))

	err := s.CreateTag(ctx, model.Tag{Name: "physics"})
	assert.True(t, model.IsValidationError(err), "duplicate name should be a validation error, got %v", err)

	err = s.CreateTag(ctx, model.Tag{Name: "  "})
	assert.True(t, model.IsValidationError(err))

	require.NoError(t, s.SetTaskTags(ctx, "t1", []string{"g1", "g2", "g1"}))
	require.NoError(t, s.SetTaskTags(ctx, "t2", []string{"g1"}))

	byTask, err := s.GetTagsForTasks(ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	require.Len(t, byTask["t1"], 2)
	assert.Equal(t, "english", byTask["t1"][0].Name)
	assert.Equal(t, "physics", byTask["t1"][1].Name)
	require.Len(t, byTask["t2"], 1)

	assert.ErrorIs(t, s.SetTaskTags(ctx, "t1", []string{"missing"}), model.ErrNotFound)
	assert.ErrorIs(t, s.SetTaskTags(ctx, "nope", []string{"g1"}), model.ErrNotFound)

	// A failed replace leaves the previous links in place.
	byTask, err = s.GetTagsForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Len(t, byTask["t1"], 2)

	require.NoError(t, s.DeleteTag(ctx, "g1"))
	byTask, err = s.GetTagsForTasks(ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Len(t, byTask["t1"], 1)
	assert.NotContains(t, byTask, "t2")

	tags, err := s.GetTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "english", tags[0].Name)

	empty, err := s.GetTagsForTasks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSubtasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Project", model.CategoryProjects)))

	var ids []string
	for _, title := range []string{"outline", "draft", "polish"} {
		sub, err := s.AddSubtask(ctx, model.Subtask{TaskID: "t1", Title: title})
		require.NoError(t, err)
		ids = append(ids, sub.ID)
	}

	byTask, err := s.GetSubtasksForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, byTask["t1"], 3)
	for i, sub := range byTask["t1"] {
		assert.Equal(t, i+1, sub.OrderIndex)
	}

	require.NoError(t, s.ReorderSubtasks(ctx, "t1", []string{ids[2], ids[0], ids[1]}))
	byTask, err = s.GetSubtasksForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, "polish", byTask["t1"][0].Title)
	assert.Equal(t, "outline", byTask["t1"][1].Title)
	assert.Equal(t, "draft", byTask["t1"][2].Title)

	err = s.ReorderSubtasks(ctx, "t1", []string{ids[0], ids[1]})
	assert.True(t, model.IsValidationError(err))

	sub, err := s.GetSubtask(ctx, ids[0])
	require.NoError(t, err)
	sub.Completed = true
	require.NoError(t, s.UpdateSubtask(ctx, *sub))
	sub, err = s.GetSubtask(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, sub.Completed)

	require.NoError(t, s.DeleteSubtask(ctx, ids[1]))
	assert.ErrorIs(t, s.DeleteSubtask(ctx, ids[1]), model.ErrNotFound)

	_, err = s.AddSubtask(ctx, model.Subtask{TaskID: "missing", Title: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTimeSessions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Revise", model.CategoryRevision)))

	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	session, err := s.CreateSession(ctx, model.TimeSession{TaskID: "t1", StartTime: start})
	require.NoError(t, err)
	assert.False(t, session.Closed())

	open, err := s.GetOpenSession(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, session.ID, open.ID)

	require.NoError(t, s.CloseSession(ctx, session.ID, start.Add(5*time.Minute), 300))
	assert.ErrorIs(t, s.CloseSession(ctx, session.ID, start.Add(time.Hour), 3600), model.ErrNotFound)

	open, err = s.GetOpenSession(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, open)

	sessions, err := s.GetSessionsForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].DurationSeconds)
	assert.Equal(t, int64(300), *sessions[0].DurationSeconds)

	_, err = s.CreateSession(ctx, model.TimeSession{TaskID: "missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteTaskCascades(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))
	require.NoError(t, s.CreateTag(ctx, model.Tag{ID: "g1", Name: "english"}))
	require.NoError(t, s.SetTaskTags(ctx, "t1", []string{"g1"}))
	_, err := s.AddSubtask(ctx, model.Subtask{TaskID: "t1", Title: "intro"})
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, model.TimeSession{TaskID: "t1"})
	require.NoError(t, err)
	require.NoError(t, s.CreateNote(ctx, model.Note{ID: "n1", Title: "Ideas", TaskID: testutil.Ptr("t1")}))

	require.NoError(t, s.DeleteTask(ctx, "t1"))

	tags, err := s.GetTagsForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Empty(t, tags)
	subs, err := s.GetSubtasksForTasks(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Empty(t, subs)
	sessions, err := s.GetSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	note, err := s.GetNoteByID(ctx, "n1")
	require.NoError(t, err)
	assert.Nil(t, note.TaskID)

	// The tag itself survives.
	all, err := s.GetTags(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateNote(ctx, model.Note{ID: "n1", Title: "Cells", Folder: "bio", Tags: []string{"mitosis"}}))
	require.NoError(t, s.CreateNote(ctx, model.Note{ID: "n2", Title: "Poems", Folder: "english"}))

	err := s.CreateNote(ctx, model.Note{Title: ""})
	assert.True(t, model.IsValidationError(err))
	err = s.CreateNote(ctx, model.Note{Title: "x", TaskID: testutil.Ptr("missing")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	bio, err := s.GetNotes(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, bio, 1)
	assert.Equal(t, []string{"mitosis"}, bio[0].Tags)

	all, err := s.GetNotes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n2, err := s.GetNoteByID(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, []string{}, n2.Tags)

	n2.Content = "Ozymandias"
	require.NoError(t, s.UpdateNote(ctx, *n2))
	n2, err = s.GetNoteByID(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, "Ozymandias", n2.Content)

	require.NoError(t, s.DeleteNote(ctx, "n2"))
	assert.ErrorIs(t, s.DeleteNote(ctx, "n2"), model.ErrNotFound)
}

func TestCompletionHistory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendCompletion(ctx, model.CompletionRecord{
			TaskID:      "t1",
			TaskTitle:   "Flashcards",
			ActualTime:  int64(600 * (i + 1)),
			CompletedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	require.NoError(t, s.AppendCompletion(ctx, model.CompletionRecord{
		TaskID: "t2", TaskTitle: "Essay", CompletedAt: base,
	}))

	recs, err := s.GetCompletionHistory(ctx, "Flashcards", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1800), recs[0].ActualTime)
	assert.Equal(t, int64(1200), recs[1].ActualTime)

	all, err := s.GetCompletionHistory(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCreateWeeklySummaryIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	_, err := s.GetWeeklySummary(ctx, start, end)
	assert.ErrorIs(t, err, model.ErrNotFound)

	first, err := s.CreateWeeklySummary(ctx, model.WeeklySummary{
		WeekStart: start,
		WeekEnd:   end,
		Summary:   "Solid week.",
		Insights:  model.Insights{TotalCompleted: 3, TopCategory: model.CategoryRevision, Suggestions: []string{"rest"}},
	})
	require.NoError(t, err)

	second, err := s.CreateWeeklySummary(ctx, model.WeeklySummary{
		WeekStart: start,
		WeekEnd:   end,
		Summary:   "Different text.",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Solid week.", second.Summary)
	assert.Equal(t, 3, second.Insights.TotalCompleted)
	assert.Equal(t, "2024-03-10", second.WeekStart.Format(model.DateLayout))

	all, err := s.GetWeeklySummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAnalysis(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAnalysis(ctx, model.Analysis{
		TaskID:       "t1",
		AnalysisType: model.AnalysisTypeTask,
		Result:       []byte(`{"difficulty":"easy"}`),
		Model:        "m",
		CreatedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.SaveAnalysis(ctx, model.Analysis{
		TaskID:       "t1",
		AnalysisType: model.AnalysisTypeTask,
		Result:       []byte(`{"difficulty":"hard"}`),
		Model:        "m",
		CreatedAt:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}))

	latest, err := s.GetLatestAnalysis(ctx, "t1", model.AnalysisTypeTask)
	require.NoError(t, err)
	assert.JSONEq(t, `{"difficulty":"hard"}`, string(latest.Result))
	assert.JSONEq(t, `{}`, string(latest.InputData))

	_, err = s.GetLatestAnalysis(ctx, "t1", model.AnalysisTypeTopic)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestChangeFeed(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	var changes []store.Change
	unsubscribe := s.Subscribe(func(c store.Change) { changes = append(changes, c) })

	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))
	_, err := s.UpdateTaskState(ctx, "t1", 50, false)
	require.NoError(t, err)
	assert.Error(t, s.DeleteTask(ctx, "missing"))

	require.Len(t, changes, 2)
	assert.Equal(t, store.Change{Table: "tasks", Op: store.OpInsert, ID: "t1", UserID: testutil.TestUserID}, changes[0])
	assert.Equal(t, store.OpUpdate, changes[1].Op)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.DeleteTask(ctx, "t1"))
	assert.Len(t, changes, 2)
}

func TestUpdateTaskStateReportsStoredTransition(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))

	tests := []struct {
		name      string
		progress  int
		completed bool
		want      bool
	}{
		{"partial progress", 40, false, false},
		{"first completion", 100, true, true},
		{"already completed", 100, true, false},
		{"uncheck", 100, false, false},
		{"completed again", 100, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.UpdateTaskState(ctx, "t1", tt.progress, tt.completed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateTaskReportsStoredTransition(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))

	row, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	row.Progress, row.Completed = 100, true

	completedNow, err := s.UpdateTask(ctx, *row, nil)
	require.NoError(t, err)
	assert.True(t, completedNow)

	completedNow, err = s.UpdateTask(ctx, *row, nil)
	require.NoError(t, err)
	assert.False(t, completedNow, "a second write of a completed row is not a transition")

	row.ID = "missing"
	_, err = s.UpdateTask(ctx, *row, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateTaskWithUnknownTagLeavesNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTag(ctx, model.Tag{ID: "g1", Name: "maths", Color: "#fff"}))

	err := s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework), "g1", "no-such-tag")
	assert.ErrorIs(t, err, model.ErrNotFound)

	rows, err := s.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.CreateTask(ctx, testutil.Task("t2", "Lab", model.CategoryProjects), "g1"))
	tags, err := s.GetTagsForTasks(ctx, []string{"t2"})
	require.NoError(t, err)
	require.Len(t, tags["t2"], 1)
	assert.Equal(t, "g1", tags["t2"][0].ID)
}

func TestUpdateTaskWithUnknownTagRollsBack(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, testutil.Task("t1", "Essay", model.CategoryHomework)))

	row, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	row.Title = "Renamed"

	_, err = s.UpdateTask(ctx, *row, []string{"no-such-tag"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Essay", got.Title)
}
