package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/rules"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/testutil"
	"github.com/nhle/studytrack/internal/tracker"
	"github.com/nhle/studytrack/internal/views"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// flakyGateway fails task writes on demand.
type flakyGateway struct {
	*store.SQLiteStore
	fail bool
}

var errWriteFailed = errors.New("write failed")

func (g *flakyGateway) UpdateTask(ctx context.Context, task model.Task, tagIDs []string) (bool, error) {
	if g.fail {
		return false, errWriteFailed
	}
	return g.SQLiteStore.UpdateTask(ctx, task, tagIDs)
}

func (g *flakyGateway) UpdateTaskState(ctx context.Context, id string, progress int, completed bool) (bool, error) {
	if g.fail {
		return false, errWriteFailed
	}
	return g.SQLiteStore.UpdateTaskState(ctx, id, progress, completed)
}

func (g *flakyGateway) DeleteTask(ctx context.Context, id string) error {
	if g.fail {
		return errWriteFailed
	}
	return g.SQLiteStore.DeleteTask(ctx, id)
}

func newTracker(t *testing.T, policy rules.UncheckPolicy) (*tracker.Tracker, *flakyGateway, *clock) {
	t.Helper()
	gw := &flakyGateway{SQLiteStore: testutil.NewTestStore(t)}
	clk := &clock{now: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	tr := tracker.New(gw, tracker.Options{UncheckPolicy: policy, Now: clk.Now})
	return tr, gw, clk
}

func createTask(t *testing.T, tr *tracker.Tracker, title string) model.Task {
	t.Helper()
	task, err := tr.CreateTask(context.Background(), tracker.TaskInput{
		Title:    title,
		Category: model.CategoryHomework,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	tr, _, clk := newTracker(t, rules.KeepProgress)

	task := createTask(t, tr, "  Essay  ")
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Essay", task.Title)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.RecurringNone, task.RecurringType)
	assert.Equal(t, 0, task.Progress)
	assert.False(t, task.Completed)
	assert.True(t, clk.now.Equal(task.CreatedAt))
	assert.NotNil(t, task.Tags)
	assert.NotNil(t, task.Subtasks)

	tasks, err := tr.Tasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestCreateTaskValidatesBeforeWriting(t *testing.T) {
	tr, gw, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	tests := []struct {
		name string
		in   tracker.TaskInput
	}{
		{name: "empty title", in: tracker.TaskInput{Title: "   ", Category: model.CategoryHomework}},
		{name: "unknown category", in: tracker.TaskInput{Title: "x", Category: "chores"}},
		{name: "unknown priority", in: tracker.TaskInput{Title: "x", Category: model.CategoryOther, Priority: "urgent"}},
		{name: "non-positive estimate", in: tracker.TaskInput{
			Title: "x", Category: model.CategoryOther, EstimatedTime: testutil.Ptr(0.0),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.CreateTask(ctx, tt.in)
			assert.True(t, model.IsValidationError(err), "got %v", err)
		})
	}

	rows, err := gw.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateTaskAtFullProgressIsCompletedWithoutHistory(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	task, err := tr.CreateTask(ctx, tracker.TaskInput{
		Title:    "Already done",
		Category: model.CategoryOther,
		Progress: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)
	assert.True(t, task.Completed)

	history, err := tr.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCreateTaskWithTags(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	tag, err := tr.CreateTag(ctx, "maths", "")
	require.NoError(t, err)
	assert.Equal(t, tracker.DefaultTagColor, tag.Color)

	task, err := tr.CreateTask(ctx, tracker.TaskInput{
		Title:    "Algebra",
		Category: model.CategoryRevision,
		TagIDs:   []string{tag.ID},
	})
	require.NoError(t, err)
	require.Len(t, task.Tags, 1)
	assert.Equal(t, "maths", task.Tags[0].Name)
}

func TestSetProgressRecordsCompletionOnce(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	got, err := tr.SetProgress(ctx, task.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, got.Progress)
	assert.False(t, got.Completed)

	got, err = tr.SetProgress(ctx, task.ID, 100)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	_, err = tr.SetProgress(ctx, task.ID, 120)
	require.NoError(t, err)

	history, err := tr.History(ctx, "Essay", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, task.ID, history[0].TaskID)
}

func TestSetProgressClamps(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	task := createTask(t, tr, "Essay")

	got, err := tr.SetProgress(context.Background(), task.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
}

func TestToggleCompleteRespectsUncheckPolicy(t *testing.T) {
	tests := []struct {
		name         string
		policy       rules.UncheckPolicy
		wantProgress int
	}{
		{name: "keep progress", policy: rules.KeepProgress, wantProgress: 100},
		{name: "reset progress", policy: rules.ResetProgress, wantProgress: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _, _ := newTracker(t, tt.policy)
			ctx := context.Background()
			task := createTask(t, tr, "Essay")

			done, err := tr.ToggleComplete(ctx, task.ID)
			require.NoError(t, err)
			assert.True(t, done.Completed)
			assert.Equal(t, 100, done.Progress)

			undone, err := tr.ToggleComplete(ctx, task.ID)
			require.NoError(t, err)
			assert.False(t, undone.Completed)
			assert.Equal(t, tt.wantProgress, undone.Progress)

			stored, err := tr.Task(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProgress, stored.Progress)
		})
	}
}

func TestMoveToBand(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Project")

	tests := []struct {
		band          views.Band
		wantProgress  int
		wantCompleted bool
	}{
		{band: views.BandInProgress, wantProgress: 50},
		{band: views.BandDone, wantProgress: 100, wantCompleted: true},
		{band: views.BandTodo, wantProgress: 0},
	}
	for _, tt := range tests {
		got, err := tr.MoveToBand(ctx, task.ID, tt.band)
		require.NoError(t, err)
		assert.Equal(t, tt.wantProgress, got.Progress, tt.band)
		assert.Equal(t, tt.wantCompleted, got.Completed, tt.band)
		assert.Equal(t, tt.band, views.BandOf(got.Progress))
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	task, err := tr.CreateTask(ctx, tracker.TaskInput{
		Title:         "Essay",
		Category:      model.CategoryHomework,
		DueDate:       &due,
		EstimatedTime: testutil.Ptr(2.5),
	})
	require.NoError(t, err)

	got, err := tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{
		Title:         testutil.Ptr("Final essay"),
		Priority:      testutil.Ptr(model.PriorityHigh),
		ClearDueDate:  true,
		EstimatedTime: testutil.Ptr(3.0),
		Progress:      testutil.Ptr(30),
	})
	require.NoError(t, err)

	assert.Equal(t, task.ID, got.ID)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "Final essay", got.Title)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Nil(t, got.DueDate)
	require.NotNil(t, got.EstimatedTime)
	assert.Equal(t, 3.0, *got.EstimatedTime)
	assert.Equal(t, 30, got.Progress)
	assert.Equal(t, model.CategoryHomework, got.Category)
}

func TestUpdateTaskRejectsInvalidPatch(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	task := createTask(t, tr, "Essay")

	_, err := tr.UpdateTask(context.Background(), task.ID, tracker.TaskPatch{Title: testutil.Ptr("")})
	assert.True(t, model.IsValidationError(err))

	stored, err := tr.Task(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Essay", stored.Title)
}

func TestUpdateTaskMissing(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)

	_, err := tr.UpdateTask(context.Background(), "nope", tracker.TaskPatch{Title: testutil.Ptr("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCompletionRecordsActualTime(t *testing.T) {
	tr, _, clk := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	task, err := tr.CreateTask(ctx, tracker.TaskInput{
		Title:         "Lab report",
		Category:      model.CategoryProjects,
		EstimatedTime: testutil.Ptr(1.5),
	})
	require.NoError(t, err)

	session, err := tr.StartTimer(ctx, task.ID)
	require.NoError(t, err)
	clk.Advance(90 * time.Second)
	_, err = tr.StopTimer(ctx, session.ID)
	require.NoError(t, err)

	got, err := tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{Completed: testutil.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 100, got.Progress)

	history, err := tr.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Lab report", history[0].TaskTitle)
	assert.Equal(t, int64(90), history[0].ActualTime)
	require.NotNil(t, history[0].EstimatedTime)
	assert.Equal(t, 1.5, *history[0].EstimatedTime)
}

func TestFailedWriteRollsBackCache(t *testing.T) {
	tr, gw, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	gw.fail = true

	_, err := tr.SetProgress(ctx, task.ID, 80)
	assert.ErrorIs(t, err, errWriteFailed)

	_, err = tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{Title: testutil.Ptr("Changed")})
	assert.ErrorIs(t, err, errWriteFailed)

	err = tr.DeleteTask(ctx, task.ID)
	assert.ErrorIs(t, err, errWriteFailed)

	cached := tr.Snapshot().Tasks
	require.Len(t, cached, 1)
	assert.Equal(t, 0, cached[0].Progress)
	assert.Equal(t, "Essay", cached[0].Title)

	history, err := tr.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDeleteTaskIsIdempotent(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	require.NoError(t, tr.DeleteTask(ctx, task.ID))
	require.NoError(t, tr.DeleteTask(ctx, task.ID))
	require.NoError(t, tr.DeleteTask(ctx, "never-existed"))

	tasks, err := tr.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = tr.Task(ctx, task.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTagOperations(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	english, err := tr.CreateTag(ctx, "english", "#ff0000")
	require.NoError(t, err)
	_, err = tr.CreateTag(ctx, "english", "")
	assert.True(t, model.IsValidationError(err))

	got, err := tr.SetTaskTags(ctx, task.ID, []string{english.ID})
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)

	english.Name = "literature"
	require.NoError(t, tr.UpdateTag(ctx, english))
	got, err = tr.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "literature", got.Tags[0].Name)

	_, err = tr.SetTaskTags(ctx, task.ID, []string{"missing"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, tr.DeleteTag(ctx, english.ID))
	require.NoError(t, tr.DeleteTag(ctx, english.ID))
	got, err = tr.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestSubtaskOperations(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Project")

	first, err := tr.AddSubtask(ctx, task.ID, "Outline")
	require.NoError(t, err)
	second, err := tr.AddSubtask(ctx, task.ID, "Draft")
	require.NoError(t, err)
	assert.Greater(t, second.OrderIndex, first.OrderIndex)

	toggled, err := tr.ToggleSubtask(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	// Subtask completion does not drive the parent's progress.
	parent, err := tr.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, parent.Progress)

	renamed, err := tr.RenameSubtask(ctx, second.ID, "First draft")
	require.NoError(t, err)
	assert.Equal(t, "First draft", renamed.Title)

	parent, err = tr.ReorderSubtasks(ctx, task.ID, []string{second.ID, first.ID})
	require.NoError(t, err)
	require.Len(t, parent.Subtasks, 2)
	assert.Equal(t, second.ID, parent.Subtasks[0].ID)
	assert.Equal(t, first.ID, parent.Subtasks[1].ID)

	_, err = tr.ReorderSubtasks(ctx, task.ID, []string{first.ID})
	assert.True(t, model.IsValidationError(err))

	require.NoError(t, tr.DeleteSubtask(ctx, first.ID))
	require.NoError(t, tr.DeleteSubtask(ctx, first.ID))
	parent, err = tr.Task(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, parent.Subtasks, 1)
}

func TestTimer(t *testing.T) {
	tr, _, clk := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Revision")

	started, err := tr.StartTimer(ctx, task.ID)
	require.NoError(t, err)
	again, err := tr.StartTimer(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, again.ID)

	clk.Advance(25 * time.Minute)
	stopped, err := tr.StopTimer(ctx, started.ID)
	require.NoError(t, err)
	require.NotNil(t, stopped.DurationSeconds)
	assert.Equal(t, int64(1500), *stopped.DurationSeconds)

	clk.Advance(time.Minute)
	stoppedAgain, err := tr.StopTimer(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), *stoppedAgain.DurationSeconds)

	none, err := tr.StopTaskTimer(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	got, err := tr.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.TotalTimeSpent)

	_, err = tr.StartTimer(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNoteOperations(t *testing.T) {
	tr, _, clk := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	note, err := tr.CreateNote(ctx, tracker.NoteInput{
		Title:   "Sources",
		Content: "# Reading\nCheck #history and #essay-plan",
		TaskID:  &task.ID,
		Tags:    []string{"history"},
	})
	require.NoError(t, err)
	assert.Equal(t, tracker.DefaultFolder, note.Folder)
	assert.Equal(t, []string{"history", "essay-plan"}, note.Tags)

	_, err = tr.CreateNote(ctx, tracker.NoteInput{Title: "Maths", Content: "integrals", Folder: "Maths"})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	updated, err := tr.UpdateNote(ctx, note.ID, tracker.NotePatch{
		Content:   testutil.Ptr("now #bibliography"),
		ClearTask: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.TaskID)
	assert.Contains(t, updated.Tags, "bibliography")

	found, err := tr.Notes(ctx, "all", "BIBLIO")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, note.ID, found[0].ID)

	maths, err := tr.Notes(ctx, "Maths", "")
	require.NoError(t, err)
	require.Len(t, maths, 1)

	folders, err := tr.Folders(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{tracker.DefaultFolder, "Maths"}, folders)

	_, err = tr.CreateNote(ctx, tracker.NoteInput{Title: " "})
	assert.True(t, model.IsValidationError(err))

	require.NoError(t, tr.DeleteNote(ctx, note.ID))
	require.NoError(t, tr.DeleteNote(ctx, note.ID))
	_, err = tr.Note(ctx, note.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestImportTasks(t *testing.T) {
	tr, _, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	n, err := tr.ImportTasks(ctx, []model.Task{
		{ID: "old-1", Title: "Imported", Category: model.CategoryOther, Completed: true},
		{ID: "old-2", Title: "", Category: model.CategoryOther},
	})
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))

	tasks, err := tr.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotEqual(t, "old-1", tasks[0].ID)
	assert.Equal(t, 100, tasks[0].Progress)
	assert.True(t, tasks[0].Completed)
}

func TestCompletionRecordedOnceAcrossTrackers(t *testing.T) {
	first, gw, clk := newTracker(t, rules.KeepProgress)
	second := tracker.New(gw, tracker.Options{Now: clk.Now})
	ctx := context.Background()

	task := createTask(t, first, "Essay")
	_, err := second.Tasks(ctx)
	require.NoError(t, err)

	_, err = first.SetProgress(ctx, task.ID, 100)
	require.NoError(t, err)

	got, err := second.SetProgress(ctx, task.ID, 100)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	_, err = second.UpdateTask(ctx, task.ID, tracker.TaskPatch{Completed: testutil.Ptr(true)})
	require.NoError(t, err)

	history, err := first.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConcurrentCompletionsRecordOnce(t *testing.T) {
	owner, gw, clk := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, owner, "Essay")

	const writers = 4
	trackers := make([]*tracker.Tracker, writers)
	for i := range trackers {
		trackers[i] = tracker.New(gw, tracker.Options{Now: clk.Now})
		_, err := trackers[i].Tasks(ctx)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i, tr := range trackers {
		wg.Add(1)
		go func(i int, tr *tracker.Tracker) {
			defer wg.Done()
			_, errs[i] = tr.SetProgress(ctx, task.ID, 100)
		}(i, tr)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	history, err := owner.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCreateTaskWithUnknownTagWritesNothing(t *testing.T) {
	tr, gw, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()

	_, err := tr.CreateTask(ctx, tracker.TaskInput{
		Title:    "Essay",
		Category: model.CategoryHomework,
		TagIDs:   []string{"no-such-tag"},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	rows, err := gw.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	tasks, err := tr.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateTaskWithUnknownTagKeepsPriorState(t *testing.T) {
	tr, gw, _ := newTracker(t, rules.KeepProgress)
	ctx := context.Background()
	task := createTask(t, tr, "Essay")

	_, err := tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{
		Completed: testutil.Ptr(true),
		TagIDs:    &[]string{"no-such-tag"},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	row, err := gw.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, row.Completed)
	assert.Equal(t, 0, row.Progress)

	cached, err := tr.Task(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, cached.Completed)

	history, err := tr.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	got, err := tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{Completed: testutil.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	history, err = tr.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateTaskRejectsContradictoryProgress(t *testing.T) {
	tests := []struct {
		name      string
		progress  int
		completed bool
		wantErr   bool
	}{
		{"full but not completed", 100, false, true},
		{"over full but not completed", 120, false, true},
		{"partial but completed", 40, true, true},
		{"full and completed", 100, true, false},
		{"partial and not completed", 40, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _, _ := newTracker(t, rules.KeepProgress)
			ctx := context.Background()
			task := createTask(t, tr, "Essay")

			got, err := tr.UpdateTask(ctx, task.ID, tracker.TaskPatch{
				Progress:  testutil.Ptr(tt.progress),
				Completed: testutil.Ptr(tt.completed),
			})
			if tt.wantErr {
				assert.True(t, model.IsValidationError(err), "got %v", err)
				stored, err := tr.Task(ctx, task.ID)
				require.NoError(t, err)
				assert.Equal(t, 0, stored.Progress)
				assert.False(t, stored.Completed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.completed, got.Completed)
			assert.Equal(t, tt.completed, got.Progress == model.ProgressMax)
		})
	}
}
