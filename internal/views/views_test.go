package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/model"
)

func task(id, title string, category model.Category, progress int) model.Task {
	return model.Task{
		ID:        id,
		Title:     title,
		Category:  category,
		Progress:  progress,
		Completed: progress == model.ProgressMax,
	}
}

func due(t model.Task, d time.Time) model.Task {
	t.DueDate = &d
	return t
}

func ids(tasks []model.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	a := task("a", "Algebra worksheet", model.CategoryHomework, 0)
	b := task("b", "Biology flashcards", model.CategoryRevision, 100)
	c := task("c", "Chemistry lab", model.CategoryProjects, 60)
	c.Description = "titration report"
	c.Tags = []model.Tag{{ID: "g1"}}
	// Completed flag alone also counts as done.
	d := task("d", "Diary", model.CategoryOther, 20)
	d.Completed = true
	all := []model.Task{a, b, c, d}

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"zero criteria keep everything", Criteria{}, []string{"a", "b", "c", "d"}},
		{"all/all", Criteria{Category: CategoryAll, Status: StatusAll}, []string{"a", "b", "c", "d"}},
		{"category", Criteria{Category: "homework"}, []string{"a"}},
		{"completed", Criteria{Status: StatusCompleted}, []string{"b", "d"}},
		{"incomplete", Criteria{Status: StatusIncomplete}, []string{"a", "c"}},
		{"category and status", Criteria{Category: "revision", Status: StatusIncomplete}, []string{}},
		{"tag", Criteria{TagID: "g1"}, []string{"c"}},
		{"query matches description", Criteria{Query: "TITRATION"}, []string{"c"}},
		{"query matches title", Criteria{Query: "bio"}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(all, tt.c)))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, s)

	s, err = ParseStatus("Completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("archived")
	assert.True(t, model.IsValidationError(err))
}

func TestNewTaskAtZeroIsTodoAndIncomplete(t *testing.T) {
	tk := task("a", "Essay", model.CategoryHomework, 0)
	assert.Equal(t, BandTodo, BandOf(tk.Progress))
	assert.Equal(t, []string{"a"}, ids(Filter([]model.Task{tk}, Criteria{Status: StatusIncomplete})))
}

func TestBandOfBoundaries(t *testing.T) {
	tests := []struct {
		progress int
		want     Band
	}{
		{-5, BandTodo},
		{0, BandTodo},
		{1, BandInProgress},
		{50, BandInProgress},
		{99, BandInProgress},
		{100, BandDone},
		{150, BandDone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandOf(tt.progress), "progress %d", tt.progress)
	}
}

func TestRepresentativeProgress(t *testing.T) {
	assert.Equal(t, 0, RepresentativeProgress(BandTodo))
	assert.Equal(t, 50, RepresentativeProgress(BandInProgress))
	assert.Equal(t, 100, RepresentativeProgress(BandDone))
	for _, b := range Bands {
		assert.Equal(t, b, BandOf(RepresentativeProgress(b)))
	}
}

func TestParseBand(t *testing.T) {
	for in, want := range map[string]Band{
		"todo":        BandTodo,
		"InProgress":  BandInProgress,
		"in-progress": BandInProgress,
		"in_progress": BandInProgress,
		" DONE ":      BandDone,
	} {
		got, err := ParseBand(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBand("blocked")
	assert.True(t, model.IsValidationError(err))
}

func TestBoard(t *testing.T) {
	cols := Board([]model.Task{
		task("a", "A", model.CategoryOther, 0),
		task("b", "B", model.CategoryOther, 100),
		task("c", "C", model.CategoryOther, 30),
		task("d", "D", model.CategoryOther, 0),
	})
	require.Len(t, cols, 3)
	assert.Equal(t, BandTodo, cols[0].Band)
	assert.Equal(t, []string{"a", "d"}, ids(cols[0].Tasks))
	assert.Equal(t, []string{"c"}, ids(cols[1].Tasks))
	assert.Equal(t, []string{"b"}, ids(cols[2].Tasks))

	empty := Board(nil)
	require.Len(t, empty, 3)
	for _, col := range empty {
		assert.NotNil(t, col.Tasks)
	}
}

func TestGroupByDay(t *testing.T) {
	loc := time.UTC
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)

	tasks := []model.Task{
		due(task("b", "Zoology", model.CategoryOther, 0), day.Add(15*time.Hour)),
		due(task("a", "Art", model.CategoryOther, 0), day),
		task("none", "Undated", model.CategoryOther, 0),
		due(task("c", "Calc", model.CategoryOther, 0), day.AddDate(0, 0, -2)),
	}

	groups := GroupByDay(tasks, loc)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-03-08", groups[0].Date)
	assert.Equal(t, "2024-03-10", groups[1].Date)
	assert.Equal(t, []string{"a", "b"}, ids(groups[1].Tasks))

	for _, g := range groups {
		assert.NotContains(t, ids(g.Tasks), "none")
	}

	assert.Equal(t, []string{"a", "b"}, ids(TasksOn(tasks, day.Add(20*time.Hour), loc)))
	assert.Empty(t, TasksOn(tasks, day.AddDate(0, 0, 1), loc))
	assert.Len(t, Month(tasks, day, loc), 2)
	assert.Empty(t, Month(tasks, day.AddDate(0, 1, 0), loc))
}

func TestGroupByDayUsesCallerLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 9th is the morning of the 10th in Tokyo.
	d := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	tasks := []model.Task{due(task("a", "A", model.CategoryOther, 0), d)}

	assert.Equal(t, "2024-03-09", GroupByDay(tasks, time.UTC)[0].Date)
	assert.Equal(t, "2024-03-10", GroupByDay(tasks, tokyo)[0].Date)
}

func TestTimeline(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 10, 14, 30, 0, 0, loc)

	tasks := []model.Task{
		due(task("later", "Later", model.CategoryOther, 0), now.AddDate(0, 0, 3)),
		due(task("morning", "Morning", model.CategoryOther, 0), time.Date(2024, 3, 10, 8, 0, 0, 0, loc)),
		due(task("evening", "Evening", model.CategoryOther, 0), time.Date(2024, 3, 10, 22, 0, 0, 0, loc)),
		due(task("past", "Past", model.CategoryOther, 0), now.AddDate(0, 0, -1)),
		task("none", "None", model.CategoryOther, 0),
	}

	groups := Timeline(tasks, now, loc)
	require.Len(t, groups, 3)

	assert.Equal(t, "2024-03-09", groups[0].Date)
	assert.True(t, groups[0].Past)
	assert.False(t, groups[0].Today)

	// A task due earlier today is Today, not Past.
	assert.Equal(t, "2024-03-10", groups[1].Date)
	assert.True(t, groups[1].Today)
	assert.False(t, groups[1].Past)
	assert.Equal(t, []string{"morning", "evening"}, ids(groups[1].Tasks))

	assert.Equal(t, "2024-03-13", groups[2].Date)
	assert.False(t, groups[2].Past)
	assert.False(t, groups[2].Today)
}

func TestSameDueDateSharesGroup(t *testing.T) {
	d, err := model.ParseDate("2024-03-10", time.UTC)
	require.NoError(t, err)

	tasks := []model.Task{
		due(task("a", "A", model.CategoryOther, 0), *d),
		due(task("b", "B", model.CategoryOther, 0), *d),
		task("c", "C", model.CategoryOther, 0),
	}

	cal := GroupByDay(tasks, time.UTC)
	require.Len(t, cal, 1)
	assert.Equal(t, "2024-03-10", cal[0].Date)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(cal[0].Tasks))

	tl := Timeline(tasks, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, tl, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(tl[0].Tasks))
}

func TestAverageProgressByCategory(t *testing.T) {
	avg := AverageProgressByCategory([]model.Task{
		task("a", "A", model.CategoryHomework, 10),
		task("b", "B", model.CategoryHomework, 15),
		task("c", "C", model.CategoryRevision, 33),
		task("d", "D", model.CategoryRevision, 34),
	})

	assert.Len(t, avg, 4)
	assert.Equal(t, 13, avg[model.CategoryHomework]) // 12.5 rounds up
	assert.Equal(t, 34, avg[model.CategoryRevision]) // 33.5 rounds up
	assert.Equal(t, 0, avg[model.CategoryProjects])
	assert.Equal(t, 0, avg[model.CategoryOther])

	empty := AverageProgressByCategory(nil)
	for _, c := range model.Categories {
		assert.Equal(t, 0, empty[c])
	}
}

func TestSummarizeAndBreakdown(t *testing.T) {
	tasks := []model.Task{
		task("a", "A", model.CategoryHomework, 0),
		task("b", "B", model.CategoryHomework, 100),
		task("c", "C", model.CategoryProjects, 45),
	}
	tasks[1].TotalTimeSpent = 600
	tasks[2].TotalTimeSpent = 60

	s := Summarize(tasks)
	assert.Equal(t, Stats{
		Total:           3,
		Completed:       1,
		InProgress:      1,
		NotStarted:      1,
		AverageProgress: 48,
		TotalTimeSpent:  660,
	}, s)
	assert.Equal(t, Stats{}, Summarize(nil))

	breakdown := CategoryBreakdown(tasks)
	require.Len(t, breakdown, 4)
	assert.Equal(t, CategoryCount{Category: model.CategoryHomework, Total: 2, Completed: 1}, breakdown[0])
	assert.Equal(t, CategoryCount{Category: model.CategoryRevision}, breakdown[1])
	assert.Equal(t, CategoryCount{Category: model.CategoryProjects, Total: 1}, breakdown[2])
}

func TestRecentTrend(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var tasks []model.Task
	for i, id := range []string{"c", "a", "b"} {
		tk := task(id, id, model.CategoryOther, i*10)
		tk.CreatedAt = base.AddDate(0, 0, []int{3, 1, 2}[i])
		tasks = append(tasks, tk)
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(RecentTrend(tasks, 0)))
	assert.Equal(t, []string{"b", "c"}, ids(RecentTrend(tasks, 2)))
	// Input order is untouched.
	assert.Equal(t, []string{"c", "a", "b"}, ids(tasks))
}
