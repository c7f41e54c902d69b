package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/export"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/tracker"
	"github.com/nhle/studytrack/internal/views"
)

// taskRequest is the body of task create and update calls. Dates are
// "2006-01-02" or RFC 3339; an empty date string clears the date.
type taskRequest struct {
	Title              *string              `json:"title"`
	Description        *string              `json:"description"`
	Category           *model.Category      `json:"category"`
	Priority           *model.Priority      `json:"priority"`
	Progress           *int                 `json:"progress"`
	Completed          *bool                `json:"completed"`
	DueDate            *string              `json:"dueDate"`
	EstimatedTime      *float64             `json:"estimatedTime"`
	ClearEstimatedTime bool                 `json:"clearEstimatedTime"`
	Notes              *string              `json:"notes"`
	RecurringType      *model.RecurringType `json:"recurringType"`
	RecurringEndDate   *string              `json:"recurringEndDate"`
	TagIDs             *[]string            `json:"tagIds"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s *Server) toInput(r taskRequest) (tracker.TaskInput, error) {
	in := tracker.TaskInput{
		Title:         deref(r.Title),
		Description:   deref(r.Description),
		Category:      deref(r.Category),
		Priority:      deref(r.Priority),
		Progress:      deref(r.Progress),
		EstimatedTime: r.EstimatedTime,
		Notes:         deref(r.Notes),
		RecurringType: deref(r.RecurringType),
		TagIDs:        deref(r.TagIDs),
	}
	if deref(r.Completed) {
		in.Progress = model.ProgressMax
	}

	var err error
	if in.DueDate, err = model.ParseDate(deref(r.DueDate), s.loc); err != nil {
		return tracker.TaskInput{}, err
	}
	if in.RecurringEndDate, err = model.ParseDate(deref(r.RecurringEndDate), s.loc); err != nil {
		return tracker.TaskInput{}, err
	}
	return in, nil
}

func (s *Server) toPatch(r taskRequest) (tracker.TaskPatch, error) {
	p := tracker.TaskPatch{
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Priority:      r.Priority,
		Progress:      r.Progress,
		Completed:     r.Completed,
		EstimatedTime: r.EstimatedTime,
		ClearEstimate: r.ClearEstimatedTime,
		Notes:         r.Notes,
		RecurringType: r.RecurringType,
		TagIDs:        r.TagIDs,
	}

	if r.DueDate != nil {
		due, err := model.ParseDate(*r.DueDate, s.loc)
		if err != nil {
			return tracker.TaskPatch{}, err
		}
		p.DueDate = due
		p.ClearDueDate = due == nil
	}
	if r.RecurringEndDate != nil {
		end, err := model.ParseDate(*r.RecurringEndDate, s.loc)
		if err != nil {
			return tracker.TaskPatch{}, err
		}
		p.RecurringEndDate = end
		p.ClearRecurringEnd = end == nil
	}
	return p, nil
}

// criteria reads the list filters from the query string.
func criteria(c *gin.Context) (views.Criteria, error) {
	status, err := views.ParseStatus(c.Query("status"))
	if err != nil {
		return views.Criteria{}, err
	}
	category := c.DefaultQuery("category", views.CategoryAll)
	if category != views.CategoryAll && !model.Category(category).Valid() {
		return views.Criteria{}, &model.ValidationError{Field: "category", Message: "unknown category " + strconv.Quote(category)}
	}
	return views.Criteria{
		Category: category,
		Status:   status,
		TagID:    c.Query("tag"),
		Query:    c.Query("q"),
	}, nil
}

func (s *Server) handleListTasks(c *gin.Context) {
	crit, err := criteria(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	tasks, err := s.tracker.Tasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Filter(tasks, crit))
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if !s.bind(c, &req) {
		return
	}
	in, err := s.toInput(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	task, err := s.tracker.CreateTask(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tracker.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if !s.bind(c, &req) {
		return
	}
	patch, err := s.toPatch(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	task, err := s.tracker.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tracker.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetProgress(c *gin.Context) {
	var req struct {
		Progress *int `json:"progress"`
	}
	if !s.bind(c, &req) {
		return
	}
	if req.Progress == nil {
		s.writeError(c, &model.ValidationError{Field: "progress", Message: "is required"})
		return
	}
	task, err := s.tracker.SetProgress(c.Request.Context(), c.Param("id"), *req.Progress)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggle(c *gin.Context) {
	task, err := s.tracker.ToggleComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleMove(c *gin.Context) {
	var req struct {
		Band string `json:"band"`
	}
	if !s.bind(c, &req) {
		return
	}
	band, err := views.ParseBand(req.Band)
	if err != nil {
		s.writeError(c, err)
		return
	}
	task, err := s.tracker.MoveToBand(c.Request.Context(), c.Param("id"), band)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleSetTaskTags(c *gin.Context) {
	var req struct {
		TagIDs []string `json:"tagIds"`
	}
	if !s.bind(c, &req) {
		return
	}
	task, err := s.tracker.SetTaskTags(c.Request.Context(), c.Param("id"), req.TagIDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleAddSubtask(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if !s.bind(c, &req) {
		return
	}
	sub, err := s.tracker.AddSubtask(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleReorderSubtasks(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !s.bind(c, &req) {
		return
	}
	task, err := s.tracker.ReorderSubtasks(c.Request.Context(), c.Param("id"), req.IDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleRenameSubtask(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if !s.bind(c, &req) {
		return
	}
	sub, err := s.tracker.RenameSubtask(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleToggleSubtask(c *gin.Context) {
	sub, err := s.tracker.ToggleSubtask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	if err := s.tracker.DeleteSubtask(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStartTimer(c *gin.Context) {
	session, err := s.tracker.StartTimer(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleStopTimer(c *gin.Context) {
	session, err := s.tracker.StopTaskTimer(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if session == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.tracker.Sessions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func limitParam(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) handleTaskHistory(c *gin.Context) {
	task, err := s.tracker.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	records, err := s.tracker.History(c.Request.Context(), task.Title, limitParam(c, 10))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleHistory(c *gin.Context) {
	records, err := s.tracker.History(c.Request.Context(), c.Query("title"), limitParam(c, 50))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleImport(c *gin.Context) {
	backup, err := export.ReadBackup(c.Request.Body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	imported, err := s.tracker.ImportTasks(c.Request.Context(), backup.Tasks)
	body := gin.H{"imported": imported}
	if err != nil {
		s.logger.Warn("import skipped tasks", "error", err)
		body["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.tracker.Tags(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCreateTag(c *gin.Context) {
	var req tagRequest
	if !s.bind(c, &req) {
		return
	}
	tag, err := s.tracker.CreateTag(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (s *Server) handleUpdateTag(c *gin.Context) {
	var req tagRequest
	if !s.bind(c, &req) {
		return
	}
	tag := model.Tag{ID: c.Param("id"), Name: req.Name, Color: req.Color}
	if err := s.tracker.UpdateTag(c.Request.Context(), tag); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (s *Server) handleDeleteTag(c *gin.Context) {
	if err := s.tracker.DeleteTag(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
