package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/export"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/views"
)

const recentTrendSize = 7

// filtered returns the aggregated tasks narrowed by the query filters.
func (s *Server) filtered(c *gin.Context) ([]model.Task, bool) {
	crit, err := criteria(c)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	tasks, err := s.tracker.Tasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return views.Filter(tasks, crit), true
}

func (s *Server) handleBoard(c *gin.Context) {
	tasks, ok := s.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, views.Board(tasks))
}

// handleCalendar lists day groups. ?date= selects the tasks of one day,
// ?month= (any date within it) the groups of one month.
func (s *Server) handleCalendar(c *gin.Context) {
	tasks, ok := s.filtered(c)
	if !ok {
		return
	}

	if raw := c.Query("date"); raw != "" {
		day, err := model.ParseDate(raw, s.loc)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, views.DayGroup{
			Date:  views.DayKey(*day, s.loc),
			Tasks: views.TasksOn(tasks, *day, s.loc),
		})
		return
	}

	if raw := c.Query("month"); raw != "" {
		day, err := model.ParseDate(raw, s.loc)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, views.Month(tasks, *day, s.loc))
		return
	}

	c.JSON(http.StatusOK, views.GroupByDay(tasks, s.loc))
}

func (s *Server) handleTimeline(c *gin.Context) {
	tasks, ok := s.filtered(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, views.Timeline(tasks, s.now(), s.loc))
}

func (s *Server) handleStats(c *gin.Context) {
	tasks, err := s.tracker.Tasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":           views.Summarize(tasks),
		"averageByCategory": views.AverageProgressByCategory(tasks),
		"categories":        views.CategoryBreakdown(tasks),
		"recent":            views.RecentTrend(tasks, recentTrendSize),
	})
}

func (s *Server) attachment(c *gin.Context, kind, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(kind, s.now().In(s.loc))+`"`)
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) handleExportJSON(c *gin.Context) {
	backup, err := export.Collect(c.Request.Context(), s.tracker, s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, backup); err != nil {
		s.writeError(c, err)
		return
	}
	s.attachment(c, "backup", "application/json", buf.Bytes())
}

func (s *Server) handleExportCSV(c *gin.Context) {
	tasks, err := s.tracker.Tasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, tasks, s.loc); err != nil {
		s.writeError(c, err)
		return
	}
	s.attachment(c, "csv", "text/csv", buf.Bytes())
}

func (s *Server) handleExportArchive(c *gin.Context) {
	tasks, err := s.tracker.Tasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if _, err := export.WriteArchive(&buf, tasks); err != nil {
		if errors.Is(err, export.ErrNothingToArchive) {
			c.Status(http.StatusNoContent)
			return
		}
		s.writeError(c, err)
		return
	}
	s.attachment(c, "archive", "application/json", buf.Bytes())
}
