package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/ai"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/views"
)

const analysisHistoryLimit = 10

func (s *Server) handleListSummaries(c *gin.Context) {
	summaries, err := s.store.GetWeeklySummaries(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleCurrentSummary(c *gin.Context) {
	summary, err := s.weekly.Current(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleGenerateSummary(c *gin.Context) {
	summary, err := s.weekly.Generate(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// saveAnalysis persists an AI result. A failed save is logged; the result
// is still returned to the caller.
func (s *Server) saveAnalysis(c *gin.Context, taskID, analysisType string, input, result any) {
	in, err := json.Marshal(input)
	if err != nil {
		s.logger.Warn("encoding analysis input failed", "error", err)
		return
	}
	out, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("encoding analysis result failed", "error", err)
		return
	}
	err = s.store.SaveAnalysis(c.Request.Context(), model.Analysis{
		TaskID:       taskID,
		AnalysisType: analysisType,
		InputData:    in,
		Result:       out,
		Model:        s.ai.Model(),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("saving analysis failed", "task", taskID, "type", analysisType, "error", err)
	}
}

func (s *Server) handleAnalyzeTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := s.tracker.Task(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	history, err := s.tracker.History(ctx, task.Title, analysisHistoryLimit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	analysis, err := s.ai.AnalyzeTask(ctx, task, history)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.saveAnalysis(c, task.ID, model.AnalysisTypeTask, gin.H{
		"task":    task,
		"history": history,
	}, analysis)
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleLatestAnalysis(c *gin.Context) {
	analysis, err := s.store.GetLatestAnalysis(c.Request.Context(), c.Param("id"), model.AnalysisTypeTask)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleTopic(c *gin.Context) {
	var req struct {
		Category model.Category `json:"category"`
	}
	if !s.bind(c, &req) {
		return
	}
	if !req.Category.Valid() {
		s.writeError(c, &model.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", req.Category)})
		return
	}

	ctx := c.Request.Context()
	tasks, err := s.tracker.Tasks(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	all, err := s.tracker.Notes(ctx, "", "")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var notes []model.Note
	for _, n := range all {
		if strings.EqualFold(n.Folder, string(req.Category)) {
			notes = append(notes, n)
		}
	}

	topic := ai.TopicRequest{
		Category: req.Category,
		Notes:    notes,
		Tasks:    views.Filter(tasks, views.Criteria{Category: string(req.Category)}),
	}
	analysis, err := s.ai.AnalyzeTopic(ctx, topic)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.saveAnalysis(c, "", model.AnalysisTypeTopic, gin.H{
		"category":  req.Category,
		"noteCount": len(topic.Notes),
		"taskCount": len(topic.Tasks),
	}, analysis)
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func (s *Server) handleQuiz(c *gin.Context) {
	var req ai.QuizRequest
	if !s.bind(c, &req) {
		return
	}
	questions, err := s.ai.GenerateQuiz(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) handleQuizScore(c *gin.Context) {
	var req struct {
		Questions []ai.QuizQuestion `json:"questions"`
		Answers   []int             `json:"answers"`
	}
	if !s.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score": ai.Score(req.Questions, req.Answers),
		"total": len(req.Questions),
	})
}

// handleChat answers one chat turn. A request carrying history replaces
// the server-side conversation with it first.
func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Message string       `json:"message"`
		History []ai.Message `json:"history"`
	}
	if !s.bind(c, &req) {
		return
	}

	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	if req.History != nil {
		s.assistant.Reset()
		s.assistant.Seed(req.History)
	}
	reply, err := s.assistant.Chat(c.Request.Context(), req.Message)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (s *Server) handleResetChat(c *gin.Context) {
	s.chatMu.Lock()
	s.assistant.Reset()
	s.chatMu.Unlock()
	c.Status(http.StatusNoContent)
}
