package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/studytrack/internal/tracker"
)

type noteRequest struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	TaskID    *string   `json:"taskId"`
	ClearTask bool      `json:"clearTask"`
	Folder    *string   `json:"folder"`
	Tags      *[]string `json:"tags"`
}

func (s *Server) handleListNotes(c *gin.Context) {
	notes, err := s.tracker.Notes(c.Request.Context(), c.Query("folder"), c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req noteRequest
	if !s.bind(c, &req) {
		return
	}
	note, err := s.tracker.CreateNote(c.Request.Context(), tracker.NoteInput{
		Title:   deref(req.Title),
		Content: deref(req.Content),
		TaskID:  req.TaskID,
		Folder:  deref(req.Folder),
		Tags:    deref(req.Tags),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) handleGetNote(c *gin.Context) {
	note, err := s.tracker.Note(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	var req noteRequest
	if !s.bind(c, &req) {
		return
	}
	note, err := s.tracker.UpdateNote(c.Request.Context(), c.Param("id"), tracker.NotePatch{
		Title:     req.Title,
		Content:   req.Content,
		TaskID:    req.TaskID,
		ClearTask: req.ClearTask,
		Folder:    req.Folder,
		Tags:      req.Tags,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	if err := s.tracker.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFolders(c *gin.Context) {
	folders, err := s.tracker.Folders(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folders)
}
