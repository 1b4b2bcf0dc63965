package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/service"
)

type NotesHandler struct {
	notes *service.NotesService
}

func NewNotesHandler(notes *service.NotesService) *NotesHandler {
	return &NotesHandler{notes: notes}
}

func (h *NotesHandler) Register(rg *gin.RouterGroup) {
	notes := rg.Group("/notes")
	notes.GET("", h.List)
	notes.POST("/reload", h.Reload)
	notes.GET("/:id", h.Get)
	notes.GET("/:id/revisions", h.History)
	notes.POST("/:id/edit", h.BeginEdit)

	draft := rg.Group("/draft")
	draft.GET("", h.GetDraft)
	draft.PATCH("", h.UpdateDraft)
	draft.DELETE("", h.CancelEdit)
	draft.POST("/commit", h.Commit)
}

// List filters the loaded notes by patient name or MRN.
func (h *NotesHandler) List(c *gin.Context) {
	respondOK(c, h.notes.List(c.Query("q")))
}

func (h *NotesHandler) Reload(c *gin.Context) {
	notes, err := h.notes.Reload(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, notes)
}

func (h *NotesHandler) Get(c *gin.Context) {
	n, err := h.notes.Get(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, n)
}

func (h *NotesHandler) History(c *gin.Context) {
	revs, err := h.notes.History(c.Request.Context(), c.Param("id"), parseQueryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, revs)
}

func (h *NotesHandler) BeginEdit(c *gin.Context) {
	st, err := h.notes.BeginEdit(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

func (h *NotesHandler) GetDraft(c *gin.Context) {
	respondOK(c, h.notes.EditState())
}

type updateDraftRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (h *NotesHandler) UpdateDraft(c *gin.Context) {
	var req updateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.notes.UpdateDraft(note.Field(req.Field), req.Value)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, st)
}

func (h *NotesHandler) CancelEdit(c *gin.Context) {
	if err := h.notes.CancelEdit(); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotesHandler) Commit(c *gin.Context) {
	n, err := h.notes.Commit(c.Request.Context(), middleware.GetRequestID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[any]{Data: n, Message: "Note updated successfully"})
}
