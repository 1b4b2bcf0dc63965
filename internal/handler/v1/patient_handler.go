package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/service"
)

type PatientHandler struct {
	notes *service.NotesService
}

func NewPatientHandler(notes *service.NotesService) *PatientHandler {
	return &PatientHandler{notes: notes}
}

func (h *PatientHandler) Register(rg *gin.RouterGroup) {
	patients := rg.Group("/patients")
	patients.GET("", h.List)
	patients.GET("/:name/notes", h.Notes)
}

func (h *PatientHandler) List(c *gin.Context) {
	patients, err := h.notes.Patients(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, patients)
}

// Notes returns one patient's visits without touching the loaded list.
func (h *PatientHandler) Notes(c *gin.Context) {
	notes, err := h.notes.PatientNotes(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, notes)
}
