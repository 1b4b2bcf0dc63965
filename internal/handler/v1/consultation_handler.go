package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/service"
)

type ConsultationHandler struct {
	consultations  *service.ConsultationService
	maxUploadBytes int64
}

func NewConsultationHandler(consultations *service.ConsultationService, maxUploadBytes int64) *ConsultationHandler {
	return &ConsultationHandler{consultations: consultations, maxUploadBytes: maxUploadBytes}
}

func (h *ConsultationHandler) Register(rg *gin.RouterGroup) {
	consultations := rg.Group("/consultations")
	consultations.POST("/transcribe", h.Transcribe)
	consultations.POST("/process", h.Process)
}

// Transcribe forwards the multipart field "audio" to the store unchanged.
func (h *ConsultationHandler) Transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "audio file is too large")
			return
		}
		respondError(c, http.StatusBadRequest, "No audio file provided")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable audio file")
		return
	}
	defer f.Close()

	out, err := h.consultations.Transcribe(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

type processRequest struct {
	Transcription string `json:"transcription" binding:"required"`
	AudioFile     string `json:"audio_file"`
}

func (h *ConsultationHandler) Process(c *gin.Context) {
	var req processRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := h.consultations.Process(c.Request.Context(), req.Transcription, req.AudioFile)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}
