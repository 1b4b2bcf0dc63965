package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

type Handlers struct {
	Notes         *NotesHandler
	Patients      *PatientHandler
	Consultations *ConsultationHandler
	Health        *HealthHandler
}

func NewRouter(cfg *config.Config, h Handlers, m *metrics.Collector, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	r := gin.New()
	// Note ids and patient names may carry an escaped "/" or "#".
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.CORS(cfg.CORS),
	)

	r.GET("/healthz", h.Health.Check)
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(gatherer)))

	api := r.Group("/api/v1", middleware.RateLimit(cfg.RateLimit))
	h.Notes.Register(api)
	h.Patients.Register(api)
	h.Consultations.Register(api)

	return r
}
