package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
)

type HealthChecker interface {
	Health(ctx context.Context) (*visit.HealthStatus, error)
}

type HealthHandler struct {
	store   HealthChecker
	version string
}

func NewHealthHandler(store HealthChecker, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

// Check reports degraded, with a 503, when the visit store does not answer.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Version: h.version, Store: "ok"}
	st, err := h.store.Health(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if st.Status != "" {
		resp.Store = st.Status
	}
	c.JSON(http.StatusOK, resp)
}
