package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/middleware"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/handlers"
)

// NewRouter constructs a ServeMux with the wizard API routes registered.
func NewRouter(h *handlers.Handler, cors middleware.CORSConfig, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/wizards", h.CreateWizard)
	mux.HandleFunc("GET /api/v1/wizards", h.ListDrafts)
	mux.HandleFunc("GET /api/v1/wizards/{id}", h.GetWizard)
	mux.HandleFunc("DELETE /api/v1/wizards/{id}", h.DeleteDraft)
	mux.HandleFunc("POST /api/v1/wizards/{id}/actions", h.ApplyActions)
	mux.HandleFunc("POST /api/v1/wizards/{id}/next", h.Next)
	mux.HandleFunc("POST /api/v1/wizards/{id}/back", h.Back)
	mux.HandleFunc("POST /api/v1/wizards/{id}/jump", h.Jump)
	mux.HandleFunc("POST /api/v1/wizards/{id}/submit", h.Submit)
	mux.HandleFunc("POST /api/v1/wizards/{id}/cancel", h.Cancel)

	mux.HandleFunc("GET /api/v1/fields", h.Fields)

	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(middleware.Logging(logger)(middleware.CORS(cors)(mux)))
}
