package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-production-optimizer/internal/recommend"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and on-demand recommendation
// HTTP endpoints.
type Server struct {
	httpServer  *http.Server
	recommender *recommend.Recommender
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/recommendations routes.
func NewServer(addr string, ready ReadinessChecker, recommender *recommend.Recommender, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		recommender: recommender,
		validate:    validator.New(),
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/recommendations", s.handleRecommendation)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// recommendationRequest is the ad-hoc evaluation DTO. Pointer fields
// distinguish "not provided" from zero; absent fields fall back to neutral
// operating conditions.
type recommendationRequest struct {
	SiteID                string   `json:"site_id" validate:"required"`
	RainfallLast24h       float64  `json:"rainfall_last_24h" validate:"gte=0"`
	RainProbabilityNext6h float64  `json:"rain_probability_next_6h" validate:"gte=0,lte=100"`
	TemperatureAmbient    *float64 `json:"temperature_ambient" validate:"omitempty,gte=-60,lte=150"`
	HumidityRelative      *float64 `json:"humidity_relative" validate:"omitempty,gte=0,lte=100"`
	CurrentEfficiency     *float64 `json:"current_efficiency" validate:"omitempty,gte=0,lte=2"`
	SensorDataQuality     *float64 `json:"sensor_data_quality" validate:"omitempty,gte=0,lte=1"`
	MoistureLevel         *float64 `json:"moisture_level" validate:"omitempty,gte=0,lte=100"`
	LineSpeed             float64  `json:"line_speed" validate:"gte=0"`
	ProductType           string   `json:"product_type"`
	MachineClass          string   `json:"machine_class"`
}

// handleRecommendation evaluates one request synchronously. Valid requests
// always get a recommendation back; the recommender's internal fallback
// covers evaluation failures.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rec := s.recommender.Evaluate(req.toInputs())
	writeJSON(w, http.StatusOK, rec)
}

func (req recommendationRequest) toInputs() recommend.Inputs {
	in := recommend.NeutralInputs(req.SiteID)
	in.RainfallLast24h = req.RainfallLast24h
	in.RainProbabilityNext6h = req.RainProbabilityNext6h
	in.LineSpeed = req.LineSpeed
	in.ProductType = req.ProductType
	in.MachineClass = req.MachineClass
	in.MoistureLevel = req.MoistureLevel

	if req.TemperatureAmbient != nil {
		in.TemperatureAmbient = *req.TemperatureAmbient
	}
	if req.HumidityRelative != nil {
		in.HumidityRelative = *req.HumidityRelative
	}
	if req.CurrentEfficiency != nil {
		in.CurrentEfficiency = *req.CurrentEfficiency
	}
	if req.SensorDataQuality != nil {
		in.SensorDataQuality = *req.SensorDataQuality
	}
	return in
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
