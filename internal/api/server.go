// Package api exposes recon assessments over HTTP. It serves a JSON
// assessment endpoint, a liveness check and the Prometheus registry the
// engine reports into.
//
//go:generate swag init -d ../../ -g cmd/recon/main.go -o ../../docs/swagger --parseInternal
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/anstrom/recon/docs/swagger" // registers the API description
	"github.com/anstrom/recon/internal/config"
	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/metrics"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/scanning"
)

const (
	serverShutdownTimeout = 30 * time.Second
	apiPrefix             = "/api/v1"

	// Non-standard status used when the client went away mid assessment.
	statusClientClosedRequest = 499
)

// Assessor is the engine surface the server drives.
type Assessor interface {
	Assess(ctx context.Context, req scanning.Request) (*model.MergedResult, error)
	AssessAvailability(ctx context.Context, host string, deadline time.Duration) (model.AvailabilityRecord, error)
}

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	assessor   Assessor
	metrics    *metrics.PrometheusMetrics
	logger     *logging.Logger
	config     config.APIConfig
	startTime  time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new API server instance. A nil registry gets a fresh one.
func New(cfg config.APIConfig, assessor Assessor, pm *metrics.PrometheusMetrics, logger *logging.Logger) (*Server, error) {
	if assessor == nil {
		return nil, recerrors.NewScanError(recerrors.CodeConfiguration, "api server needs an assessor")
	}
	if pm == nil {
		pm = metrics.NewPrometheusMetrics()
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = config.Default().API.MaxRequestSize
	}

	s := &Server{
		router:    mux.NewRouter(),
		assessor:  assessor,
		metrics:   pm,
		logger:    logging.OrDefault(logger).WithComponent("api"),
		config:    cfg,
		startTime: time.Now(),
	}

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.ListenAddr, strconv.Itoa(cfg.Port)),
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return s, nil
}

// Start listens and serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting API server",
		"address", ln.Addr().String(),
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped")
	return nil
}

// Addr returns the bound address once Start has begun listening, or the
// configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers every route on the root router, which answers a
// method mismatch with 405.
func (s *Server) setupRoutes() {
	s.router.HandleFunc(apiPrefix+"/liveness", s.livenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/assess", s.assessHandler).Methods(http.MethodPost)
	s.router.HandleFunc(apiPrefix+"/availability", s.availabilityHandler).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetRegistry(), promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	s.router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
	))
	s.router.HandleFunc("/docs", s.redirectToSwagger).Methods(http.MethodGet)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)
}

// redirectToSwagger redirects to the Swagger UI.
func (s *Server) redirectToSwagger(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed,
		recerrors.NewScanError(recerrors.CodeValidation, fmt.Sprintf("method %s not allowed", r.Method)))
}

func (s *Server) setupMiddleware() {
	s.router.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	))
	s.router.Use(s.loggingMiddleware)

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(handlers.CORS(
			handlers.AllowedOrigins(s.config.AllowedOrigins),
			handlers.AllowedHeaders([]string{"Content-Type"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		))
	}

	s.router.Use(contentTypeMiddleware)
}

// AssessRequest is the JSON body of POST /api/v1/assess.
type AssessRequest struct {
	Target    string `json:"target"`
	Ports     string `json:"ports,omitempty"`
	Technique string `json:"technique,omitempty"`
	Deadline  string `json:"deadline,omitempty"`
}

// AvailabilityRequest is the JSON body of POST /api/v1/availability.
type AvailabilityRequest struct {
	Target   string `json:"target"`
	Deadline string `json:"deadline,omitempty"`
}

// ErrorResponse represents a standard API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// assessHandler godoc
// @Summary Assess a target
// @Description Enumerates the requested ports of one target, fuses host availability evidence and returns the merged result
// @Tags Assessment
// @ID assessTarget
// @Accept json
// @Produce json
// @Param request body AssessRequest true "Assessment request"
// @Success 200 {object} model.MergedResult
// @Failure 400 {object} ErrorResponse
// @Failure 499 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assess [post]
func (s *Server) assessHandler(w http.ResponseWriter, r *http.Request) {
	var body AssessRequest
	if err := s.parseJSON(w, r, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	deadline, err := parseDeadline(body.Deadline)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.assessor.Assess(r.Context(), scanning.Request{
		Target:    body.Target,
		Ports:     body.Ports,
		Technique: model.Technique(body.Technique),
		Deadline:  deadline,
	})
	if err != nil {
		s.writeAssessError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

// availabilityHandler godoc
// @Summary Check host availability
// @Description Runs the reachability probes, the firewall classifier and the constrained port probe against one host
// @Tags Assessment
// @ID checkAvailability
// @Accept json
// @Produce json
// @Param request body AvailabilityRequest true "Availability request"
// @Success 200 {object} model.AvailabilityRecord
// @Failure 400 {object} ErrorResponse
// @Failure 499 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Router /availability [post]
func (s *Server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	var body AvailabilityRequest
	if err := s.parseJSON(w, r, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	deadline, err := parseDeadline(body.Deadline)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	record, err := s.assessor.AssessAvailability(r.Context(), body.Target, deadline)
	if err != nil {
		s.writeAssessError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, record)
}

// livenessHandler godoc
// @Summary Liveness check
// @Description Returns simple liveness status without dependency checks
// @Tags System
// @ID getLiveness
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /liveness [get]
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

func parseDeadline(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, recerrors.NewScanError(recerrors.CodeValidation, "invalid deadline").
			WithContext("deadline", raw)
	}
	return d, nil
}

// parseJSON decodes the request body into dest, rejecting unknown fields
// and bodies above the configured size.
func (s *Server) parseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return recerrors.NewScanError(recerrors.CodeValidation, "request body is empty")
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return recerrors.NewScanError(recerrors.CodeValidation,
				fmt.Sprintf("request body too large (max %d bytes)", s.config.MaxRequestSize))
		}
		return recerrors.WrapScanError(recerrors.CodeValidation, "invalid JSON", err)
	}
	return nil
}

func (s *Server) writeAssessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case recerrors.IsInputError(err):
		s.writeError(w, r, http.StatusBadRequest, err)
	case recerrors.IsCode(err, recerrors.CodeCanceled):
		s.writeError(w, r, statusClientClosedRequest, err)
	case recerrors.IsCode(err, recerrors.CodeConfiguration):
		s.writeError(w, r, http.StatusNotImplemented, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"request_id", getRequestID(r),
			"error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	s.logger.Warn("API error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"error", err,
		"request_id", getRequestID(r))

	response := ErrorResponse{
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(r),
	}
	if code := recerrors.GetCode(err); code != recerrors.CodeUnknown {
		response.Code = string(code)
	}

	s.writeJSON(w, r, statusCode, response)
}
