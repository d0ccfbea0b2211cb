// Package gateway exposes the marketing service over HTTP.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/crew"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/store"
	"github.com/dataeval/dingomark/pkg/tools"
)

// apiVersion is set by the caller (main.go) via SetVersion.
var apiVersion = "dev"

// SetVersion sets the version string returned by the health endpoint.
func SetVersion(v string) {
	apiVersion = v
}

// Envelope is the JSON wrapper on every API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// APIServer holds the dependencies for API handlers.
type APIServer struct {
	svc    *marketing.Service
	store  *store.Store
	apiKey string
}

// NewAPIServer creates a new API server.
func NewAPIServer(svc *marketing.Service, st *store.Store, apiKey string) *APIServer {
	return &APIServer{
		svc:    svc,
		store:  st,
		apiKey: apiKey,
	}
}

// Handler returns an http.Handler with all API routes and auth middleware.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/analyze/users", s.handleAnalyzeUsers)
	mux.HandleFunc("POST /api/v1/campaigns/content", s.handleContentCampaign)
	mux.HandleFunc("POST /api/v1/engagement/community", s.handleEngagement)
	mux.HandleFunc("POST /api/v1/campaigns/comprehensive", s.handleComprehensive)
	mux.HandleFunc("POST /api/v1/content/generate", s.handleGenerateContent)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("POST /api/v1/schedules", s.handleCreateSchedule)
	mux.HandleFunc("GET /api/v1/schedules", s.handleListSchedules)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", s.handleDeleteSchedule)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	publicPaths := []string{"/api/v1/health"}
	return AuthMiddleware(s.apiKey, publicPaths, mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{
		Success:   false,
		Error:     message,
		Message:   "request failed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeFailure maps a service error to its HTTP status. Error strings pass
// through as-is; they never carry credentials or stack traces.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var (
		valErr     *crew.ValidationError
		timeoutErr *crew.TimeoutError
		toolErr    *tools.ToolExecutionError
		provErr    *providers.ProviderError
		cfgErr     *config.ConfigurationError
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &toolErr), errors.As(err, &provErr):
		return http.StatusBadGateway
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
