package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/scheduler"
	"github.com/dataeval/dingomark/pkg/store"
)

// timedRequest lets the client shorten (never extend) the configured
// invocation bound.
type timedRequest struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func (t timedRequest) apply(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.TimeoutSeconds > 0 {
		return context.WithTimeout(ctx, time.Duration(t.TimeoutSeconds)*time.Second)
	}
	return ctx, func() {}
}

func (s *APIServer) handleAnalyzeUsers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		marketing.UserAnalysisRequest
		timedRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := req.apply(r.Context())
	defer cancel()

	result, err := s.svc.AnalyzeTargetUsers(ctx, &req.UserAnalysisRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "user analysis completed", result)
}

func (s *APIServer) handleContentCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		marketing.ContentCampaignRequest
		timedRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := req.apply(r.Context())
	defer cancel()

	result, err := s.svc.CreateContentCampaign(ctx, &req.ContentCampaignRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "content campaign completed", result)
}

func (s *APIServer) handleEngagement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		marketing.EngagementRequest
		timedRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := req.apply(r.Context())
	defer cancel()

	result, err := s.svc.ExecuteCommunityEngagement(ctx, &req.EngagementRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "community engagement completed", result)
}

func (s *APIServer) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		marketing.ComprehensiveRequest
		timedRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := req.apply(r.Context())
	defer cancel()

	result, err := s.svc.RunComprehensiveCampaign(ctx, &req.ComprehensiveRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "comprehensive campaign completed", result)
}

func (s *APIServer) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		marketing.GenerateContentRequest
		timedRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := req.apply(r.Context())
	defer cancel()

	result, err := s.svc.GenerateContent(ctx, &req.GenerateContentRequest)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "content generated", result)
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "team status", s.svc.Status())
}

func (s *APIServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.svc.Runs(limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "run history", runs)
}

// CreateScheduleRequest registers a recurring operation.
type CreateScheduleRequest struct {
	Name      string          `json:"name"`
	Operation string          `json:"operation"`
	CronExpr  string          `json:"cron_expr"`
	Request   json.RawMessage `json:"request,omitempty"`
}

func (s *APIServer) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := marketing.ParseOperation(req.Operation); err != nil {
		writeFailure(w, err)
		return
	}
	if err := scheduler.ValidateCron(req.CronExpr); err != nil {
		writeFailure(w, err)
		return
	}

	next, err := scheduler.NextRun(req.CronExpr)
	if err != nil {
		writeFailure(w, err)
		return
	}

	sched := &store.Schedule{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Operation:   req.Operation,
		CronExpr:    req.CronExpr,
		RequestJSON: string(req.Request),
		Status:      store.ScheduleActive,
		NextRunAt:   &next,
	}
	if err := s.store.SaveSchedule(sched); err != nil {
		writeFailure(w, err)
		return
	}

	logger.InfoCF("api", "schedule created", map[string]any{
		"id":        sched.ID,
		"operation": sched.Operation,
		"cron_expr": sched.CronExpr,
	})
	writeData(w, http.StatusCreated, "schedule created", sched)
}

func (s *APIServer) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "schedules", schedules)
}

func (s *APIServer) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteSchedule(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, "schedule deleted", map[string]string{"id": id})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "ok", map[string]string{
		"status":  "ok",
		"version": apiVersion,
	})
}
