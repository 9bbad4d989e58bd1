// Package server provides the REST API for policy evaluation and
// policy administration.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/engine"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/metrics"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/policy"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// Server is the REST API server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
	engine     *engine.Engine
	store      policy.Store
	metrics    metrics.Metrics
	config     Config
}

// Config configures the REST API server
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// DefaultConfig returns default API server configuration
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodySize:  1 * 1024 * 1024, // 1MB
	}
}

// New creates a new REST API server
func New(cfg Config, eng *engine.Engine, store policy.Store, m metrics.Metrics, logger *zap.Logger) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if store == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		engine:  eng,
		store:   store,
		metrics: m,
		config:  cfg,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.maxBodySizeMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Evaluation
	api.HandleFunc("/evaluate", s.evaluate).Methods("POST")

	// Policy CRUD
	api.HandleFunc("/policies", s.listPolicies).Methods("GET")
	api.HandleFunc("/policies", s.createPolicy).Methods("POST")
	api.HandleFunc("/policies/{key}", s.getPolicy).Methods("GET")
	api.HandleFunc("/policies/{key}", s.deletePolicy).Methods("DELETE")

	// Cache administration
	api.HandleFunc("/cache/evict", s.evictCache).Methods("POST")
	api.HandleFunc("/cache", s.evictAllCache).Methods("DELETE")
	api.HandleFunc("/cache/stats", s.cacheStats).Methods("GET")

	// Health and metrics
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")
	s.router.HandleFunc("/readyz", s.readyz).Methods("GET")
	s.router.Handle("/metrics", s.metrics.HTTPHandler()).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting REST API server", zap.Int("port", s.config.Port))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying router for testing
func (s *Server) Router() *mux.Router {
	return s.router
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := apiResponse{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// evaluate runs a policy evaluation request
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid JSON payload", err.Error())
		return
	}

	result, _ := s.engine.Evaluate(r.Context(), &req)
	s.respondJSON(w, http.StatusOK, result)
}

// listPolicies returns all policies
func (s *Server) listPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := s.store.GetAll(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR",
			"failed to list policies", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"policies": policies,
		"count":    len(policies),
	})
}

// getPolicy returns a specific policy
func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	p, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			s.respondError(w, http.StatusNotFound, "POLICY_NOT_FOUND",
				fmt.Sprintf("policy '%s' not found", key), "")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR",
			"failed to get policy", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"policy": p,
	})
}

// createPolicy creates or replaces a policy
func (s *Server) createPolicy(w http.ResponseWriter, r *http.Request) {
	var p types.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid JSON payload", err.Error())
		return
	}
	if p.PolicyKey == "" {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"policyKey is required", "")
		return
	}

	if err := s.store.Add(r.Context(), &p); err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR",
			"failed to store policy", err.Error())
		return
	}

	// Stored policies changed, cached decision data is stale
	s.engine.EvictAllPolicyCache(r.Context())

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"policyKey": p.PolicyKey,
	})
}

// deletePolicy removes a policy
func (s *Server) deletePolicy(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if err := s.store.Remove(r.Context(), key); err != nil {
		if errors.Is(err, policy.ErrPolicyNotFound) {
			s.respondError(w, http.StatusNotFound, "POLICY_NOT_FOUND",
				fmt.Sprintf("policy '%s' not found", key), "")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR",
			"failed to delete policy", err.Error())
		return
	}

	s.engine.EvictAllPolicyCache(r.Context())

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"policyKey": key,
	})
}

type evictRequest struct {
	ResourceType string `json:"resourceType"`
	Action       string `json:"action"`
}

// evictCache evicts cached results for one resourceType/action pair
func (s *Server) evictCache(w http.ResponseWriter, r *http.Request) {
	var req evictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid JSON payload", err.Error())
		return
	}
	if req.ResourceType == "" || req.Action == "" {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"resourceType and action are required", "")
		return
	}

	evicted := s.engine.EvictPolicyCache(r.Context(), req.ResourceType, req.Action)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"evicted": evicted,
	})
}

// evictAllCache clears every cached decision
func (s *Server) evictAllCache(w http.ResponseWriter, r *http.Request) {
	s.engine.EvictAllPolicyCache(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"evicted": "all",
	})
}

// cacheStats reports result-cache statistics
func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.CacheStats())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz verifies the policy store is reachable
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"policy store is not reachable", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"policies": count,
	})
}
