// Package server exposes the read-side HTTP surface: proximity queries,
// service-area lookups, and ingestion statistics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/importiq/importiq-cli/internal/match"
	"github.com/importiq/importiq-cli/internal/model"
	"github.com/importiq/importiq-cli/internal/monitoring"
	"github.com/importiq/importiq-cli/internal/store"
)

// Server wires the matching engine, the store, and the stats collector into
// an http.Handler.
type Server struct {
	engine    *match.Engine
	store     store.Store
	collector *monitoring.Collector
	router    chi.Router
}

func New(engine *match.Engine, st store.Store, collector *monitoring.Collector) *Server {
	s := &Server{engine: engine, store: st, collector: collector}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers/near", s.handleProvidersNear)
		r.Get("/providers/{id}/service-area", s.handleServiceArea)
		r.Get("/ingestion/stats", s.handleIngestionStats)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks until the context is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zap.L().Info("http server listening", zap.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProvidersNear(w http.ResponseWriter, r *http.Request) {
	q, err := parseProximityQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	results, err := s.engine.FindProvidersNear(r.Context(), *q)
	if err != nil {
		zap.L().Error("proximity query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("query failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleServiceArea(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetProvider(r.Context(), id)
	if err != nil {
		zap.L().Error("provider lookup failed", zap.String("provider_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, errors.New("provider not found"))
		return
	}
	wkt, err := s.store.GetServiceArea(r.Context(), id)
	if err != nil {
		zap.L().Error("service area lookup failed", zap.String("provider_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}
	resp := map[string]any{"provider_id": id, "determined": wkt != ""}
	if wkt != "" {
		resp["service_area_wkt"] = wkt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngestionStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Snapshot(r.Context())
	if err != nil {
		zap.L().Error("stats snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("stats unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func parseProximityQuery(r *http.Request) (*model.ProximityQuery, error) {
	get := r.URL.Query().Get

	lat, err := strconv.ParseFloat(get("lat"), 64)
	if err != nil {
		return nil, errors.New("lat is required and must be a number")
	}
	lng, err := strconv.ParseFloat(get("lng"), 64)
	if err != nil {
		return nil, errors.New("lng is required and must be a number")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, errors.New("coordinate out of range")
	}

	q := &model.ProximityQuery{Latitude: lat, Longitude: lng, Urgency: model.UrgencyStandard}
	if v := get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return nil, errors.New("radius_km must be a positive number")
		}
		q.MaxRadiusKm = radius
	}
	if v := get("urgency"); v != "" {
		u, err := model.ParseUrgency(v)
		if err != nil {
			return nil, err
		}
		q.Urgency = u
	}
	if v := get("services"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.RequiredServices = append(q.RequiredServices, tag)
			}
		}
	}
	q.VehicleType = get("vehicle_type")
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
