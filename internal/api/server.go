// Package api serves the building opportunity operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/pipeline"
	"github.com/fmillerrzero/odcv-app/internal/store"
	"github.com/fmillerrzero/odcv-app/pkg/geoclient"
)

// SearchResults caps the number of scored buildings /api/search returns.
const SearchResults = 50

// Service is the subset of *pipeline.Pipeline the handlers use.
type Service interface {
	Resolve(ctx context.Context, address, borough string) (*geoclient.Location, bool, error)
	Lookup(ctx context.Context, key string) (*model.BuildingProfile, error)
	ScoreKey(ctx context.Context, key string) (*model.OpportunityScore, error)
	ScoreAddress(ctx context.Context, address, borough string) (*model.OpportunityScore, error)
	ScoreMany(ctx context.Context, inputs []string) ([]model.OpportunityScore, error)
	SearchRanked(ctx context.Context, f store.Filter, n int) ([]model.OpportunityScore, error)
	TopOpportunities(ctx context.Context, limit int) ([]model.OpportunityScore, error)
	Stats(ctx context.Context) (*store.Stats, error)
	LastLoad(ctx context.Context) (*store.LoadRun, error)
}

var _ Service = (*pipeline.Pipeline)(nil)

// Options configures the router.
type Options struct {
	Version        string
	AllowedOrigins []string
}

// Server holds the handlers.
type Server struct {
	svc     Service
	version string
	log     *zap.Logger
}

// NewRouter builds the chi router with CORS, recovery and request logging.
func NewRouter(svc Service, opts Options) http.Handler {
	s := &Server{
		svc:     svc,
		version: opts.Version,
		log:     zap.L().With(zap.String("component", "api")),
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/geocode", s.geocode)
		r.Get("/building/{bbl}", s.building)
		r.Post("/score", s.score)
		r.Post("/score/bulk", s.scoreBulk)
		r.Get("/search", s.search)
		r.Get("/opportunities", s.opportunities)
		r.Get("/stats", s.stats)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	loaded := false
	if run, err := s.svc.LastLoad(r.Context()); err == nil && run != nil {
		loaded = run.ProfileCount > 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"version":     s.version,
		"data_loaded": loaded,
	})
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	loc, ok, err := s.svc.Resolve(r.Context(), address, r.URL.Query().Get("borough"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) building(w http.ResponseWriter, r *http.Request) {
	prof, err := s.svc.Lookup(r.Context(), chi.URLParam(r, "bbl"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if prof == nil {
		writeError(w, http.StatusNotFound, "Building not found")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

type scoreRequest struct {
	Address string `json:"address"`
	Borough string `json:"borough"`
	BBL     string `json:"bbl"`
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		sc  *model.OpportunityScore
		err error
	)
	switch {
	case strings.TrimSpace(req.BBL) != "":
		sc, err = s.svc.ScoreKey(r.Context(), req.BBL)
	case strings.TrimSpace(req.Address) != "":
		sc, err = s.svc.ScoreAddress(r.Context(), req.Address, req.Borough)
	default:
		writeError(w, http.StatusBadRequest, "address or bbl is required")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) scoreBulk(w http.ResponseWriter, r *http.Request) {
	var inputs []string
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, http.StatusBadRequest, "expected a JSON array of addresses")
		return
	}
	scores, err := s.svc.ScoreMany(r.Context(), inputs)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(scores))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scores, err := s.svc.SearchRanked(r.Context(), f, SearchResults)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(scores))
}

func (s *Server) opportunities(w http.ResponseWriter, r *http.Request) {
	limit := pipeline.DefaultOpportunities
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > pipeline.MaxOpportunities {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}
	scores, err := s.svc.TopOpportunities(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(scores))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// parseFilter reads min_size, max_occupancy, has_vav and energy_grade.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	var f store.Filter

	parse := func(name string) (*float64, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New(name + " must be a number")
		}
		return &v, nil
	}

	var err error
	if f.MinArea, err = parse("min_size"); err != nil {
		return f, err
	}
	if f.MaxOccupancy, err = parse("max_occupancy"); err != nil {
		return f, err
	}
	if raw := q.Get("has_vav"); raw != "" {
		if f.RequireVAV, err = strconv.ParseBool(raw); err != nil {
			return f, errors.New("has_vav must be true or false")
		}
	}
	f.Grade = q.Get("energy_grade")
	return f, nil
}

// fail maps pipeline errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bbl.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "invalid BBL")
	case errors.Is(err, pipeline.ErrAddressNotFound):
		writeError(w, http.StatusNotFound, "Address not found")
	case errors.Is(err, pipeline.ErrBuildingNotFound):
		writeError(w, http.StatusNotFound, "Building data not found")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON encodes before writing the status so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("api: encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"detail":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func nonNil(scores []model.OpportunityScore) []model.OpportunityScore {
	if scores == nil {
		return []model.OpportunityScore{}
	}
	return scores
}
