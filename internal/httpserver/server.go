package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/ims-analytics/internal/config"
	"github.com/retailops/ims-analytics/internal/database"
	"github.com/retailops/ims-analytics/internal/dataset"
	"github.com/retailops/ims-analytics/internal/engine"
	"github.com/retailops/ims-analytics/internal/metrics"
	"github.com/retailops/ims-analytics/internal/models"
	"github.com/retailops/ims-analytics/internal/report"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server exposes the analytics engine over HTTP. Every handler reads from
// the shared snapshot store, so all responses within one dataset version
// are mutually consistent.
type Server struct {
	store   *dataset.Store
	builder *report.Builder
	cache   report.Cache
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	var source dataset.Source
	if deps.Config.Data.Source == config.SourcePostgres && deps.DB != nil {
		source = dataset.NewPostgresSource(deps.DB.Pool)
	} else {
		source = dataset.NewCSVSource(deps.Config.Data.Dir)
	}

	var cache report.Cache
	if deps.Redis != nil {
		cache = report.NewRedisCache(deps.Redis.Client, deps.Config.Report.CacheTTL)
	} else {
		cache = report.NewMemoryCache(deps.Config.Report.CacheTTL)
	}

	store := dataset.NewStore(source, deps.Logger)
	if deps.Metrics != nil {
		store.SetMetrics(deps.Metrics)
	}

	s := &Server{
		store:   store,
		builder: report.NewBuilder(deps.Logger),
		cache:   cache,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Sales analytics
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/daily-sales", s.handleDailySales)
	mux.HandleFunc("/api/anomaly", s.handleAnomaly)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/correlation", s.handleCorrelation)

	// Breakdown views
	mux.HandleFunc("/api/attributes", s.handleAttributes)
	mux.HandleFunc("/api/clusters", s.handleClusters)

	// Decision support
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/insights", s.handleInsights)
	mux.HandleFunc("/api/pricing", s.handlePricing)

	// Customer and channel analytics (optional tables)
	mux.HandleFunc("/api/ltv", s.handleLTV)
	mux.HandleFunc("/api/attribution", s.handleAttribution)

	// Downloadable management report
	mux.HandleFunc("/reports/management", s.handleManagementReport)

	return mux
}

// snapshot loads the current dataset snapshot, writing a 503 on failure.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*models.Snapshot, bool) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("snapshot load failed", zap.Error(err))

		var schemaErr *engine.SchemaError
		if errors.As(err, &schemaErr) {
			s.errorResponse(w, "dataset schema invalid: "+schemaErr.Error(), http.StatusServiceUnavailable)
			return nil, false
		}
		s.errorResponse(w, "dataset unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.UpdateSnapshotAge(snap.LoadedAt)
	}
	return snap, true
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"})
}

// ---- Sales Analytics ----

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("summary", func() interface{} {
		return engine.BuildKPIs(snap)
	}))
}

func (s *Server) handleDailySales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("daily_sales", func() interface{} {
		return engine.AggregateDaily(snap.Orders)
	}))
}

func (s *Server) handleAnomaly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	result, err := engine.DetectAnomaly(engine.AggregateDaily(snap.Orders))
	if err != nil {
		s.analysisError(w, "anomaly", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordAnomaly(string(result.Status))
	}
	s.jsonResponse(w, result)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	horizon := engine.DefaultHorizon
	if h := r.URL.Query().Get("horizon"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed <= 0 || parsed > 365 {
			s.errorResponse(w, "horizon must be an integer between 1 and 365", http.StatusBadRequest)
			return
		}
		horizon = parsed
	}

	points, err := engine.Forecast(engine.AggregateDaily(snap.Orders), horizon)
	if err != nil {
		s.analysisError(w, "forecast", err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"horizon":  horizon,
		"forecast": points,
	})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("correlation", func() interface{} {
		return engine.CorrelateTraffic(engine.AggregateDaily(snap.Orders), snap.Events)
	}))
}

// ---- Breakdown Views ----

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("attributes", func() interface{} {
		return engine.BreakdownAttributes(snap.Orders)
	}))
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("clusters", func() interface{} {
		return map[string]interface{}{
			"clusters":       engine.ClusterStats(snap.Clustered),
			"channel_shares": snap.ClusterChannel,
		}
	}))
}

// ---- Decision Support ----

// simulateRequest is the what-if payload for the growth simulator.
type simulateRequest struct {
	PVPctDelta float64 `json:"pv_pct_delta"`
	CTRPPDelta float64 `json:"ctr_pp_delta"`
	CVRPPDelta float64 `json:"cvr_pp_delta"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	inputs := engine.DeriveGrowthInputs(snap)
	deltas := engine.GrowthDeltas{
		PVPctDelta: req.PVPctDelta,
		CTRPPDelta: req.CTRPPDelta,
		CVRPPDelta: req.CVRPPDelta,
	}
	if inputs.CurrentCTRPct+deltas.CTRPPDelta < 0 {
		s.errorResponse(w, "ctr_pp_delta drives the effective CTR below zero", http.StatusBadRequest)
		return
	}
	if inputs.CurrentCVRPct+deltas.CVRPPDelta < 0 {
		s.errorResponse(w, "cvr_pp_delta drives the effective CVR below zero", http.StatusBadRequest)
		return
	}
	if inputs.CurrentPV*(1+deltas.PVPctDelta/100) < 0 {
		s.errorResponse(w, "pv_pct_delta drives page views below zero", http.StatusBadRequest)
		return
	}

	s.jsonResponse(w, map[string]interface{}{
		"inputs": inputs,
		"deltas": deltas,
		"result": engine.Simulate(inputs, deltas),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("insights", func() interface{} {
		channels := engine.CountBy(snap.Orders, func(o models.OrderLine) string { return o.Channel })
		findings := engine.GenerateInsights(snap.Efficiency, channels)
		return map[string]interface{}{"findings": findings}
	}))
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, s.timed("pricing", func() interface{} {
		return engine.SuggestPrices(snap.Efficiency, engine.ProductQuantities(snap.Clustered))
	}))
}

// ---- Customer and Channel Analytics ----

func (s *Server) handleLTV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	rep, err := engine.AnalyzeLTV(snap.LTV, snap.Intervals)
	if err != nil {
		s.analysisError(w, "ltv", err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"available": true,
		"report":    rep,
	})
}

func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	rep, err := engine.AnalyzeAttribution(snap.Attribution)
	if err != nil {
		s.analysisError(w, "attribution", err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"available": true,
		"report":    rep,
	})
}

// ---- Management Report ----

func (s *Server) handleManagementReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	data, hit, err := s.cache.Get(r.Context(), snap.Version)
	if err != nil {
		s.logger.Warn("report cache lookup failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordReportCache(hit)
	}
	if !hit {
		start := time.Now()
		data, err = s.builder.Build(snap)
		if err != nil {
			s.logger.Error("report build failed", zap.Error(err))
			s.errorResponse(w, "failed to build report", http.StatusInternalServerError)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordReportBuild(time.Since(start))
		}
		if err := s.cache.Set(r.Context(), snap.Version, data); err != nil {
			s.logger.Warn("report cache store failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// ---- Helper Methods ----

// timed runs one analysis component and records its latency.
func (s *Server) timed(component string, fn func() interface{}) interface{} {
	start := time.Now()
	out := fn()
	if s.metrics != nil {
		s.metrics.RecordAnalysis(component, "ok", time.Since(start))
	}
	return out
}

// analysisError maps engine error types to HTTP semantics: a missing
// optional table is a well-formed "available: false" body, insufficient
// data is a 422, anything else a 500.
func (s *Server) analysisError(w http.ResponseWriter, component string, err error) {
	if s.metrics != nil {
		s.metrics.RecordAnalysis(component, "error", 0)
	}

	var unavailable *engine.DataUnavailableError
	if errors.As(err, &unavailable) {
		s.jsonResponse(w, map[string]interface{}{
			"available": false,
			"reason":    unavailable.Error(),
		})
		return
	}

	var insufficient *engine.InsufficientDataError
	if errors.As(err, &insufficient) {
		s.errorResponse(w, insufficient.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.logger.Error("analysis failed", zap.String("component", component), zap.Error(err))
	s.errorResponse(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
