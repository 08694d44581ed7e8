package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EmissionsReader is the read side of the emissions store.
type EmissionsReader interface {
	History() []store.LoadRecord
	GetVariable(q store.VariableQuery) (store.Series, error)
	FacilityLocations() (map[int]domain.LatLon, bool)
	FacilityNames() (map[int]string, bool)
}

// Server exposes health, readiness, metrics and read-only emissions endpoints.
type Server struct {
	httpServer   *http.Server
	data         EmissionsReader
	stackHeights map[int]float64
	logger       *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /loads,
// /facilities and /series routes. stackHeights (meters per ORISPL code) may be
// nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, data EmissionsReader, stackHeights map[int]float64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:         data,
		stackHeights: stackHeights,
		logger:       logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /loads", s.handleLoads)
	mux.HandleFunc("GET /facilities", s.handleFacilities)
	mux.HandleFunc("GET /series", s.handleSeries)

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

func (s *Server) handleLoads(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.data.History())
}

type facility struct {
	ORISPL      int      `json:"orispl_code"`
	Name        string   `json:"facility_name,omitempty"`
	Lat         *float64 `json:"latitude,omitempty"`
	Lon         *float64 `json:"longitude,omitempty"`
	StackHeight *float64 `json:"max_stack_height_m,omitempty"`
}

func (s *Server) handleFacilities(w http.ResponseWriter, _ *http.Request) {
	locs, ok := s.data.FacilityLocations()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no location data loaded"))
		return
	}
	names, _ := s.data.FacilityNames()

	byCode := make(map[int]*facility, len(locs))
	get := func(code int) *facility {
		f, ok := byCode[code]
		if !ok {
			f = &facility{ORISPL: code}
			byCode[code] = f
		}
		return f
	}
	for code, ll := range locs {
		f := get(code)
		f.Lat, f.Lon = &ll.Lat, &ll.Lon
	}
	for code, name := range names {
		get(code).Name = name
	}

	out := make([]facility, 0, len(byCode))
	for code, f := range byCode {
		if h, ok := s.stackHeights[code]; ok {
			f.StackHeight = &h
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ORISPL < out[j].ORISPL })
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

type point struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

type seriesResponse struct {
	Variable string  `json:"variable"`
	Facility int     `json:"orispl_code"`
	UnitID   string  `json:"unitid,omitempty"`
	Points   []point `json:"points"`
}

// handleSeries serves one facility's series. Query parameters: variable
// (comma separated match terms), facility, optional unit, optional start
// and end (RFC 3339, both or neither).
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q, err := parseVariableQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	series, err := s.data.GetVariable(q)
	switch {
	case errors.Is(err, domain.ErrVariableNotFound), errors.Is(err, domain.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Error("series query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := seriesResponse{
		Variable: series.Name,
		Facility: q.Facility,
		UnitID:   q.UnitID,
		Points:   make([]point, len(series.Index)),
	}
	for i, at := range series.Index {
		resp.Points[i].Time = at
		if v := series.Values[i]; !math.IsNaN(v) {
			resp.Points[i].Value = &v
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func parseVariableQuery(r *http.Request) (store.VariableQuery, error) {
	params := r.URL.Query()

	var q store.VariableQuery
	for _, term := range strings.Split(params.Get("variable"), ",") {
		if term = strings.TrimSpace(term); term != "" {
			q.Variable = append(q.Variable, term)
		}
	}
	if len(q.Variable) == 0 {
		return q, errors.New("variable is required")
	}

	facility, err := strconv.Atoi(params.Get("facility"))
	if err != nil {
		return q, fmt.Errorf("invalid facility %q", params.Get("facility"))
	}
	q.Facility = facility
	q.UnitID = params.Get("unit")

	start, end := params.Get("start"), params.Get("end")
	if start == "" && end == "" {
		return q, nil
	}
	if start == "" || end == "" {
		return q, errors.New("start and end must be given together")
	}
	rng := &store.TimeRange{}
	if rng.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return q, fmt.Errorf("invalid start: %w", err)
	}
	if rng.End, err = time.Parse(time.RFC3339, end); err != nil {
		return q, fmt.Errorf("invalid end: %w", err)
	}
	q.Range = rng
	return q, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
