package admin

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/httputil"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/plugins"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

// Source is the registry view served by the admin server
type Source interface {
	EnsureBuilt() error
	Modules() ([]*plugins.ModuleInfo, error)
	ExtensionPoints() ([]plugins.ExtensionPointInfo, error)
	Extensions() ([]plugins.ExtensionInfo, error)
	ListExtensions(point symref.Ref, filter plugins.Filter) ([]plugins.ExtensionInfo, error)
}

// Server serves registry introspection endpoints
type Server struct {
	source   Source
	router   *mux.Router
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
}

// NewServer creates an admin server. A nil gatherer disables /metrics.
func NewServer(source Source, gatherer prometheus.Gatherer, metrics *observability.Metrics, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		source:   source,
		router:   mux.NewRouter(),
		gatherer: gatherer,
		log:      log,
	}
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
		observability.HTTPMetricsMiddleware(metrics),
	)
	s.RegisterRoutes(s.router)
	return s
}

// RegisterRoutes registers admin routes on r
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/modules", s.listModules).Methods("GET")
	r.HandleFunc("/api/v1/modules/{name}", s.getModule).Methods("GET")
	r.HandleFunc("/api/v1/points", s.listPoints).Methods("GET")
	r.HandleFunc("/api/v1/extensions", s.listExtensions).Methods("GET")
	r.HandleFunc("/healthz", s.health).Methods("GET")

	if s.gatherer != nil {
		r.Handle("/metrics", observability.MetricsHandler(s.gatherer)).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// listModules handles GET /api/v1/modules
func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.source.Modules()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := make([]ModuleResponse, 0, len(modules))
	for _, m := range modules {
		resp = append(resp, ToModuleResponse(m, false))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// getModule handles GET /api/v1/modules/{name}
func (s *Server) getModule(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	modules, err := s.source.Modules()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	for _, m := range modules {
		if m.Ref.Name == name {
			s.writeJSON(w, http.StatusOK, ToModuleResponse(m, true))
			return
		}
	}
	httputil.WriteNotFound(w, "module not found: "+name)
}

// listPoints handles GET /api/v1/points
func (s *Server) listPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.source.ExtensionPoints()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := make([]PointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, ToPointResponse(p))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// listExtensions handles GET /api/v1/extensions
// Query params:
//   - point: only extensions of this extension point
//   - all: include disabled and unlicensed extensions
func (s *Server) listExtensions(w http.ResponseWriter, r *http.Request) {
	point := httputil.ParseQueryString(r, "point", "")
	all, err := httputil.ParseQueryBool(r, "all", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var exts []plugins.ExtensionInfo
	switch {
	case all:
		exts, err = s.source.Extensions()
		if err == nil && point != "" {
			exts = ofPoint(exts, point)
		}
	case point != "":
		exts, err = s.source.ListExtensions(symref.New(point), nil)
	default:
		exts, err = s.available()
	}
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := make([]ExtensionResponse, 0, len(exts))
	for _, e := range exts {
		resp = append(resp, ToExtensionResponse(e))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// available returns the extensions every point would offer, in global order
func (s *Server) available() ([]plugins.ExtensionInfo, error) {
	all, err := s.source.Extensions()
	if err != nil {
		return nil, err
	}

	offered := make(map[string]map[string]bool)
	var exts []plugins.ExtensionInfo
	for _, e := range all {
		classes, ok := offered[e.PointRef.Name]
		if !ok {
			listed, err := s.source.ListExtensions(e.PointRef, nil)
			if err != nil {
				return nil, err
			}
			classes = make(map[string]bool, len(listed))
			for _, l := range listed {
				classes[l.ClassName()] = true
			}
			offered[e.PointRef.Name] = classes
		}
		if classes[e.ClassName()] {
			exts = append(exts, e)
		}
	}
	return exts, nil
}

// health handles GET /healthz
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.source.EnsureBuilt(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func ofPoint(exts []plugins.ExtensionInfo, point string) []plugins.ExtensionInfo {
	var out []plugins.ExtensionInfo
	for _, e := range exts {
		if e.PointRef.Name == point {
			out = append(out, e)
		}
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := httputil.WriteJSON(w, status, v); err != nil {
		s.log.Warnf("Failed to encode admin response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Warnf("Admin request failed: %v", err)
	httputil.WriteError(w, status, err)
}
