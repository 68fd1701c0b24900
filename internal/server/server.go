// Package server exposes the compile pipeline over HTTP: POST a Verilog
// source, receive the binary container. Intended for teams sharing one
// synthesis cache rather than for the public internet.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
	"github.com/liquidhelium/verilog-target-turing-complete/pkg/pipeline"
)

// maxSourceBytes bounds request bodies.
const maxSourceBytes = 4 << 20

// Server wraps the pipeline runner behind an HTTP API.
type Server struct {
	Runner *pipeline.Runner
	Logger *log.Logger

	// ClockSpeed and WireColor seed every compile's save header.
	ClockSpeed uint32
	WireColor  uint8
}

// Routes builds the chi router:
//
//	POST /compile?top=<name>[&compact=1][&no-flatten=1]  body: Verilog source
//	GET  /healthz
//
// A successful compile returns the top module's container bytes. The
// X-Dependency-Count header reports how many submodules were compiled;
// clients needing them pass ?manifest=1 to receive a JSON manifest with
// every module's container base64-encoded instead.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/compile", s.handleCompile)
	return r
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()[:8]
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.Logger.Info("request",
			"id", id,
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// compileManifest is the JSON response in manifest mode.
type compileManifest struct {
	Top          compileModule   `json:"top"`
	Dependencies []compileModule `json:"dependencies,omitempty"`
}

type compileModule struct {
	Name       string `json:"name"`
	CustomID   uint64 `json:"custom_id,omitempty"`
	Components int    `json:"components"`
	Wires      int    `json:"wires"`
	Data       []byte `json:"data"` // base64 via encoding/json
}

func (s *Server) handleCompile(w http.ResponseWriter, req *http.Request) {
	top := req.URL.Query().Get("top")
	if top == "" {
		httpError(w, http.StatusBadRequest, "query parameter top is required")
		return
	}

	source, err := io.ReadAll(io.LimitReader(req.Body, maxSourceBytes+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "read body: %v", err)
		return
	}
	if len(source) > maxSourceBytes {
		httpError(w, http.StatusRequestEntityTooLarge, "source exceeds %d bytes", maxSourceBytes)
		return
	}

	res, err := s.Runner.Execute(req.Context(), pipeline.Options{
		Top:        top,
		Source:     string(source),
		Compact:    req.URL.Query().Get("compact") == "1",
		NoFlatten:  req.URL.Query().Get("no-flatten") == "1",
		ClockSpeed: s.ClockSpeed,
		WireColor:  s.WireColor,
		Logger:     s.Logger,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch errors.GetCode(err) {
		case errors.ErrCodeInvalidCell, errors.ErrCodeInvalidWidth, errors.ErrCodeInvalidModule,
			errors.ErrCodeInvalidPort, errors.ErrCodeDriverConflict, errors.ErrCodeMissingDriver,
			errors.ErrCodeModuleNotFound, errors.ErrCodeHierarchyCycle:
			status = http.StatusUnprocessableEntity
		}
		httpError(w, status, "%s", errors.UserMessage(err))
		return
	}

	if req.URL.Query().Get("manifest") == "1" {
		manifest := compileManifest{Top: toCompileModule(res.Top)}
		for _, dep := range res.Dependencies {
			manifest.Dependencies = append(manifest.Dependencies, toCompileModule(dep))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(manifest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Dependency-Count", fmt.Sprintf("%d", len(res.Dependencies)))
	_, _ = w.Write(res.Top.Data)
}

func toCompileModule(mr pipeline.ModuleResult) compileModule {
	return compileModule{
		Name:       mr.Name,
		CustomID:   mr.CustomID,
		Components: mr.Components,
		Wires:      mr.Wires,
		Data:       mr.Data,
	}
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
