package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/dashboard"
	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/selection"
	"github.com/spektr-org/threatlens/store"
)

// OptionsResponse is the body of GET /api/options.
type OptionsResponse struct {
	Source   string              `json:"source"`
	Records  int                 `json:"records"`
	Controls []selection.Control `json:"controls"`
	Defaults selection.Selection `json:"defaults"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GET /api/options
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	st, ok := s.load(w)
	if !ok {
		return
	}

	controls, err := selection.Controls(st)
	if err != nil {
		s.fail(w, err)
		return
	}
	defaults, err := selection.Default(st)
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OptionsResponse{
		Source:   st.Source(),
		Records:  st.Len(),
		Controls: controls,
		Defaults: defaults,
	})
}

// GET /api/dashboard?rows=true
func (s *Server) handleDefaultDashboard(w http.ResponseWriter, r *http.Request) {
	st, ok := s.load(w)
	if !ok {
		return
	}

	sel, err := selection.Default(st)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.serveDashboard(w, r, st, sel)
}

// POST /api/dashboard?rows=true
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "read body: " + err.Error()})
		return
	}
	sel, err := selection.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	st, ok := s.load(w)
	if !ok {
		return
	}
	s.serveDashboard(w, r, st, sel)
}

func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request, st *store.Store, sel selection.Selection) {
	filters, err := sel.Filters(st.Schema())
	if err != nil {
		s.fail(w, err)
		return
	}

	opts := s.opts
	if rows, _ := strconv.ParseBool(r.URL.Query().Get("rows")); rows {
		opts = append(opts[:len(opts):len(opts)], dashboard.WithRows())
	}

	res, err := dashboard.Build(st, filters, opts...)
	if errors.Is(err, engine.ErrEmptyView) {
		res, err = dashboard.EmptyResult(), nil
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// load fetches the store, replying 503 when the file cannot be read.
func (s *Server) load(w http.ResponseWriter) (*store.Store, bool) {
	st, err := s.cache.Get(s.path)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return st, true
}

// fail maps an error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var loadErr *store.DataLoadError
	switch {
	case engine.IsRecoverable(err),
		errors.Is(err, engine.ErrUnknownColumn),
		errors.Is(err, engine.ErrInvalidArgument),
		errors.Is(err, selection.ErrUnknownColumn),
		errors.Is(err, selection.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
