package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/export"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
	"github.com/dshills/mermaidflow/internal/session"
	"github.com/dshills/mermaidflow/internal/store"
)

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var (
		repairErr *repair.Error
		renderErr *render.Error
		statusErr *render.StatusError
	)

	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrInvalidColor),
		errors.Is(err, export.ErrEmptyMarkup),
		errors.Is(err, render.ErrEmptyMarkup),
		errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrSuperseded), errors.Is(err, coordinator.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrNoRenderer),
		errors.Is(err, export.ErrNoRenderer),
		errors.Is(err, errNoStore):
		return http.StatusServiceUnavailable
	case errors.As(err, &repairErr):
		switch repairErr.Kind {
		case repair.KindMissingKey, repair.KindEmptyMarkup:
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &renderErr):
		return http.StatusBadRequest
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var repairErr *repair.Error
	if errors.As(err, &repairErr) {
		resp.Kind = string(repairErr.Kind)
		resp.Error = repairErr.Message
	}
	if re, ok := render.AsError(err); ok {
		resp.Kind = "syntax"
		resp.Error = re.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Sugar().Warnw("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
