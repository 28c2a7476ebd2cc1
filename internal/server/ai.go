package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/repair"
)

type validateResponse struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleValidateKey checks the configured AI key with the provider. A
// rejected key is a normal answer (valid=false), not a request failure.
func (s *Server) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		s.writeError(w, repair.Classify(repair.ErrMissingAPIKey))
		return
	}

	if err := s.validator.ValidateKey(r.Context()); err != nil {
		classified := repair.Classify(err)
		s.logger.Info("ai key rejected", zap.String("kind", string(classified.Kind)))
		writeJSON(w, http.StatusOK, validateResponse{
			Kind:  string(classified.Kind),
			Error: classified.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}
