package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentriage/sentriage/internal/metrics"
	"github.com/sentriage/sentriage/internal/record"
	"github.com/sentriage/sentriage/internal/report"
	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/triage"
	"github.com/sentriage/sentriage/internal/trust"
)

// TriageRequest is the POST /v1/triage payload. TrustedUsers, when
// present, replaces the server's configured set for this request only.
type TriageRequest struct {
	Records      []record.LogRecord `json:"records"`
	TrustedUsers []string           `json:"trusted_users,omitempty"`
	Save         bool               `json:"save,omitempty"`
}

// TriageResponse pairs the verdicts with the run's side-channel report.
type TriageResponse struct {
	RunID    string          `json:"run_id,omitempty"`
	Verdicts []rules.Verdict `json:"verdicts"`
	Report   *triage.Report  `json:"report"`
}

// Handler serves the triage API.
type Handler struct {
	engine *triage.Engine
	trust  trust.Source
	store  *report.Store
	logger *slog.Logger
}

// NewHandler wires the triage endpoint.
func NewHandler(engine *triage.Engine, src trust.Source, store *report.Store, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, trust: src, store: store, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req TriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Records) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no records"})
		return
	}

	trusted := h.trust.Snapshot()
	if req.TrustedUsers != nil {
		trusted = trust.New(req.TrustedUsers...)
	}

	started := time.Now()
	verdicts, rep := h.engine.Run(req.Records, trusted)
	metrics.ObserveRun(verdicts, rep)

	resp := TriageResponse{Verdicts: verdicts, Report: rep}

	if req.Save && h.store != nil {
		runID, err := h.store.SaveRun(started, verdicts, rep)
		if err != nil {
			h.logger.Error("saving run failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "saving run: " + err.Error()})
			return
		}
		resp.RunID = runID
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
