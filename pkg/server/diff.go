package server

import (
	"encoding/json"
	"net/http"

	slogctx "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
	"github.com/vango-dev/keyed/pkg/reconciler"
)

// DiffRequest is the body of POST /v1/diff.
type DiffRequest struct {
	Old      []string `json:"old"`
	New      []string `json:"new"`
	Strategy string   `json:"strategy,omitempty"`
	Passive  *bool    `json:"passive,omitempty"`
	Grouping *bool    `json:"grouping,omitempty"`
}

// DiffResponse is the answer of POST /v1/diff.
type DiffResponse struct {
	Diff       *keyed.Diff[string]       `json:"diff"`
	Stats      keyed.Stats               `json:"stats"`
	Keys       []string                  `json:"keys"`
	Duplicates []keyed.Duplicate[string] `json:"duplicates,omitempty"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	logger := slogctx.FromCtx(r.Context())

	var req DiffRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxMessageSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("E300").WithDetail("request body is not a valid diff request").Wrap(err))
		return
	}

	strategy := s.config.Strategy
	if req.Strategy != "" {
		var err error
		if strategy, err = keyed.ParseStrategy(req.Strategy); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	passive := s.config.PassiveShifts
	if req.Passive != nil {
		passive = *req.Passive
	}
	grouping := s.config.Grouping
	if req.Grouping != nil {
		grouping = *req.Grouping
	}

	oldKeys, newKeys := req.Old, req.New
	if newKeys == nil {
		newKeys = []string{}
	}
	var dups []keyed.Duplicate[string]
	for _, list := range []*[]string{&oldKeys, &newKeys} {
		found := keyed.FindDuplicates(*list)
		if len(found) == 0 {
			continue
		}
		if s.config.Duplicates == reconciler.DuplicateReject {
			writeError(w, http.StatusUnprocessableEntity, keyed.DuplicateError(found))
			return
		}
		dups = append(dups, found...)
		*list, _ = keyed.Dedupe(*list)
	}
	if len(dups) > 0 {
		logger.Warn("duplicate keys in request", "duplicates", len(dups))
	}

	d := keyed.DiffKeys(oldKeys, newKeys, s.config.diffOptions(strategy, passive, grouping)...)
	logger.Debug("diff computed", "old", len(oldKeys), "new", len(newKeys), "diff", d.String())

	stats := d.Stats()
	recordDiff(trace.SpanFromContext(r.Context()), stats)

	writeJSON(w, http.StatusOK, &DiffResponse{
		Diff:       d,
		Stats:      stats,
		Keys:       newKeys,
		Duplicates: dups,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	ke := errors.FromError(err, "E300")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":` + ke.FormatJSON() + "}\n"))
}
