package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lgpdshield/lgpd-shield/internal/audit"
	"github.com/lgpdshield/lgpd-shield/internal/redact"
	"github.com/lgpdshield/lgpd-shield/internal/structured"
	"github.com/lgpdshield/lgpd-shield/internal/websocket"
	"go.uber.org/zap"
)

type textRequest struct {
	Text string `json:"text"`
}

type tableRequest struct {
	Columns map[string][]interface{} `json:"columns"`
}

type tableResponse struct {
	Columns map[string][]interface{} `json:"columns"`
	Summary *structured.Summary      `json:"summary"`
}

type documentResponse struct {
	Document structured.Document `json:"document"`
	Summary  *structured.Summary `json:"summary"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// handleRedactText redacts a single string and returns the result with
// per-entity findings.
func (s *Server) handleRedactText(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)
	start := time.Now()

	var req textRequest
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "invalid request body")
		return
	}

	state := s.state.Load()

	var cacheKey string
	cacheHit := false
	if s.resultCache != nil {
		cacheKey = s.resultCache.Key(state.engine.Registry().Fingerprint(), req.Text)
		if lookup, err := s.resultCache.Get(r.Context(), cacheKey); err == nil && lookup.CacheHit {
			s.finish(r.Context(), requestID, "text", findingsMap(lookup.Result.Findings), 1, len(req.Text), start, "ok", true)
			s.writeJSON(w, http.StatusOK, lookup.Result)
			return
		}
	}

	result, err := state.engine.RedactText(req.Text)
	if err != nil {
		s.finish(r.Context(), requestID, "text", nil, 1, len(req.Text), start, "failed", false)
		if errors.Is(err, redact.ErrMalformedInput) {
			s.writeError(w, requestID, http.StatusBadRequest, "input is not valid UTF-8")
			return
		}
		log.Error("Redaction failed", zap.Error(err))
		s.writeError(w, requestID, http.StatusInternalServerError, "redaction failed")
		return
	}

	if s.resultCache != nil {
		if err := s.resultCache.Store(r.Context(), cacheKey, result); err != nil {
			log.Debug("Cache store failed", zap.Error(err))
		}
	}

	s.finish(r.Context(), requestID, "text", findingsMap(result.Findings), 1, len(req.Text), start, "ok", cacheHit)
	s.writeJSON(w, http.StatusOK, result)
}

// handleRedactValue redacts every string leaf of an arbitrary JSON value
// and echoes it back with the same shape. The summary travels out of band,
// on the event feed and in the audit trail.
func (s *Server) handleRedactValue(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)
	start := time.Now()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes))
	if err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "failed to read request body")
		return
	}

	value, err := structured.DecodeJSON(data)
	if err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "invalid JSON value")
		return
	}

	state := s.state.Load()
	redacted, summary, err := state.walker.Redact(value)
	if err != nil {
		s.finish(r.Context(), requestID, "value", nil, 0, len(data), start, "failed", false)
		log.Error("Structured redaction failed", zap.Error(err))
		s.writeError(w, requestID, http.StatusInternalServerError, "redaction failed")
		return
	}

	out, err := structured.EncodeJSON(redacted)
	if err != nil {
		log.Error("Failed to encode redacted value", zap.Error(err))
		s.writeError(w, requestID, http.StatusInternalServerError, "redaction failed")
		return
	}

	s.finish(r.Context(), requestID, "value", summary.Findings, summary.Leaves, len(data), start, "ok", false)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Redaction-Findings", fmt.Sprintf("%d", totalFindings(summary.Findings)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// handleRedactTable redacts a column-oriented table.
func (s *Server) handleRedactTable(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)
	start := time.Now()

	var req tableRequest
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Columns) == 0 {
		s.writeError(w, requestID, http.StatusBadRequest, "columns must not be empty")
		return
	}

	state := s.state.Load()
	columns, summary, err := state.walker.RedactTable(req.Columns)
	if err != nil {
		s.finish(r.Context(), requestID, "table", nil, 0, int(r.ContentLength), start, "failed", false)
		if errors.Is(err, structured.ErrStructuralMismatch) {
			s.writeError(w, requestID, http.StatusBadRequest, "unsupported cell type in table")
			return
		}
		log.Error("Table redaction failed", zap.Error(err))
		s.writeError(w, requestID, http.StatusInternalServerError, "redaction failed")
		return
	}

	s.finish(r.Context(), requestID, "table", summary.Findings, summary.Leaves, int(r.ContentLength), start, "ok", false)
	s.writeJSON(w, http.StatusOK, tableResponse{Columns: columns, Summary: summary})
}

// handleRedactDocument redacts a block-structured document.
func (s *Server) handleRedactDocument(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)
	start := time.Now()

	var doc structured.Document
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "invalid request body")
		return
	}

	state := s.state.Load()
	redacted, summary, err := state.walker.RedactDocument(doc)
	if err != nil {
		s.finish(r.Context(), requestID, "document", nil, 0, int(r.ContentLength), start, "failed", false)
		if errors.Is(err, structured.ErrStructuralMismatch) {
			s.writeError(w, requestID, http.StatusBadRequest, "unknown block type in document")
			return
		}
		log.Error("Document redaction failed", zap.Error(err))
		s.writeError(w, requestID, http.StatusInternalServerError, "redaction failed")
		return
	}

	s.finish(r.Context(), requestID, "document", summary.Findings, summary.Leaves, int(r.ContentLength), start, "ok", false)
	s.writeJSON(w, http.StatusOK, documentResponse{Document: redacted, Summary: summary})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	state := s.state.Load()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":           "lgpd-shield",
		"version":        Version,
		"patterns":       len(state.engine.Registry().Patterns()),
		"entity_types":   state.engine.Registry().EntityTypes(),
		"leaf_policy":    s.config.Redaction.LeafPolicy,
		"cache_enabled":  s.resultCache != nil,
		"audit_enabled":  s.auditStore != nil,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"engine_loaded":  state.loadedAt.Format(time.RFC3339),
	})
}

type patternInfo struct {
	EntityType string  `json:"entity_type"`
	Regex      string  `json:"regex"`
	Score      float64 `json:"score"`
}

// handlePatterns lists the active pattern registry. Patterns are
// configuration, not data, so exposing them leaks nothing sensitive.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	state := s.state.Load()
	specs := state.engine.Registry().Patterns()
	patterns := make([]patternInfo, 0, len(specs))
	for _, spec := range specs {
		patterns = append(patterns, patternInfo{
			EntityType: spec.EntityType,
			Regex:      spec.Expr,
			Score:      spec.Score,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fingerprint": state.engine.Registry().Fingerprint(),
		"patterns":    patterns,
	})
}

// handleCacheStats reports result-cache hit rates.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	if s.resultCache == nil {
		s.writeError(w, requestID, http.StatusNotFound, "result cache is not enabled")
		return
	}
	stats, err := s.resultCache.GetStats(r.Context())
	if err != nil {
		s.writeError(w, requestID, http.StatusInternalServerError, "failed to read cache stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleWebSocket handles WebSocket connections for the event feed
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// finish records one redaction call on the event feed and in the audit
// trail. Counts and timings only, never content.
func (s *Server) finish(ctx context.Context, requestID, source string, findings map[string]int, leaves, inputBytes int, start time.Time, outcome string, cacheHit bool) {
	duration := time.Since(start)
	total := totalFindings(findings)
	s.totalFindings.Add(int64(total))
	s.logger.WithRequestID(requestID).LogRedaction(source, inputBytes, findings, duration)

	if s.wsHub != nil {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeRedaction,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.RedactionEvent{
				RequestID:     requestID,
				Source:        source,
				Findings:      findings,
				TotalFindings: total,
				Leaves:        leaves,
				ProcessingMS:  float64(duration.Nanoseconds()) / 1e6,
				CacheHit:      cacheHit,
			},
		})
	}

	if s.auditStore != nil {
		record := &audit.Record{
			RequestID:  requestID,
			Source:     source,
			Findings:   findings,
			Leaves:     leaves,
			DurationMS: float64(duration.Nanoseconds()) / 1e6,
			Outcome:    outcome,
		}
		go func() {
			insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.auditStore.Insert(insertCtx, record); err != nil {
				s.logger.Error("Audit insert failed", zap.String("request_id", requestID), zap.Error(err))
			}
		}()
	}
}

func findingsMap(findings []redact.Finding) map[string]int {
	if len(findings) == 0 {
		return nil
	}
	m := make(map[string]int, len(findings))
	for _, f := range findings {
		m[f.EntityType] += f.Count
	}
	return m
}

func totalFindings(findings map[string]int) int {
	total := 0
	for _, count := range findings {
		total += count
	}
	return total
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError emits a generic error body. Input text never appears in
// error responses.
func (s *Server) writeError(w http.ResponseWriter, requestID string, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, RequestID: requestID})
}
