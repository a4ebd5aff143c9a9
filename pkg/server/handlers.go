package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/query"
	"mercator-hq/covenant/pkg/server/middleware"
	"mercator-hq/covenant/pkg/service"
)

// VerifyResponse is the body of POST /v1/verify.
type VerifyResponse struct {
	Valid     bool             `json:"valid"`
	Decision  consent.Decision `json:"decision"`
	AuditHash string           `json:"audit_hash"`
}

// EvidenceResponse is the body of GET /v1/evidence.
type EvidenceResponse struct {
	Records []*evidence.Record `json:"records"`
	Count   int                `json:"count"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// handleEvaluate answers 200 with the result for every policy outcome,
// including DENY and ESCALATE. Only a body that is not a JSON object is
// a client error.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := consent.DecodeJSON(data)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidJSON,
			"body must be a JSON object: "+err.Error())
		return
	}
	if writeContextError(w, r) {
		return
	}

	ev := s.svc.Evaluate(r.Context(), evidence.SourceHTTP, req)
	if ev.EvidenceID != "" {
		w.Header().Set(EvidenceIDHeader, ev.EvidenceID)
	}
	middleware.WriteJSON(w, http.StatusOK, ev.Result)
}

// handleEvaluateBatch answers with a JSON array of results in input order.
func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidJSON,
			"body must be a JSON array of request objects")
		return
	}
	reqs, err := consent.DecodeJSONList(trimmed)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidJSON, err.Error())
		return
	}

	evs, err := s.svc.EvaluateBatch(r.Context(), evidence.SourceHTTP, reqs)
	switch {
	case errors.Is(err, service.ErrBatchTooLarge):
		middleware.WriteError(w, r, http.StatusRequestEntityTooLarge, middleware.CodeBatchTooLarge, err.Error())
		return
	case err != nil:
		if !writeContextError(w, r) {
			middleware.WriteError(w, r, http.StatusInternalServerError, middleware.CodeInternal, "batch evaluation failed")
		}
		return
	}

	results := make([]consent.Result, len(evs))
	for i, ev := range evs {
		results[i] = ev.Result
	}
	middleware.WriteJSON(w, http.StatusOK, results)
}

// handleVerify recomputes a scored result's audit hash. Terminal results
// carry a time salt and answer 422.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	result, err := consent.DecodeResult(data)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidJSON, err.Error())
		return
	}
	if result.Terminal() {
		middleware.WriteError(w, r, http.StatusUnprocessableEntity, middleware.CodeNotVerifiable,
			"terminal results are salted with their evaluation time and cannot be recomputed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, VerifyResponse{
		Valid:     consent.VerifyScored(result),
		Decision:  result.Decision(),
		AuditHash: result.AuditHash(),
	})
}

func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	if s.evidence == nil {
		middleware.WriteError(w, r, http.StatusServiceUnavailable, middleware.CodeUnavailable,
			"evidence recording is disabled")
		return
	}

	q, err := query.FromValues(r.URL.Query(), s.now())
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidQuery, err.Error())
		return
	}

	records, err := s.evidence.Query(r.Context(), q)
	if err != nil {
		if writeContextError(w, r) {
			return
		}
		s.logger.ErrorContext(r.Context(), "evidence query failed", "error", err)
		middleware.WriteError(w, r, http.StatusInternalServerError, middleware.CodeInternal, "evidence query failed")
		return
	}
	if records == nil {
		records = []*evidence.Record{}
	}

	middleware.WriteJSON(w, http.StatusOK, EvidenceResponse{
		Records: records,
		Count:   len(records),
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

// readBody reads the whole body, answering 413 past the body limit and
// 400 for other read failures.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(r.Body)
	if err == nil {
		return data, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.WriteError(w, r, http.StatusRequestEntityTooLarge, middleware.CodeBodyTooLarge,
			"request body too large")
		return nil, false
	}
	middleware.WriteError(w, r, http.StatusBadRequest, middleware.CodeInvalidRequest, "failed to read request body")
	return nil, false
}

// writeContextError answers 504 or 503 when the request context is done.
func writeContextError(w http.ResponseWriter, r *http.Request) bool {
	switch err := r.Context().Err(); {
	case errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, r, http.StatusGatewayTimeout, middleware.CodeTimeout, "request timed out")
		return true
	case err != nil:
		middleware.WriteError(w, r, http.StatusServiceUnavailable, middleware.CodeUnavailable, "request cancelled")
		return true
	}
	return false
}
