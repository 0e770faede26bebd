package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/history"
	"github.com/entrhq/formai/pkg/logging"
	"github.com/entrhq/formai/pkg/outcome"
	"github.com/entrhq/formai/pkg/types"
)

// maxRequestBodySize limits the size of incoming request bodies (4MB).
const maxRequestBodySize = 4 * 1024 * 1024

// writeMargin is added to the automation timeout to get the time a response
// may take to be written.
var writeMargin = 30 * time.Second

// Submitter runs submissions. *submission.Service implements it.
type Submitter interface {
	Submit(ctx context.Context, req *types.SubmissionRequest) (*types.SubmissionOutcome, error)
	SubmitBatch(ctx context.Context, reqs []types.SubmissionRequest) []*types.SubmissionOutcome
}

// HistoryReader lists recorded submissions. *history.Store implements it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Handlers contains the HTTP handler methods for the API.
type Handlers struct {
	submitter Submitter
	settings  *config.Settings
	history   HistoryReader
	log       *logging.Logger
}

// NewHandlers creates a new Handlers instance. hist may be nil, which
// disables the history endpoint.
func NewHandlers(submitter Submitter, settings *config.Settings, hist HistoryReader, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.Discard()
	}
	return &Handlers{
		submitter: submitter,
		settings:  settings,
		history:   hist,
		log:       log,
	}
}

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Docs    string `json:"docs"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// HistoryEntryDTO is one row of GET /api/history.
type HistoryEntryDTO struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model"`
	types.SubmissionOutcome
}

// HandleRoot handles GET /.
func (h *Handlers) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServiceInfo{
		Service: ServiceName,
		Version: Version,
		Status:  "running",
		Docs:    "/docs",
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// HandleConfig handles GET /api/config.
func (h *Handlers) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Public())
}

// HandleSubmit handles POST /api/submit.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req types.SubmissionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, fmt.Errorf("invalid JSON: %v: %w", err, ErrInvalidInput))
		return
	}

	out, err := h.submitter.Submit(r.Context(), &req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleBatchSubmit handles POST /api/batch-submit. Items that cannot be
// decoded become error outcomes in place; the rest run in order.
func (h *Handlers) HandleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		WriteError(w, fmt.Errorf("request body must be a JSON array: %w", ErrInvalidInput))
		return
	}

	results := make([]*types.SubmissionOutcome, len(items))
	reqs := make([]types.SubmissionRequest, 0, len(items))
	positions := make([]int, 0, len(items))
	for i, raw := range items {
		var req types.SubmissionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			results[i] = undecodableOutcome(fmt.Errorf("invalid JSON at index %d: %v", i, err))
			continue
		}
		reqs = append(reqs, req)
		positions = append(positions, i)
	}

	h.extendWriteDeadline(w, r, len(reqs))
	for j, out := range h.submitter.SubmitBatch(r.Context(), reqs) {
		results[positions[j]] = out
	}
	writeJSON(w, http.StatusOK, results)
}

// extendWriteDeadline gives a batch of n sequential runs enough time to be
// answered; the server-wide write timeout only covers one run.
func (h *Handlers) extendWriteDeadline(w http.ResponseWriter, r *http.Request, n int) {
	if n <= 1 {
		return
	}
	d := time.Duration(n)*h.settings.Timeout() + writeMargin
	err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.log.Warnf("could not extend write deadline for batch (request %s): %v", RequestIDFrom(r.Context()), err)
	}
}

// HandleHistory handles GET /api/history?limit=N.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		WriteError(w, ErrHistoryDisabled)
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, fmt.Errorf("limit must be a positive integer: %w", ErrInvalidInput))
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	resp := make([]HistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, HistoryEntryDTO{
			ID:                e.ID,
			CreatedAt:         e.CreatedAt,
			Model:             e.Model,
			SubmissionOutcome: e.Outcome,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFailure logs internal errors in full before writing the response.
func (h *Handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if httpErr := MapError(err); httpErr.Code == CodeInternal {
		h.log.Errorf("%s %s failed (request %s): %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
	}
	WriteError(w, err)
}

// readBody reads at most maxRequestBodySize bytes.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", ErrInvalidInput)
	}
	if len(body) > maxRequestBodySize {
		return nil, fmt.Errorf("request body too large (max %d bytes): %w", maxRequestBodySize, ErrInvalidInput)
	}
	return body, nil
}

func undecodableOutcome(err error) *types.SubmissionOutcome {
	return &types.SubmissionOutcome{
		RequestID: uuid.New().String(),
		Status:    types.StatusError,
		Message:   "Error: " + err.Error(),
		Details:   outcome.Classify("", err).Detail,
	}
}
