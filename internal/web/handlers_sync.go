package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/combokiosk/internal/core"
	"github.com/JonMunkholm/combokiosk/internal/logging"
	"github.com/JonMunkholm/combokiosk/internal/web/templates"
)

// syncResponse is a run result plus the operator message for a failed run.
type syncResponse struct {
	core.SyncResult
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
}

// handleSync runs a catalog sync. A multipart body supplies the exports
// ("combos" required, "products" optional); without one the configured
// sources are used. The run is not tied to the client connection.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not available on this server")
		return
	}

	var req core.SyncRequest
	if isMultipart(r) {
		maxSize := s.cfg.Sync.MaxUploadSize
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(maxSize); err != nil {
			writeError(w, http.StatusBadRequest, "file too large or invalid form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		combos, closeCombos, err := formSource(r, "combos")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no combos file provided")
			return
		}
		defer closeCombos()
		req.Combos = combos

		if products, closeProducts, err := formSource(r, "products"); err == nil {
			defer closeProducts()
			req.Products = products
		}
	} else {
		if s.syncReq == nil {
			writeError(w, http.StatusBadRequest, "no sync source configured: upload a combos file")
			return
		}
		req = s.syncReq()
	}

	ctx := core.ContextWithTrigger(context.WithoutCancel(r.Context()), core.TriggerHTTP)
	result, err := s.syncer.Run(ctx, req)
	resp := syncResponse{SyncResult: result}
	if err != nil {
		msg := core.MapError(err)
		resp.Message = msg.Message
		resp.Action = msg.Action
		writeJSON(w, syncStatus(err, msg.Code), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formSource opens an uploaded file as a sync source.
func formSource(r *http.Request, field string) (core.Source, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	return core.ReaderSource(header.Filename, file), func() { file.Close() }, nil
}

// syncStatus picks the HTTP status for a failed run.
func syncStatus(err error, code string) int {
	switch {
	case errors.Is(err, core.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case strings.HasPrefix(code, "SRC"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// runFilter reads history filters from the query string.
func runFilter(r *http.Request) (core.RunFilter, error) {
	q := r.URL.Query()
	f := core.RunFilter{
		Trigger:    q.Get("trigger"),
		FailedOnly: q.Get("failed") == "true",
		Limit:      parseIntParam(r, "limit", core.DefaultHistoryLimit),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return f, errors.New("invalid since: want RFC 3339")
		}
		f.Since = t
	}
	return f, nil
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// handleSyncRuns returns run history, newest first.
func (s *Server) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeJSON(w, http.StatusOK, []core.SyncResult{})
		return
	}
	f, err := runFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.syncer.RecentRuns(r.Context(), f)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.SyncResult{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleSyncReport renders the operator page with recent runs.
func (s *Server) handleSyncReport(w http.ResponseWriter, r *http.Request) {
	var runs []core.SyncResult
	if s.syncer != nil {
		f, err := runFilter(r)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		runs, err = s.syncer.RecentRuns(r.Context(), f)
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.SyncReport(runs, s.syncReq != nil).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render sync report", "error", err)
	}
}
