package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"storefront-api/internal/dberr"
	"storefront-api/internal/logging"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest reports a client input problem with its actual message.
func writeBadRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf(format, args...)})
}

// writeStoreError maps a store error to an HTTP status by kind. Internal
// failures get a generic body; the detail goes to the request logger only.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case dberr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case dberr.IsDuplicateKey(err):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already exists"})
	default:
		logging.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeJSON reads a single JSON document into dst, rejecting unknown fields
// and trailing content.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing content")
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// queryLimit resolves the ?limit= parameter against the configured default.
func (a *API) queryLimit(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return a.cfg.DefaultPageSize, nil
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > a.cfg.DefaultPageSize {
		limit = a.cfg.DefaultPageSize
	}
	return limit, nil
}
