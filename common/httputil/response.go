// Package httputil holds the response and request helpers shared by the
// rollup wizard HTTP handlers.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeJSONAPI = "application/vnd.api+json"
)

func write(w http.ResponseWriter, status int, contentType string, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "content_type", contentType, "error", err)
	}
}

// WriteJSON writes data as plain JSON.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, ContentTypeJSON, data)
}

// WriteJSONAPI writes a JSON:API document.
func WriteJSONAPI(w http.ResponseWriter, status int, data any) {
	write(w, status, ContentTypeJSONAPI, data)
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteJSONAPIError writes a single JSON:API error.
func WriteJSONAPIError(w http.ResponseWriter, status int, code, title, detail string) {
	WriteJSONAPIErrors(w, status, []ErrorObject{NewError(status, code, title, detail)})
}
