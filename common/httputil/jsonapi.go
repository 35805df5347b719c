package httputil

import (
	"net/http"
	"sort"
	"strconv"
)

// Resource is a single JSON:API resource object.
type Resource struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes any               `json:"attributes"`
	Links      map[string]string `json:"links,omitempty"`
}

// Document is a top-level JSON:API document.
type Document struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// WriteResource writes one resource with an optional self link.
func WriteResource(w http.ResponseWriter, status int, resourceType, id string, attributes any, self string) {
	r := Resource{Type: resourceType, ID: id, Attributes: attributes}
	if self != "" {
		r.Links = map[string]string{"self": self}
	}
	WriteJSONAPI(w, status, Document{Data: r})
}

// WriteCollection writes resources with a total count in meta.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource) {
	if resources == nil {
		resources = []Resource{}
	}
	WriteJSONAPI(w, status, Document{Data: resources, Meta: map[string]any{"total": len(resources)}})
}

// ErrorObject is a JSON:API error.
type ErrorObject struct {
	Status string            `json:"status,omitempty"`
	Code   string            `json:"code,omitempty"`
	Title  string            `json:"title,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Source map[string]string `json:"source,omitempty"`
}

// NewError builds an ErrorObject. JSON:API carries status as a string.
func NewError(status int, code, title, detail string) ErrorObject {
	return ErrorObject{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// WriteJSONAPIErrors writes several errors at once.
func WriteJSONAPIErrors(w http.ResponseWriter, status int, errs []ErrorObject) {
	WriteJSONAPI(w, status, map[string]any{"errors": errs})
}

// WriteFieldErrors writes one validation error per field, pointing at
// /data/attributes/<field>. Fields are emitted in sorted order.
func WriteFieldErrors(w http.ResponseWriter, status int, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]ErrorObject, 0, len(keys))
	for _, k := range keys {
		e := NewError(status, "validation_failed", "Validation Failed", fields[k])
		e.Source = map[string]string{"pointer": "/data/attributes/" + k}
		errs = append(errs, e)
	}
	WriteJSONAPIErrors(w, status, errs)
}

// WriteNotFound writes a 404 for a resource id.
func WriteNotFound(w http.ResponseWriter, resourceType, id string) {
	WriteJSONAPIError(w, http.StatusNotFound, "not_found", "Resource Not Found",
		"The requested "+resourceType+" with ID '"+id+"' was not found")
}

// WriteInternalError writes a 500. Log the cause before calling it.
func WriteInternalError(w http.ResponseWriter, detail string) {
	WriteJSONAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", detail)
}
