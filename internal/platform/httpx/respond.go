// Package httpx provides JSON response and RFC7807 problem helpers
// shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies accepted by DecodeJSON. The largest
// legitimate payload is a multi-line purchase; 1 MiB is far above it.
const maxBodyBytes = 1 << 20

// ProblemDetail is an RFC7807 problem details body.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes a size-capped JSON request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(target)
}
