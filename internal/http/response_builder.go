// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses so every
// handler writes status, headers and body the same way.

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"tradecal/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// errorBody is the payload of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a response header.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Error sets status and an {"error": msg} body.
func (b *JSONResponseBuilder) Error(code int, msg string) *JSONResponseBuilder {
	b.statusCode = code
	b.body = errorBody{Error: msg}
	return b
}

// Write sends the response. Encoding failures are logged; the status line
// has already been written at that point.
func (b *JSONResponseBuilder) Write(ctx context.Context, w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", log.FieldError, err)
	}
}

// writeJSON is shorthand for a 200 response with body v.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	NewJSONResponse().Body(v).Write(r.Context(), w)
}

// writeError is shorthand for an error response.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	NewJSONResponse().Error(code, msg).Write(r.Context(), w)
}
