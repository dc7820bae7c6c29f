// Package http serves the dashboard page, its JSON API and XLSX exports.
//
// This file implements a small builder for JSON responses so every
// endpoint reports errors in the same shape.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"engdash/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// NoCache marks the response as not cacheable.
func (b *JSONResponseBuilder) NoCache() *JSONResponseBuilder {
	return b.Header("Cache-Control", "no-store")
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b.body); err != nil {
		slog.Error("Failed to encode JSON response",
			log.FieldComponent, log.ComponentHTTP, log.FieldError, err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message, requestID string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		NoCache().
		Body(errorBody{Error: message, RequestID: requestID})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message, requestID string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, requestID)
}

// BadGatewayError reports that the row source could not be read.
func BadGatewayError(requestID string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, "time entries are temporarily unavailable", requestID)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message, requestID string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, requestID)
}
