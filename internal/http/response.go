// Package http serves the budget API as JSON.
//
// This file implements the builder used by every handler to write a
// response, and the single place where domain errors become status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneymanager/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	hasBody    bool
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

// Body sets the value encoded as the response body. A nil value is written as null.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(map[string]string{"message": msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a response with the given status and message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FieldError creates a 422 response naming the rejected field.
func FieldError(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(ErrorBody{Error: message, Field: field})
}

// FromError maps a service error to its response. The bool is false for
// errors that are not part of the domain taxonomy.
func FromError(err error) (*JSONResponseBuilder, bool) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return FieldError(verr.Field, verr.Error()), true
	case errors.Is(err, core.ErrItemNotFound):
		return NotFoundError("Item not found"), true
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Not found"), true
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, "The record was changed by another request; reload and retry"), true
	case errors.Is(err, core.ErrInvalidMonth):
		return BadRequestError("month must be between 1 and 12"), true
	case errors.Is(err, core.ErrInvalidYear):
		return BadRequestError("year must be between 1 and 9999"), true
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate):
		return FieldError("", err.Error()), true
	}
	return InternalServerError("Internal server error"), false
}
