// Package http serves the ledger over a JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies, attachments and error envelopes with consistent headers.

package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"parishledger/internal/core"
	"parishledger/internal/export"
	applog "parishledger/internal/log"
	"parishledger/internal/services"
	"parishledger/internal/snapshot"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	body        []byte
	contentType string
	err         error
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	b.body = append(body, '\n')
	b.contentType = "application/json; charset=utf-8"
	return b
}

// Attachment sends body as a download named fileName. Non-ASCII names are
// encoded per RFC 2231.
func (b *ResponseBuilder) Attachment(fileName, contentType string, body []byte) *ResponseBuilder {
	b.body = body
	b.contentType = contentType
	b.headers["Content-Disposition"] = mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	return b
}

// Write sends the built response.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.contentType != "" {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorBody is the envelope of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse creates an error envelope with the given status.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, applog.ErrorTypeValidation, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, applog.ErrorTypeNotFound, message)
}

func UnauthorizedError() *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, applog.ErrorTypeAuth, "admin password required")
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, applog.ErrorTypeInternal, "internal error")
}

// errBadRequest marks malformed input detected by the handlers themselves.
var errBadRequest = errors.New("bad request")

// classify maps a service error to a status code and error type.
func classify(err error) (int, string) {
	var verr *snapshot.ValidationError
	switch {
	case errors.Is(err, errBadRequest),
		errors.As(err, &verr),
		errors.Is(err, snapshot.ErrInvalidSnapshot),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidPosition),
		errors.Is(err, services.ErrInvalidKind),
		errors.Is(err, services.ErrUnknownMember),
		errors.Is(err, services.ErrMemberRequired),
		errors.Is(err, services.ErrSubRequired),
		errors.Is(err, services.ErrFixedCategory),
		errors.Is(err, export.ErrEmptySelection),
		errors.Is(err, export.ErrInvalidPeriod):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUnknownCategory),
		errors.Is(err, export.ErrNoRows):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, services.ErrDuplicateCategory):
		return http.StatusConflict, applog.ErrorTypeConflict
	}
	return http.StatusInternalServerError, applog.ErrorTypeInternal
}

// ServiceError turns err into a response. Server errors are logged and
// their details withheld from the client.
func ServiceError(r *http.Request, op string, err error) *ResponseBuilder {
	status, errorType := classify(err)
	if status == http.StatusInternalServerError {
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, errorType)
		return InternalServerError()
	}
	return ErrorResponse(status, errorType, err.Error())
}
