// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/notedrop/service/internal/store"
)

// ErrorBody is the body of every failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with payload.
func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// Created writes a 201 response with payload.
func Created(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusCreated, payload)
}

// Error writes an error response with the given status, kind and message.
func Error(w http.ResponseWriter, status int, kind store.Kind, message string) {
	JSON(w, status, ErrorBody{Message: message, Kind: string(kind)})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, store.KindInvalidRequest, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, store.KindNotFound, message)
}

// NotImplemented writes a 501 response.
func NotImplemented(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotImplemented, store.KindUnknown, message)
}

// InternalError writes a 500 response with a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, store.KindUnknown, "internal server error")
}

// StoreError writes err using its store kind for both the status and the
// body. Uncategorized errors become a generic 500.
func StoreError(w http.ResponseWriter, err error) {
	kind := store.KindOf(err)
	if kind == store.KindUnknown {
		InternalError(w)
		return
	}
	Error(w, Status(kind), kind, store.MessageOf(err))
}

// Status maps a store kind to an HTTP status.
func Status(kind store.Kind) int {
	switch kind {
	case store.KindNameConflict:
		return http.StatusConflict
	case store.KindPathInvalid, store.KindInvalidRequest:
		return http.StatusBadRequest
	case store.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
