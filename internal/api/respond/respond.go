// Package respond writes the JSON envelopes shared by every API handler.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/taskboard/internal/service"
)

// maxBodyBytes bounds request bodies read by Decode.
const maxBodyBytes = 1 << 20

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeAlreadyMember      = "ALREADY_MEMBER"
	CodeRateLimited        = "RATE_LIMITED"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Standard errors
var (
	ErrUnauthenticated = &Error{
		Code:    CodeUnauthorized,
		Message: "Could not validate credentials",
		Status:  http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:    CodeForbidden,
		Message: "Access denied",
		Status:  http.StatusForbidden,
	}

	ErrNotFound = &Error{
		Code:    CodeNotFound,
		Message: "Not found",
		Status:  http.StatusNotFound,
	}

	ErrMethodNotAllowed = &Error{
		Code:    CodeMethodNotAllowed,
		Message: "Method not allowed",
		Status:  http.StatusMethodNotAllowed,
	}

	ErrRateLimited = &Error{
		Code:    CodeRateLimited,
		Message: "Too many requests",
		Status:  http.StatusTooManyRequests,
	}

	ErrInternal = &Error{
		Code:    CodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
)

// BadRequest creates a 400 error with a custom message.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message, Status: http.StatusBadRequest}
}

type dataEnvelope struct {
	Data any `json:"data"`
}

// errorEnvelope repeats the message as "detail" for clients that read it there.
type errorEnvelope struct {
	Error  *Error `json:"error"`
	Detail string `json:"detail"`
}

// JSON writes data wrapped in {"data": ...} with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dataEnvelope{Data: data})
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error envelope.
func Err(w http.ResponseWriter, e *Error) {
	if e.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(errorEnvelope{Error: e, Detail: e.Message})
}

// kinds maps service error kinds to HTTP errors.
var kinds = []struct {
	kind   error
	code   string
	status int
}{
	{service.ErrNotFound, CodeNotFound, http.StatusNotFound},
	{service.ErrForbidden, CodeForbidden, http.StatusForbidden},
	{service.ErrInvalidCredentials, CodeInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, CodeInvalidToken, http.StatusUnauthorized},
	{service.ErrUnauthenticated, CodeUnauthorized, http.StatusUnauthorized},
	{service.ErrDuplicateUsername, CodeDuplicateUsername, http.StatusBadRequest},
	{service.ErrDuplicateEmail, CodeDuplicateEmail, http.StatusBadRequest},
	{service.ErrAlreadyMember, CodeAlreadyMember, http.StatusBadRequest},
	{service.ErrValidation, CodeValidationFailed, http.StatusBadRequest},
}

// Translate converts err into an API error. Errors without a known kind
// become 500 INTERNAL_ERROR.
func Translate(err error) *Error {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return &Error{Code: k.code, Message: service.Message(err), Status: k.status}
		}
	}
	return ErrInternal
}

// FromError writes the response for a service error. Internal failures are
// logged under op and never exposed to the client.
func FromError(w http.ResponseWriter, op string, err error) {
	e := Translate(err)
	if e.Status == http.StatusInternalServerError {
		log.Printf("%s error: %v", op, err)
	}
	Err(w, e)
}

// Decode reads a JSON request body into dst.
func Decode(w http.ResponseWriter, r *http.Request, dst any) *Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return BadRequest("request body too large")
		}
		return BadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// PathID parses the positive integer URL parameter name.
func PathID(r *http.Request, name string) (int64, *Error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
