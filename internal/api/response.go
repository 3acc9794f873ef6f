package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/mentorkb/internal/domain"
)

// SuccessResponse is the envelope for successful responses.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the envelope for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes data as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes data wrapped in the success envelope.
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes a message wrapped in the error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var errorCodeStatus = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeAlreadyExists:    http.StatusConflict,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

// DomainErrorToHTTP maps a domain error code to an HTTP status.
// Errors without a domain code, wrapped or not, map to 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	if status, ok := errorCodeStatus[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err with the status derived from its domain code.
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), err.Error())
}
