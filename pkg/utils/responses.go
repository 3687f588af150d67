package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Data      any       `json:"data,omitempty"`
	Errors    any       `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseJSON writes JSON response with custom status code
func ResponseJSON(w http.ResponseWriter, code int, success bool, message, errorCode string, data, errors any) {
	response := Response{
		Success:   success,
		Message:   message,
		ErrorCode: errorCode,
		Data:      data,
		Errors:    errors,
		Timestamp: time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// WriteRaw writes a payload without the envelope, for the checkout contract the frontend expects.
func WriteRaw(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// ------------- Success responses -------------

// returns 200 OK
func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, true, message, "", data, nil)
}

// returns 201 Created
func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, true, message, "", data, nil)
}

// ------------- Error responses -------------

// returns 400 Bad Request
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseJSON(w, http.StatusBadRequest, false, message, "VALIDATION_ERROR", nil, errors)
}

// ResponseError writes a failure envelope with an application error code
func ResponseError(w http.ResponseWriter, code int, message, errorCode string) {
	ResponseJSON(w, code, false, message, errorCode, nil, nil)
}

// returns 500 Internal Server Error
func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseJSON(w, http.StatusInternalServerError, false, message, "INTERNAL_ERROR", nil, nil)
}
