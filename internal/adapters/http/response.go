package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/madcrow/auth-service/internal/ports"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rateLimitError struct {
	Status        string                `json:"status"`
	Code          string                `json:"code"`
	Message       string                `json:"message"`
	RateLimitInfo ports.RateLimitStatus `json:"rate_limit_info"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// writeRateLimited emits the 429 body with the window state and sets
// Retry-After so well-behaved clients back off without parsing JSON.
func writeRateLimited(w http.ResponseWriter, info ports.RateLimitStatus) {
	if info.TimeUntilReset > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(info.TimeUntilReset, 10))
	}
	writeJSON(w, http.StatusTooManyRequests, rateLimitError{
		Status:        "error",
		Code:          "RATE_LIMIT_EXCEEDED",
		Message:       "too many failed login attempts, please try again later",
		RateLimitInfo: info,
	})
}
