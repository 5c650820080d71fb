package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/textsnap/textsnap-server/internal/model"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// WriteError maps a domain error to its HTTP status and writes a JSON
// error body. Unauthenticated responses carry the expected credential
// scheme; rate-limit responses carry a Retry-After hint.
func WriteError(w http.ResponseWriter, err error) {
	var invalid *model.InvalidInputError
	var extraction *model.ExtractionError
	var limited *model.RateLimitError

	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limited)))
		writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.As(err, &invalid):
		writeDetail(w, http.StatusBadRequest, invalid.Reason)
	case errors.As(err, &extraction):
		writeDetail(w, http.StatusUnprocessableEntity, extraction.Error())
	case errors.Is(err, model.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "image request not found")
	case errors.Is(err, model.ErrStorageUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func retryAfterSeconds(limited *model.RateLimitError) int {
	seconds := int(math.Ceil(limited.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
