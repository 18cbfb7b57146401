package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lifestyle-api/internal/service"
	"lifestyle-api/internal/util"
)

const maxBodyBytes = 1 << 20

// Public error messages. Clients match on these strings.
const (
	msgInvalidCredentials  = "Invalid credentials"
	msgAccountSuspended    = "Account suspended"
	msgInvalidEmail        = "Invalid email address"
	msgInvalidReceipt      = "Invalid receipt"
	msgUnsupportedPlatform = "Unsupported platform"
	msgMissingFields       = "Missing required fields"
	msgUserExists          = "User already exists"
	msgTooManyRequests     = "Too many requests"
	msgUnauthorized        = "Unauthorized"
	msgForbidden           = "Forbidden"
	msgInvalidBody         = "Invalid request body"
	msgInternal            = "Internal server error"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status *int   `json:"status,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	respondWithJSON(w, logger, statusCode, errorResponse{Error: message})
}

// respondWithServiceError maps the service error taxonomy to a status and
// a public message. Anything unrecognised is a logged 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		validation     *service.ValidationError
		invalidReceipt *service.InvalidReceiptError
		notImplemented *service.NotImplementedError
		rateLimited    *service.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		respondWithError(w, logger, http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, logger, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrAccountSuspended):
		respondWithError(w, logger, http.StatusForbidden, msgAccountSuspended)
	case errors.As(err, &invalidReceipt):
		status := invalidReceipt.Status
		respondWithJSON(w, logger, http.StatusBadRequest, errorResponse{Error: msgInvalidReceipt, Status: &status})
	case errors.Is(err, service.ErrUnsupportedPlatform):
		respondWithError(w, logger, http.StatusBadRequest, msgUnsupportedPlatform)
	case errors.As(err, &notImplemented):
		respondWithError(w, logger, http.StatusNotImplemented, notImplemented.Message)
	case errors.Is(err, service.ErrUserAlreadyExists):
		respondWithError(w, logger, http.StatusConflict, msgUserExists)
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, logger, http.StatusForbidden, msgForbidden)
	case errors.As(err, &rateLimited):
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondWithError(w, logger, http.StatusTooManyRequests, msgTooManyRequests)
	default:
		logger.Error("Unhandled error",
			util.String("method", r.Method),
			util.String("path", r.URL.Path),
			util.ErrorField(err))
		respondWithError(w, logger, http.StatusInternalServerError, msgInternal)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func requestMeta(r *http.Request) service.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return service.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
