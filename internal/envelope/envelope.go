// Package envelope writes the uniform {status, data, message} response body.
package envelope

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/devmsrajput/yt-backend/internal/logging"
)

// Response is the body of every API response.
type Response struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// Write serialises data and message with the given status.
func Write(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	body := Response{Status: status, Data: data, Message: message}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encode response body", "status", status, "error", err)
		return
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", message)
	}
}

// Error writes a failure envelope with no data.
func Error(ctx context.Context, w http.ResponseWriter, status int, message string) {
	Write(ctx, w, status, nil, message)
}
