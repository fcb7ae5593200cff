package utils

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

// LogEvent prints standardized log line with module/action/request_id.
// Keep messages summarized; never dump whole rows.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}

// NewRequestID returns an id used to correlate the log lines of one request
// or one CLI run.
func NewRequestID() string {
	return uuid.NewString()
}

type ctxKey struct{}

// WithRequestID attaches id to ctx for services that log on behalf of a
// request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns fallback when set, else the id attached to ctx.
func RequestID(ctx context.Context, fallback string) string {
	if fallback != "" || ctx == nil {
		return fallback
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
