package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one catalog API call
func LogRequest(l Logger, method string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("catalog request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("catalog request client error", fields)
	default:
		l.ErrorWithFields("catalog request server error", fields)
	}
}

// LogRateLimit logs a rate limited call and the backoff chosen for it
func LogRateLimit(l Logger, call string, attempt int, delay time.Duration) {
	l.WithFields(map[string]interface{}{
		"call":     call,
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
		"action":   "rate_limited",
	}).Warn("rate limit reached, backing off")
}

// LogDownload logs the outcome of one product's photo downloads
func LogDownload(l Logger, productID int64, outcome string, downloaded, failed int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"product_id": productID,
		"outcome":    outcome,
		"downloaded": downloaded,
		"failed":     failed,
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("product photos failed")
	case outcome == "skipped":
		entry.Debug("product photos already present")
	default:
		entry.Debug("product photos downloaded")
	}
}

// LogSyncProgress logs progress of one sync stage
func LogSyncProgress(l Logger, stage string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"stage":      stage,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("sync progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
