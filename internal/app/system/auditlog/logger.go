// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/store/audit"
	"github.com/felehub/felehub/internal/app/system/ratelimit"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout,
	// password changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Registry controls logging for aggregate mutations (organization,
	// user, network, mapping and wallet changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Registry string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
// A nil *Logger is a no-op, so tests and callers without auditing can pass
// nil.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.Organization != "" {
		fields = append(fields, zap.String("organization", event.Organization))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryRegistry:
		setting = l.config.Registry
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// Auth records an authentication event with request context.
func (l *Logger) Auth(ctx context.Context, r *http.Request, eventType, organization, username string, success bool, failureReason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		Organization:  organization,
		Actor:         username,
		IP:            ratelimit.ClientIP(r),
		Success:       success,
		FailureReason: failureReason,
	})
}

// Registry records a successful aggregate mutation. Failed mutations are
// already reported through the error path, so only successes are audited.
func (l *Logger) Registry(ctx context.Context, r *http.Request, eventType, organization, actor, target string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryRegistry,
		EventType:    eventType,
		Organization: organization,
		Actor:        actor,
		Target:       target,
		IP:           ratelimit.ClientIP(r),
		Success:      true,
		Details:      details,
	})
}
