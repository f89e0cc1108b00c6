package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeAccessGranted         = "access_granted"
	TypeAccessDenied          = "access_denied"
	TypeAccessUnauthenticated = "access_unauthenticated"
	TypeRoleFlagsChanged      = "role_flags_changed"
	TypeMemberCreated         = "member_created"
	TypeSignedIn              = "signed_in"
	TypeSignedOut             = "signed_out"
)

// Event represents an auditable action
type Event struct {
	ID        string
	Type      string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates an audit logger on top of l. A nil l uses the
// process default.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l.With(slog.String("component", "audit"))}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	attrs := []slog.Attr{
		slog.String("audit_id", event.ID),
		slog.String("audit_type", event.Type),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		group := make([]any, 0, len(event.Metadata))
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, "AUDIT_EVENT", attrs...)
}

var secretMarkers = []string{"password", "secret", "token", "key", "authorization", "hash", "credential"}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretMarkers {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Discard is a Logger that drops every event.
type Discard struct{}

// Log implements Logger
func (Discard) Log(context.Context, Event) {}
