// Package audit emits append-only audit events for actions that change who
// can see or sign what: account provisioning, terminal document transitions,
// administrative corrections and tenant-mismatch assertions.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/obs"
)

type requestIDKey struct{}

// WithRequestID stores the request identifier so every audit event written
// during this request can be correlated with its access log line.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// LogEvent appends one audit event to the process log. The entry is enriched
// with the request id and acting principal when the context carries them.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	if event = strings.TrimSpace(event); event == "" {
		return errors.New("event name is required")
	}

	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"type":   "audit",
		"event":  event,
		"fields": map[string]any{},
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		entry["request_id"] = id
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok && !p.IsAnonymous() {
		entry["subject_id"] = p.SubjectID
		entry["role"] = p.Role.String()
	}
	if len(fields) > 0 {
		// Copy so later mutation by the caller cannot rewrite history.
		cp := make(map[string]any, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		entry["fields"] = cp
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(line))
	return nil
}
