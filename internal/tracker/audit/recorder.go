// Package audit emits security-relevant events to a set of sinks, typically
// a JSON-lines log file plus the durable store. Emission is best effort and
// strictly isolated from business logic: a sink failure is logged and
// counted but never surfaces to the caller.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/idx"
)

// AnonymousActor is recorded when no authenticated identity is available,
// e.g. a failed login for an unknown email.
const AnonymousActor = "anonymous"

// Action names. These are stable identifiers queried by the admin audit
// listing; renaming one is a breaking change for stored history.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailed       = "login_failed"
	ActionLogout            = "logout"
	ActionTwoFactorEnabled  = "2fa_enabled"
	ActionTwoFactorDisabled = "2fa_disabled"
	ActionTwoFactorVerified = "2fa_verified"
	ActionTwoFactorFailed   = "2fa_failed"
	ActionPasswordChanged   = "password_changed"
)

// Entry is the caller-supplied portion of an audit event. Actor, request
// metadata, timestamp, and ID are filled in by the Recorder at emit time.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	Description  string
	Details      map[string]any
}

// Recorder fans audit events out to its sinks.
type Recorder struct {
	sinks   []Sink
	metrics metrics.Collector

	// Diag receives sink failure diagnostics. Distinct from the audit log
	// sink itself: this is operational logging, not the audit trail.
	diag *slog.Logger
}

func NewRecorder(diag *slog.Logger, collector metrics.Collector, sinks ...Sink) *Recorder {
	if diag == nil {
		diag = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Recorder{sinks: sinks, metrics: collector, diag: diag}
}

// Emit writes one event to every sink. It never returns an error and never
// panics; auditing must not break the operation being audited.
func (r *Recorder) Emit(ctx context.Context, e Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.diag.ErrorContext(ctx, "audit emit panicked", "panic", rec, "action", e.Action)
		}
	}()

	event := r.build(ctx, e)
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, event); err != nil {
			r.metrics.RecordAuditSinkFailure(sink.Name())
			r.diag.ErrorContext(ctx, "audit sink write failed",
				"sink", sink.Name(),
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
			continue
		}
		r.metrics.RecordAuditEvent(sink.Name())
	}
}

// EmitBulk records one event covering a batch of resources of the same type.
// The IDs are joined into the resource ID field and repeated as a structured
// detail for consumers that want the list form.
func (r *Recorder) EmitBulk(ctx context.Context, e Entry, resourceIDs []string) {
	e.ResourceID = strings.Join(resourceIDs, ",")
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details["resource_ids"] = resourceIDs
	e.Details["count"] = len(resourceIDs)
	r.Emit(ctx, e)
}

func (r *Recorder) build(ctx context.Context, e Entry) domain.AuditEvent {
	meta := httpx.MetaFromContext(ctx)
	if meta.RequestID == "" {
		// Events emitted outside an HTTP request still get a correlation ID.
		meta.RequestID = uuid.NewString()
	}

	actor := httpx.ActorID(ctx)
	if actor == "" {
		actor = AnonymousActor
	}

	userAgent := meta.UserAgent
	if meta.Client != "" {
		userAgent = meta.Client
	}

	return domain.AuditEvent{
		ID:           idx.New().String(),
		Timestamp:    time.Now().UTC(),
		ActorID:      actor,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Description:  e.Description,
		IPAddress:    meta.IP,
		UserAgent:    userAgent,
		RequestID:    meta.RequestID,
		Details:      e.Details,
	}
}

// classify maps an operation error onto a coarse category for the failure
// details, so audit consumers can aggregate without parsing messages.
func classify(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
