package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/pkg/httpx"
)

type memorySink struct {
	name string
	fail error

	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Append(ctx context.Context, e domain.AuditEvent) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) all() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEmitWritesEverySink(t *testing.T) {
	t.Parallel()

	first := &memorySink{name: "first"}
	second := &memorySink{name: "second"}
	rec := NewRecorder(discardLogger(), nil, first, second)

	ctx := httpx.WithMeta(context.Background(), httpx.Meta{
		RequestID: "req-42",
		IP:        "10.0.0.1",
		UserAgent: "curl/8.0",
	})
	ctx = httpx.WithActor(ctx, "user-1", "user")

	rec.Emit(ctx, Entry{
		Action:      ActionLoginSuccess,
		Description: "signed in",
	})

	for _, sink := range []*memorySink{first, second} {
		events := sink.all()
		require.Len(t, events, 1)
		e := events[0]
		require.Equal(t, "user-1", e.ActorID)
		require.Equal(t, ActionLoginSuccess, e.Action)
		require.Equal(t, "req-42", e.RequestID)
		require.Equal(t, "10.0.0.1", e.IPAddress)
		require.NotEmpty(t, e.ID)
		require.False(t, e.Timestamp.IsZero())
	}

	// Both sinks saw the same event identity.
	require.Equal(t, first.all()[0].ID, second.all()[0].ID)
}

func TestEmitSinkFailureIsIsolated(t *testing.T) {
	t.Parallel()

	broken := &memorySink{name: "broken", fail: errors.New("disk full")}
	healthy := &memorySink{name: "healthy"}
	rec := NewRecorder(discardLogger(), nil, broken, healthy)

	rec.Emit(context.Background(), Entry{Action: ActionLogout})

	require.Empty(t, broken.all())
	require.Len(t, healthy.all(), 1)
}

func TestEmitAnonymousActorAndGeneratedRequestID(t *testing.T) {
	t.Parallel()

	sink := &memorySink{name: "mem"}
	rec := NewRecorder(discardLogger(), nil, sink)

	rec.Emit(context.Background(), Entry{Action: ActionLoginFailed})

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, AnonymousActor, events[0].ActorID)
	require.NotEmpty(t, events[0].RequestID)
}

func TestEmitDuplicateEventsGetDistinctIDs(t *testing.T) {
	t.Parallel()

	sink := &memorySink{name: "mem"}
	rec := NewRecorder(discardLogger(), nil, sink)

	entry := Entry{Action: ActionLoginSuccess}
	rec.Emit(context.Background(), entry)
	rec.Emit(context.Background(), entry)

	events := sink.all()
	require.Len(t, events, 2)
	require.NotEqual(t, events[0].ID, events[1].ID)
}

func TestEmitBulkJoinsResourceIDs(t *testing.T) {
	t.Parallel()

	sink := &memorySink{name: "mem"}
	rec := NewRecorder(discardLogger(), nil, sink)

	rec.EmitBulk(context.Background(), Entry{
		Action:       "transactions_deleted",
		ResourceType: "transaction",
	}, []string{"a", "b", "c"})

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, "a,b,c", events[0].ResourceID)
	require.Equal(t, []string{"a", "b", "c"}, events[0].Details["resource_ids"])
	require.Equal(t, 3, events[0].Details["count"])
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	rec := NewRecorder(discardLogger(), nil, sink)

	rec.Emit(context.Background(), Entry{Action: ActionLoginSuccess})
	rec.Emit(context.Background(), Entry{Action: ActionLogout})

	scanner := bufio.NewScanner(&buf)
	var actions []string
	for scanner.Scan() {
		var e domain.AuditEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		actions = append(actions, e.Action)
	}
	require.Equal(t, []string{ActionLoginSuccess, ActionLogout}, actions)
}
