package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
)

// Sink receives emitted audit events. Each sink is written independently; a
// failing sink never blocks the others.
type Sink interface {
	// Name identifies the sink in diagnostics and metrics labels.
	Name() string

	Append(ctx context.Context, e domain.AuditEvent) error
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Name() string { return "log" }

func (s *JSONWriterSink) Append(ctx context.Context, e domain.AuditEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}

// StoreSink appends events to the durable audit table. Each event gets its
// own transaction so one bad write cannot poison a batch.
type StoreSink struct {
	store store.Store
}

func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Append(ctx context.Context, e domain.AuditEvent) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.AuditEvents().Append(ctx, e)
	})
}
