// Package session holds the schema a user builds up over several merge
// passes.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
)

// Session owns one evolving document and the running totals of every batch
// merged into it. Calls are serialized, so batches apply in the order they
// are submitted.
type Session struct {
	mu      sync.Mutex
	doc     *model.SchemaDocument
	merger  *merge.Merger
	logger  *slog.Logger
	totals  model.ChangeReport
	history []model.ChangeReport

	// BatchIDGenerator names batches submitted without an ID.
	BatchIDGenerator func() string
}

type Option func(*Session)

func WithMerger(m *merge.Merger) Option {
	return func(s *Session) { s.merger = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithBatchIDGenerator(gen func() string) Option {
	return func(s *Session) { s.BatchIDGenerator = gen }
}

// New starts a session on an empty document.
func New(namespace string, opts ...Option) (*Session, error) {
	if err := model.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	return newSession(model.NewSchemaDocument(namespace), opts), nil
}

// FromSchema starts a session on a previously accepted schema.
func FromSchema(text, namespace string, opts ...Option) (*Session, error) {
	doc, err := schema.Parse(text, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base schema: %w", err)
	}
	return newSession(doc, opts), nil
}

// FromDocument starts a session on doc. The session keeps its own copy.
func FromDocument(doc *model.SchemaDocument, opts ...Option) (*Session, error) {
	if err := model.ValidateNamespace(doc.Namespace()); err != nil {
		return nil, err
	}
	return newSession(doc.Clone(), opts), nil
}

func newSession(doc *model.SchemaDocument, opts []Option) *Session {
	s := &Session{
		doc:              doc,
		BatchIDGenerator: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.merger == nil {
		s.merger = merge.NewMerger(merge.LastWriteWins, s.logger)
	}
	return s
}

func (s *Session) Namespace() string { return s.doc.Namespace() }

// AddBatch merges b into the held document. On error the document and the
// totals are left as they were.
func (s *Session) AddBatch(b merge.Batch) (model.ChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(b.ID) == "" {
		b.ID = s.BatchIDGenerator()
	}
	next, report, err := s.merger.Merge(s.doc, b)
	if err != nil {
		return report, fmt.Errorf("failed to merge batch %s: %w", b.ID, err)
	}
	s.doc = next
	s.record(report)
	return report, nil
}

// Snapshot returns the current schema text and the cumulative report.
func (s *Session) Snapshot() (string, model.ChangeReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.Serialize(s.doc), s.totalsCopy()
}

// Document returns a copy of the held document.
func (s *Session) Document() *model.SchemaDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Totals returns the cumulative report.
func (s *Session) Totals() model.ChangeReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsCopy()
}

// History returns one report per applied step, oldest first.
func (s *Session) History() []model.ChangeReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) PendingRemovals() []model.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Flagged()
}

// ConfirmRemovals deletes the given flagged records, or every flagged record
// when no keys are passed. Either all keys are removed or none: an unknown
// key fails with ErrNotFound and an unflagged one with ErrNotFlagged.
func (s *Session) ConfirmRemovals(keys ...model.Key) (model.ChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		keys = s.doc.Flagged()
	}
	for _, k := range keys {
		rec, ok := s.doc.Get(k)
		if !ok {
			return model.ChangeReport{}, fmt.Errorf("failed to confirm removal of %s: %w", k, model.ErrNotFound)
		}
		if !rec.RemovalSuggested {
			return model.ChangeReport{}, fmt.Errorf("failed to confirm removal of %s: %w", k, model.ErrNotFlagged)
		}
	}

	next := s.doc.Clone()
	var report model.ChangeReport
	for _, k := range keys {
		if next.Remove(k) {
			report.RecordRemoved(k)
		}
	}
	s.doc = next
	if !report.IsZero() {
		s.record(report)
	}
	s.logger.Info("removals confirmed", "namespace", s.doc.Namespace(), "removed", report.Removed)
	return report, nil
}

func (s *Session) record(report model.ChangeReport) {
	s.totals.Accumulate(report)
	s.history = append(s.history, report)
}

func (s *Session) totalsCopy() model.ChangeReport {
	t := s.totals
	t.AddedKeys = slices.Clone(t.AddedKeys)
	t.ModifiedKeys = slices.Clone(t.ModifiedKeys)
	t.RemovalKeys = slices.Clone(t.RemovalKeys)
	t.RemovedKeys = slices.Clone(t.RemovedKeys)
	t.Skips = slices.Clone(t.Skips)
	return t
}
