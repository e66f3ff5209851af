// Package merge folds a batch of extracted candidates into a schema document.
package merge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/normalize"
)

// ErrNilBase is returned when Merge is called without a base document.
var ErrNilBase = errors.New("nil base document")

// Mode controls whether a batch may suggest removals.
type Mode string

const (
	// Additive only adds and updates records.
	Additive Mode = "additive"
	// Replace treats the batch as the complete expected set and flags
	// every record it does not mention.
	Replace Mode = "replace"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Additive:
		return Additive, nil
	case Replace:
		return Replace, nil
	}
	return "", fmt.Errorf("unknown merge mode %q", s)
}

// DescriptionPolicy decides which description survives when a batch
// re-extracts a known record.
type DescriptionPolicy string

const (
	LastWriteWins DescriptionPolicy = "last-write-wins"
	LongestWins   DescriptionPolicy = "longest-wins"
)

func ParsePolicy(s string) (DescriptionPolicy, error) {
	switch DescriptionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", LastWriteWins:
		return LastWriteWins, nil
	case LongestWins:
		return LongestWins, nil
	}
	return "", fmt.Errorf("unknown description policy %q", s)
}

// Batch is one pass of candidates, usually everything extracted from one
// document.
type Batch struct {
	ID         string            `json:"batch_id"`
	Mode       Mode              `json:"mode"`
	Candidates []model.Candidate `json:"candidates"`
	// Supersedes limits a Replace pass to records contributed only by these
	// batches (and this one). Empty means every record is eligible.
	Supersedes []string `json:"supersedes,omitempty"`
}

type Merger struct {
	Policy DescriptionPolicy
	Logger *slog.Logger
}

func NewMerger(policy DescriptionPolicy, logger *slog.Logger) *Merger {
	if policy == "" {
		policy = LastWriteWins
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Merger{Policy: policy, Logger: logger}
}

// Merge applies b to a copy of base and returns the copy with a report of
// what changed. base is never modified. Candidates that fail normalization
// are skipped and reported; they never fail the merge.
func (m *Merger) Merge(base *model.SchemaDocument, b Batch) (*model.SchemaDocument, model.ChangeReport, error) {
	report := model.ChangeReport{BatchID: b.ID}
	if base == nil {
		return nil, report, ErrNilBase
	}
	if strings.TrimSpace(b.ID) == "" {
		return nil, report, model.ErrEmptyBatchID
	}
	mode, err := ParseMode(string(b.Mode))
	if err != nil {
		return nil, report, err
	}

	order, incoming := m.collect(b, &report)
	out := base.Clone()

	for _, k := range order {
		rec := incoming[k]
		current, ok := out.Get(k)
		if !ok {
			rec.AddProvenance(b.ID)
			if err := out.Insert(rec); err != nil {
				return nil, report, fmt.Errorf("failed to insert %s: %w", k, err)
			}
			report.RecordAdded(k)
			m.Logger.Debug("entity added", "batch", b.ID, "key", k.String())
			continue
		}

		resolved := m.resolve(current, rec)
		if current.SameContent(resolved) {
			// differences in case or property order only
			resolved = current
		} else {
			report.RecordModified(k)
			m.Logger.Debug("entity modified", "batch", b.ID, "key", k.String())
		}
		resolved.AddProvenance(b.ID)
		resolved.RemovalSuggested = false
		if err := out.Replace(resolved); err != nil {
			return nil, report, fmt.Errorf("failed to update %s: %w", k, err)
		}
	}

	if mode == Replace {
		m.flagAbsent(out, b, incoming, &report)
	}

	m.Logger.Info("batch merged",
		"batch", b.ID,
		"mode", string(mode),
		"added", report.Added,
		"modified", report.Modified,
		"removal_suggested", report.RemovalSuggested,
		"skipped", report.Skipped,
	)
	return out, report, nil
}

// collect normalizes the candidates and collapses repeated keys to their
// last occurrence, keeping the position of the first.
func (m *Merger) collect(b Batch, report *model.ChangeReport) ([]model.Key, map[model.Key]*model.EntityRecord) {
	var order []model.Key
	incoming := make(map[model.Key]*model.EntityRecord)
	for i, c := range b.Candidates {
		rec, err := normalize.Normalize(c)
		if err != nil {
			report.RecordSkipped(model.SkipNotice{
				BatchID:    b.ID,
				Index:      i,
				EntityType: c.EntityType,
				Name:       c.Name,
				Reason:     err.Error(),
			})
			m.Logger.Warn("candidate skipped", "batch", b.ID, "index", i, "error", err)
			continue
		}
		k := rec.Key()
		if _, seen := incoming[k]; !seen {
			order = append(order, k)
		}
		incoming[k] = rec
	}
	return order, incoming
}

// resolve combines an existing record with a re-extraction of it. Identity
// fields (type, name, label) stay as they are. The re-extraction is
// authoritative for semantic type and properties; the description goes
// through the configured policy.
func (m *Merger) resolve(current, incoming *model.EntityRecord) *model.EntityRecord {
	out := current.Clone()
	out.Description = m.description(current.Description, incoming.Description)
	out.SemanticType = incoming.SemanticType
	out.Properties = slices.Clone(incoming.Properties)
	return out
}

func (m *Merger) description(current, incoming string) string {
	if incoming == "" {
		return current
	}
	if m.Policy == LongestWins && utf8.RuneCountInString(current) >= utf8.RuneCountInString(incoming) {
		return current
	}
	return incoming
}

func (m *Merger) flagAbsent(out *model.SchemaDocument, b Batch, incoming map[model.Key]*model.EntityRecord, report *model.ChangeReport) {
	var scope []string
	if len(b.Supersedes) > 0 {
		scope = append(slices.Clone(b.Supersedes), b.ID)
	}
	for _, k := range out.Keys() {
		if _, ok := incoming[k]; ok {
			continue
		}
		rec, _ := out.Get(k)
		if rec.RemovalSuggested || !inScope(rec, scope) {
			continue
		}
		rec.RemovalSuggested = true
		// Replace cannot fail for a key taken from the document itself.
		_ = out.Replace(rec)
		report.RecordRemovalSuggested(k)
		m.Logger.Debug("entity flagged for removal", "batch", b.ID, "key", k.String())
	}
}

func inScope(rec *model.EntityRecord, scope []string) bool {
	if scope == nil {
		return true
	}
	if len(rec.Provenance) == 0 {
		return false
	}
	for _, id := range rec.Provenance {
		if !slices.Contains(scope, id) {
			return false
		}
	}
	return true
}
