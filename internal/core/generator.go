package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/session"
)

// Document is one uploaded text. Name doubles as the batch ID, so a
// re-processed document is recognised in provenance.
type Document struct {
	Name    string
	Content string
}

// Generator turns documents into merge batches.
type Generator struct {
	Extractor *extraction.Extractor
	Logger    *slog.Logger
}

func NewGenerator(extractor *extraction.Extractor, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		Extractor: extractor,
		Logger:    logger,
	}
}

// ProcessDocument extracts doc and merges the result into sess as one
// batch. In Replace mode only records that came from earlier versions of the
// same document may be flagged.
func (g *Generator) ProcessDocument(ctx context.Context, sess *session.Session, doc Document, mode merge.Mode) (model.ChangeReport, error) {
	res, err := g.Extractor.ExtractDocument(ctx, doc.Content)
	if err != nil {
		return model.ChangeReport{}, fmt.Errorf("failed to extract %s: %w", doc.Name, err)
	}

	batch := merge.Batch{
		ID:         doc.Name,
		Mode:       mode,
		Candidates: res.Candidates,
	}
	if mode == merge.Replace && doc.Name != "" {
		batch.Supersedes = []string{doc.Name}
	}

	report, err := sess.AddBatch(batch)
	if err != nil {
		return report, err
	}
	g.Logger.Info("document processed",
		"document", doc.Name,
		"chunks", res.Chunks,
		"failed_chunks", res.FailedChunks,
		"candidates", len(res.Candidates),
		"added", report.Added,
		"modified", report.Modified,
		"removal_suggested", report.RemovalSuggested,
	)
	return report, nil
}

// ProcessDocuments handles docs one after another in the given order and
// stops at the first failure. Reports of the documents merged so far are
// returned either way.
func (g *Generator) ProcessDocuments(ctx context.Context, sess *session.Session, docs []Document, mode merge.Mode) ([]model.ChangeReport, error) {
	reports := make([]model.ChangeReport, 0, len(docs))
	for _, doc := range docs {
		report, err := g.ProcessDocument(ctx, sess, doc, mode)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
