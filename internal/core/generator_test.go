package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/session"
)

func newGenerator(mockLLM *extraction.MockLLMClient) *Generator {
	cfg := config.Default()
	cfg.Extraction.Prompt = "%s\n---\n%s"
	return NewGenerator(extraction.NewExtractor(mockLLM, cfg, nil), nil)
}

// respondByDocument answers with the JSON registered for the first key
// found in the prompt.
func respondByDocument(answers map[string]string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		for key, answer := range answers {
			if strings.Contains(prompt, key) {
				return answer, nil
			}
		}
		return "[]", nil
	}
}

func TestProcessDocumentsAccumulates(t *testing.T) {
	mockLLM := &extraction.MockLLMClient{GenerateFunc: respondByDocument(map[string]string{
		"bridge report": `[{"name": "Bridge", "entity_type": "Building", "description": "spans the river"}]`,
		"launch memo":   `[{"name": "Launch", "category": "事件"}]`,
	})}
	g := newGenerator(mockLLM)
	sess, err := session.New("Engineering")
	require.NoError(t, err)

	reports, err := g.ProcessDocuments(context.Background(), sess, []Document{
		{Name: "report.txt", Content: "bridge report"},
		{Name: "memo.txt", Content: "launch memo"},
	}, merge.Additive)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "report.txt", reports[0].BatchID)

	_, totals := sess.Snapshot()
	assert.Equal(t, 2, totals.Added)
	assert.Equal(t, 0, totals.Modified)
	assert.Equal(t, 0, totals.RemovalSuggested)

	doc := sess.Document()
	assert.True(t, doc.Has(model.NewKey(model.Building, "bridge")))
	assert.True(t, doc.Has(model.NewKey(model.Event, "launch")))
}

func TestProcessDocumentReplaceIsScopedToDocument(t *testing.T) {
	answers := map[string]string{
		"v1": `[{"name": "Bridge", "entity_type": "Building"}, {"name": "Tunnel", "entity_type": "Building"}]`,
		"other": `[{"name": "Launch", "entity_type": "Event"}]`,
		"v2": `[{"name": "Bridge", "entity_type": "Building"}]`,
	}
	g := newGenerator(&extraction.MockLLMClient{GenerateFunc: respondByDocument(answers)})
	sess, err := session.New("Engineering")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.ProcessDocument(ctx, sess, Document{Name: "a.txt", Content: "v1"}, merge.Additive)
	require.NoError(t, err)
	_, err = g.ProcessDocument(ctx, sess, Document{Name: "b.txt", Content: "other"}, merge.Additive)
	require.NoError(t, err)

	// a.txt no longer mentions the tunnel; b.txt's launch is out of scope
	report, err := g.ProcessDocument(ctx, sess, Document{Name: "a.txt", Content: "v2"}, merge.Replace)
	require.NoError(t, err)
	assert.Equal(t, []model.Key{model.NewKey(model.Building, "tunnel")}, report.RemovalKeys)
	assert.Equal(t, 3, sess.Document().Len())
}

func TestProcessDocumentsStopsOnFailure(t *testing.T) {
	mockLLM := &extraction.MockLLMClient{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "broken") {
			return "", errors.New("model offline")
		}
		return `[{"name": "Bridge", "entity_type": "Building"}]`, nil
	}}
	g := newGenerator(mockLLM)
	sess, err := session.New("Engineering")
	require.NoError(t, err)

	reports, err := g.ProcessDocuments(context.Background(), sess, []Document{
		{Name: "ok.txt", Content: "fine"},
		{Name: "bad.txt", Content: "broken"},
		{Name: "never.txt", Content: "fine"},
	}, merge.Additive)
	require.Error(t, err)
	assert.ErrorIs(t, err, extraction.ErrAllChunksFailed)
	assert.Len(t, reports, 1)
	assert.Len(t, sess.History(), 1)
}
