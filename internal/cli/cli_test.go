package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
	"github.com/shawnsang/auto-openspg-schema/internal/llm"
	"github.com/shawnsang/auto-openspg-schema/internal/store"
)

// memStore is an in-memory stand-in for the graph store.
type memStore struct {
	docs map[string]*model.SchemaDocument
}

func (m *memStore) Load(_ context.Context, namespace string) (*model.SchemaDocument, error) {
	doc, ok := m.docs[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %s: %w", namespace, model.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (m *memStore) Save(_ context.Context, doc *model.SchemaDocument) error {
	m.docs[doc.Namespace()] = doc.Clone()
	return nil
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args inside a scratch schema dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SCHEMA_DIR", filepath.Join(dir, "schemas"))
	t.Setenv("SCHEMA_NAMESPACE", "Engineering")
	t.Setenv("LLM_PROVIDER", "ollama")

	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "openspg-schema version test-version-1.0.0")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"merge", "extract", "export", "publish", "pull", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestMergeCmd_DisjointFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `[{"name": "Bridge", "entity_type": "Building"}]`)
	b := writeFile(t, dir, "b.json", `{"entities": [{"name": "Pump", "category": "设备和组件"}]}`)
	out := filepath.Join(dir, "out.schema")

	stdout, err := run(t, dir, "merge", "--out", out, a, b)
	require.NoError(t, err)
	assert.Contains(t, stdout, "a.json: added=1")
	assert.Contains(t, stdout, "b.json: added=1")
	assert.Contains(t, stdout, "total: added=2 modified=0 removal_suggested=0")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := schema.Parse(string(data), "Engineering")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Len())
	assert.True(t, doc.Has(model.NewKey(model.ArtificialObject, "pump")))
}

func TestMergeCmd_ReplaceAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json", `[{"name": "Bridge", "entity_type": "Building"}, {"name": "Tunnel", "entity_type": "Building"}]`)

	_, err := run(t, dir, "merge", doc)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "schemas", "Engineering.json"))
	require.NoError(t, err)

	writeFile(t, dir, "doc.json", `[{"name": "Bridge", "entity_type": "Building"}]`)
	stdout, err := run(t, dir, "merge", "--mode", "replace", doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "doc.json: added=0 modified=0 removal_suggested=1")
	assert.Contains(t, stdout, "1 entities suggested for removal")
	assert.Contains(t, stdout, "Building/tunnel")

	stdout, err = run(t, dir, "merge", "--mode", "replace", "--confirm-removals", doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed=1")

	stored, err := store.NewFileStore(filepath.Join(dir, "schemas"), schema.FormatJSON).Load(context.Background(), "Engineering")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len())
}

func TestMergeCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `not json`)

	_, err := run(t, dir, "merge")
	assert.Error(t, err)

	_, err = run(t, dir, "merge", bad)
	assert.ErrorContains(t, err, "bad.json")

	_, err = run(t, dir, "merge", "--namespace", "My Project", bad)
	assert.ErrorIs(t, err, model.ErrInvalidNamespace)

	_, err = run(t, dir, "merge", "--mode", "sideways", bad)
	assert.ErrorContains(t, err, "unknown merge mode")

	_, err = run(t, dir, "--config", filepath.Join(dir, "missing.toml"), "merge", bad)
	assert.ErrorContains(t, err, "missing.toml")
}

func TestExtractCmd(t *testing.T) {
	mockLLM := &extraction.MockLLMClient{Response: `[{"name": "主梁", "category": "设备和组件", "description": "承重构件"}]`}
	original := newLLMClient
	newLLMClient = func(context.Context, config.LLMConfig, *slog.Logger) (llm.LLMClient, error) {
		return mockLLM, nil
	}
	defer func() { newLLMClient = original }()

	dir := t.TempDir()
	doc := writeFile(t, dir, "bridge.txt", "主梁采用钢结构。")
	out := filepath.Join(dir, "out.yaml")

	stdout, err := run(t, dir, "extract", "--out", out, doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "bridge.txt: added=1")
	assert.Equal(t, 1, mockLLM.Calls())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	exported, err := schema.Decode(data, schema.FormatYAML, "Engineering")
	require.NoError(t, err)
	rec, ok := exported.Get(model.NewKey(model.ArtificialObject, "主梁"))
	require.True(t, ok)
	assert.Equal(t, "承重构件", rec.Description)
	assert.Equal(t, []string{"bridge.txt"}, rec.Provenance)
}

func TestExportCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.schema", "namespace Demo\n\nBridge(桥梁): EntityType\n    category: Building\n    properties:\n        description(描述): Text\n")

	stdout, err := run(t, dir, "export", "--format", "json", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"namespace": "Demo"`)
	assert.Contains(t, stdout, `"label": "桥梁"`)

	_, err = run(t, dir, "export", "--format", "xml", path)
	assert.ErrorContains(t, err, "unknown schema format")

	_, err = run(t, dir, "export")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPublishAndPull(t *testing.T) {
	mem := &memStore{docs: map[string]*model.SchemaDocument{}}
	original := openGraphStore
	openGraphStore = func(context.Context, config.MemgraphConfig, *slog.Logger) (store.Store, func(), error) {
		return mem, func() {}, nil
	}
	defer func() { openGraphStore = original }()

	dir := t.TempDir()
	path := writeFile(t, dir, "demo.schema", "namespace Demo\n\nBridge(桥梁): EntityType\n    category: Building\n    properties:\n        description(描述): Text\n")

	stdout, err := run(t, dir, "publish", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Published 1 entities to namespace Demo")

	out := filepath.Join(dir, "pulled.schema")
	stdout, err = run(t, dir, "pull", "--out", out, "Demo")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pulled 1 entities")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bridge(桥梁): EntityType")

	_, err = run(t, dir, "pull", "Missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
