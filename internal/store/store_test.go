package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
	"github.com/shawnsang/auto-openspg-schema/internal/driver"
)

func sampleDocument(t *testing.T) *model.SchemaDocument {
	t.Helper()
	doc := model.NewSchemaDocument("Engineering")
	require.NoError(t, doc.Insert(&model.EntityRecord{
		Type:         model.Person,
		Name:         "张工",
		Label:        "张工",
		Description:  "项目总工程师",
		SemanticType: "人员",
		Properties:   []model.Property{{Name: "职称", Label: "职称", Kind: model.KindText}},
		Provenance:   []string{"design.md"},
	}))
	require.NoError(t, doc.Insert(&model.EntityRecord{
		Type:             model.Concept,
		Name:             "预应力",
		Label:            "预应力",
		RemovalSuggested: true,
	}))
	return doc
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, format := range []schema.Format{schema.FormatText, schema.FormatJSON, schema.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			s := NewFileStore(t.TempDir(), format)
			doc := sampleDocument(t)
			require.NoError(t, s.Save(ctx, doc))

			_, err := os.Stat(s.Path("Engineering"))
			require.NoError(t, err)

			loaded, err := s.Load(ctx, "Engineering")
			require.NoError(t, err)
			assert.Equal(t, schema.Serialize(doc), schema.Serialize(loaded))
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "")
	require.NoError(t, s.Save(context.Background(), sampleDocument(t)))
	require.NoError(t, s.Save(context.Background(), sampleDocument(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Engineering.schema", entries[0].Name())
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), schema.FormatText)

	_, err := s.Load(ctx, "Missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Load(ctx, "../etc")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "Broken.schema"), []byte("namespace Broken\nnot a schema line\n"), 0o644))
	_, err = s.Load(ctx, "Broken")
	assert.ErrorIs(t, err, model.ErrMalformedSchema)

	err = s.Save(ctx, model.NewSchemaDocument("a/b"))
	assert.ErrorIs(t, err, model.ErrInvalidNamespace)

	err = s.Save(ctx, model.NewSchemaDocument("My Project"))
	assert.ErrorIs(t, err, model.ErrInvalidNamespace)
}

func TestGraphStoreSave(t *testing.T) {
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.DeleteStaleSchemaTypesQuery: singleRecord([]string{"deleted"}, int64(3)),
	}}
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	s := NewGraphStore(mock, nil)
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Save(context.Background(), sampleDocument(t)))
	assert.Equal(t, 1, mock.Transactions)
	assert.Equal(t, mock.Executed, mock.Committed)

	upserts := mock.queries(driver.SaveSchemaTypeQuery)
	require.Len(t, upserts, 2)
	first := upserts[0].Params
	assert.Equal(t, "Engineering", first["namespace"])
	assert.Equal(t, "Person/张工", first["key"])
	assert.Equal(t, "Person", first["entity_type"])
	assert.Equal(t, "项目总工程师", first["description"])
	assert.JSONEq(t, `[{"name":"职称","label":"职称","kind":"Text"}]`, first["properties"].(string))
	assert.Equal(t, []string{"design.md"}, first["provenance"])
	assert.Equal(t, int64(0), first["position"])
	assert.Equal(t, now, first["updated_at"])

	second := upserts[1].Params
	assert.Equal(t, true, second["removal_suggested"])
	assert.Equal(t, []string{}, second["provenance"])
	assert.Equal(t, int64(1), second["position"])

	stale := mock.queries(driver.DeleteStaleSchemaTypesQuery)
	require.Len(t, stale, 1)
	assert.Equal(t, []string{"Person/张工", "Concept/预应力"}, stale[0].Params["keys"])

	ns := mock.queries(driver.SaveSchemaNamespaceQuery)
	require.Len(t, ns, 1)
	assert.Equal(t, int64(2), ns[0].Params["entity_count"])

	// Namespace node is written last
	assert.Equal(t, driver.SaveSchemaNamespaceQuery, mock.Executed[len(mock.Executed)-1].Query)
}

func TestGraphStoreSaveError(t *testing.T) {
	mock := &MockDriver{Err: errors.New("connection refused")}
	err := NewGraphStore(mock, nil).Save(context.Background(), sampleDocument(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, mock.Executed, 1)
	assert.Empty(t, mock.Committed)
}

func TestGraphStoreSaveIsAllOrNothing(t *testing.T) {
	// The stale delete fails after both upserts ran in the same transaction.
	mock := &MockDriver{FailOn: driver.DeleteStaleSchemaTypesQuery}
	err := NewGraphStore(mock, nil).Save(context.Background(), sampleDocument(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Engineering")

	assert.Equal(t, 1, mock.Transactions)
	assert.Len(t, mock.queries(driver.SaveSchemaTypeQuery), 2)
	assert.Empty(t, mock.queries(driver.SaveSchemaNamespaceQuery))
	assert.Empty(t, mock.Committed)
}

func TestGraphStoreLoad(t *testing.T) {
	keys := []string{"entity_type", "name", "label", "description", "semantic_type", "properties", "provenance", "removal_suggested"}
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetSchemaNamespaceQuery: singleRecord([]string{"name", "entity_count"}, "Engineering", int64(2)),
		driver.LoadSchemaTypesQuery: {
			Keys: keys,
			Records: []*neo4j.Record{
				{Keys: keys, Values: []any{"Person", "张工", "张工", "项目总工程师", "人员", `[{"name":"职称","label":"职称","kind":"Text"}]`, []any{"design.md"}, false}},
				{Keys: keys, Values: []any{"Concept", "预应力", "", nil, nil, "", []any{}, true}},
			},
		},
	}}

	doc, err := NewGraphStore(mock, nil).Load(context.Background(), "Engineering")
	require.NoError(t, err)
	assert.Equal(t, schema.Serialize(sampleDocument(t)), schema.Serialize(doc))

	rec, ok := doc.Get(model.NewKey(model.Person, "张工"))
	require.True(t, ok)
	assert.Equal(t, []string{"design.md"}, rec.Provenance)
}

func TestGraphStoreLoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGraphStore(&MockDriver{}, nil).Load(ctx, "Missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	keys := []string{"entity_type", "name"}
	mock := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetSchemaNamespaceQuery: singleRecord([]string{"name"}, "Engineering"),
		driver.LoadSchemaTypesQuery:    singleRecord(keys, "Vehicle", "主梁"),
	}}
	_, err = NewGraphStore(mock, nil).Load(ctx, "Engineering")
	assert.ErrorIs(t, err, model.ErrInvalidEntityType)
}
