package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/driver"
)

// GraphStore publishes documents as :SchemaType nodes, one per record, next
// to a :SchemaNamespace node. Nodes of records no longer in the document are
// deleted on save.
type GraphStore struct {
	Driver driver.GraphDriver
	Logger *slog.Logger
	Now    func() time.Time
}

func NewGraphStore(d driver.GraphDriver, logger *slog.Logger) *GraphStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GraphStore{
		Driver: d,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Save replaces the namespace's nodes with doc in one write transaction, so a
// failed save leaves the previous version in place.
func (s *GraphStore) Save(ctx context.Context, doc *model.SchemaDocument) error {
	if err := checkNamespace(doc.Namespace()); err != nil {
		return err
	}
	now := s.Now()
	entities := doc.Entities()
	keys := make([]string, 0, len(entities))
	stmts := make([]driver.Statement, 0, len(entities)+2)

	for i, rec := range entities {
		props, err := json.Marshal(rec.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties of %s: %w", rec.Key(), err)
		}
		provenance := rec.Provenance
		if provenance == nil {
			provenance = []string{}
		}
		key := rec.Key().String()
		stmts = append(stmts, driver.Statement{Query: driver.SaveSchemaTypeQuery, Params: map[string]interface{}{
			"namespace":         doc.Namespace(),
			"key":               key,
			"entity_type":       string(rec.Type),
			"name":              rec.Name,
			"label":             rec.Label,
			"description":       rec.Description,
			"semantic_type":     rec.SemanticType,
			"properties":        string(props),
			"provenance":        provenance,
			"removal_suggested": rec.RemovalSuggested,
			"position":          int64(i),
			"updated_at":        now,
		}})
		keys = append(keys, key)
	}

	staleAt := len(stmts)
	stmts = append(stmts,
		driver.Statement{Query: driver.DeleteStaleSchemaTypesQuery, Params: map[string]interface{}{
			"namespace": doc.Namespace(),
			"keys":      keys,
		}},
		driver.Statement{Query: driver.SaveSchemaNamespaceQuery, Params: map[string]interface{}{
			"namespace":    doc.Namespace(),
			"entity_count": int64(len(entities)),
			"updated_at":   now,
		}},
	)

	results, err := s.Driver.ExecuteWrite(ctx, stmts)
	if err != nil {
		return fmt.Errorf("failed to publish schema %s: %w", doc.Namespace(), err)
	}
	deleted := int64(0)
	if staleAt < len(results) && len(results[staleAt].Records) > 0 {
		deleted, _ = intValue(results[staleAt].Records[0], "deleted")
	}

	s.Logger.Info("schema published", "namespace", doc.Namespace(), "entities", len(entities), "deleted", deleted)
	return nil
}

func (s *GraphStore) Load(ctx context.Context, namespace string) (*model.SchemaDocument, error) {
	if err := checkNamespace(namespace); err != nil {
		return nil, err
	}
	params := map[string]interface{}{"namespace": namespace}

	ns, err := s.Driver.ExecuteQuery(ctx, driver.GetSchemaNamespaceQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to look up namespace: %w", err)
	}
	if len(ns.Records) == 0 {
		return nil, fmt.Errorf("namespace %s: %w", namespace, model.ErrNotFound)
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.LoadSchemaTypesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema types: %w", err)
	}

	doc := model.NewSchemaDocument(namespace)
	for _, record := range res.Records {
		rec, err := recordToEntity(record)
		if err != nil {
			return nil, err
		}
		if err := doc.Insert(rec); err != nil {
			return nil, fmt.Errorf("failed to load schema type %s: %w", rec.Key(), err)
		}
	}
	return doc, nil
}

func recordToEntity(record *neo4j.Record) (*model.EntityRecord, error) {
	rawType, _ := stringValue(record, "entity_type")
	et, err := model.ParseEntityType(rawType)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema type: %w", err)
	}
	rec := &model.EntityRecord{Type: et}
	rec.Name, _ = stringValue(record, "name")
	rec.Label, _ = stringValue(record, "label")
	rec.Description, _ = stringValue(record, "description")
	rec.SemanticType, _ = stringValue(record, "semantic_type")
	if flagged, ok := record.Get("removal_suggested"); ok {
		rec.RemovalSuggested, _ = flagged.(bool)
	}

	if props, ok := stringValue(record, "properties"); ok && props != "" {
		if err := json.Unmarshal([]byte(props), &rec.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of %s: %w", rec.Name, err)
		}
	}
	if raw, ok := record.Get("provenance"); ok {
		if list, ok := raw.([]interface{}); ok {
			for _, v := range list {
				if id, ok := v.(string); ok {
					rec.AddProvenance(id)
				}
			}
		}
	}
	if rec.Label == "" {
		rec.Label = rec.Name
	}
	return rec, nil
}

func stringValue(record *neo4j.Record, key string) (string, bool) {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intValue(record *neo4j.Record, key string) (int64, bool) {
	v, ok := record.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}
