package model

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// SchemaDocument is an ordered set of entity records under one namespace.
// Records are keyed by (type, normalized name) and kept in insertion order.
// Accessors hand out copies, so the only way to change a document is through
// Insert, Replace and Remove.
type SchemaDocument struct {
	namespace string
	keys      []Key
	entities  map[Key]*EntityRecord
}

// ValidateNamespace reports whether namespace fits the "namespace <word>"
// header: non-empty and without whitespace.
func ValidateNamespace(namespace string) error {
	if namespace == "" || strings.IndexFunc(namespace, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w %q: must be a single non-empty word", ErrInvalidNamespace, namespace)
	}
	return nil
}

func NewSchemaDocument(namespace string) *SchemaDocument {
	return &SchemaDocument{
		namespace: namespace,
		entities:  make(map[Key]*EntityRecord),
	}
}

func (d *SchemaDocument) Namespace() string { return d.namespace }

func (d *SchemaDocument) Len() int { return len(d.keys) }

func (d *SchemaDocument) Has(k Key) bool {
	_, ok := d.entities[k]
	return ok
}

func (d *SchemaDocument) Get(k Key) (*EntityRecord, bool) {
	rec, ok := d.entities[k]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Keys returns the keys in insertion order.
func (d *SchemaDocument) Keys() []Key {
	return slices.Clone(d.keys)
}

// Entities returns copies of every record in insertion order.
func (d *SchemaDocument) Entities() []*EntityRecord {
	out := make([]*EntityRecord, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.entities[k].Clone())
	}
	return out
}

// Insert appends a new record. It fails with a DuplicateKeyError when the key
// is already taken.
func (d *SchemaDocument) Insert(rec *EntityRecord) error {
	k := rec.Key()
	if _, ok := d.entities[k]; ok {
		return &DuplicateKeyError{Key: k}
	}
	d.keys = append(d.keys, k)
	d.entities[k] = rec.Clone()
	return nil
}

// Replace overwrites an existing record in place, keeping its position.
func (d *SchemaDocument) Replace(rec *EntityRecord) error {
	k := rec.Key()
	if _, ok := d.entities[k]; !ok {
		return ErrNotFound
	}
	d.entities[k] = rec.Clone()
	return nil
}

func (d *SchemaDocument) Remove(k Key) bool {
	if _, ok := d.entities[k]; !ok {
		return false
	}
	delete(d.entities, k)
	d.keys = slices.DeleteFunc(d.keys, func(x Key) bool { return x == k })
	return true
}

func (d *SchemaDocument) Clone() *SchemaDocument {
	c := NewSchemaDocument(d.namespace)
	c.keys = slices.Clone(d.keys)
	for k, rec := range d.entities {
		c.entities[k] = rec.Clone()
	}
	return c
}

// Equal compares two documents over everything the schema text carries:
// namespace, order and record fields. Provenance is not part of the text
// format and is ignored.
func (d *SchemaDocument) Equal(o *SchemaDocument) bool {
	if d.namespace != o.namespace || !slices.Equal(d.keys, o.keys) {
		return false
	}
	for _, k := range d.keys {
		if !d.entities[k].equalSerialized(o.entities[k]) {
			return false
		}
	}
	return true
}

func (d *SchemaDocument) ByType(t EntityType) []*EntityRecord {
	var out []*EntityRecord
	for _, k := range d.keys {
		if k.Type == t {
			out = append(out, d.entities[k].Clone())
		}
	}
	return out
}

// Search returns records whose name, label or description contains keyword,
// ignoring case.
func (d *SchemaDocument) Search(keyword string) []*EntityRecord {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}
	var out []*EntityRecord
	for _, k := range d.keys {
		rec := d.entities[k]
		if strings.Contains(strings.ToLower(rec.Name), kw) ||
			strings.Contains(strings.ToLower(rec.Label), kw) ||
			strings.Contains(strings.ToLower(rec.Description), kw) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Flagged returns the keys currently suggested for removal.
func (d *SchemaDocument) Flagged() []Key {
	var out []Key
	for _, k := range d.keys {
		if d.entities[k].RemovalSuggested {
			out = append(out, k)
		}
	}
	return out
}
