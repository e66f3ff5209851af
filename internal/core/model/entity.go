package model

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PropertyKind is the declared value kind of a schema property. Only Text is
// produced by extraction; parsed schemas may carry other kinds verbatim.
type PropertyKind string

const KindText PropertyKind = "Text"

// Conventional properties every entity declares.
const (
	PropDescription  = "description"
	PropName         = "name"
	PropSemanticType = "semanticType"
)

type Property struct {
	Name  string       `json:"name" yaml:"name"`
	Label string       `json:"label" yaml:"label"`
	Kind  PropertyKind `json:"kind" yaml:"kind"`
	Index PropertyKind `json:"index,omitempty" yaml:"index,omitempty"`
	Desc  string       `json:"desc,omitempty" yaml:"desc,omitempty"`
}

func (p Property) Indexed() bool { return p.Index != "" }

// StandardProperties returns the conventional property block in output order.
func StandardProperties() []Property {
	return []Property{
		{Name: PropDescription, Label: "描述", Kind: KindText},
		{Name: PropName, Label: "名称", Kind: KindText},
		{Name: PropSemanticType, Label: PropSemanticType, Kind: KindText, Index: KindText},
	}
}

// IsStandardProperty reports whether name is one of the conventional
// properties, ignoring case.
func IsStandardProperty(name string) bool {
	for _, p := range []string{PropDescription, PropName, PropSemanticType} {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// Key identifies a record inside a SchemaDocument.
type Key struct {
	Type EntityType `json:"type" yaml:"type"`
	Name string     `json:"name" yaml:"name"`
}

func NewKey(t EntityType, name string) Key {
	return Key{Type: t, Name: NormalizeName(name)}
}

func (k Key) String() string { return fmt.Sprintf("%s/%s", k.Type, k.Name) }

// CollapseWhitespace trims s and folds every whitespace run into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is the matching form of a display name: NFKC, collapsed
// whitespace and Unicode case folding.
func NormalizeName(name string) string {
	return cases.Fold().String(CollapseWhitespace(norm.NFKC.String(name)))
}

type EntityRecord struct {
	Type             EntityType `json:"entity_type" yaml:"entity_type"`
	Name             string     `json:"name" yaml:"name"`
	Label            string     `json:"label" yaml:"label"`
	Description      string     `json:"description,omitempty" yaml:"description,omitempty"`
	SemanticType     string     `json:"semantic_type,omitempty" yaml:"semantic_type,omitempty"`
	Properties       []Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Provenance       []string   `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	RemovalSuggested bool       `json:"removal_suggested,omitempty" yaml:"removal_suggested,omitempty"`
}

func (r *EntityRecord) Key() Key { return NewKey(r.Type, r.Name) }

func (r *EntityRecord) Clone() *EntityRecord {
	c := *r
	c.Properties = slices.Clone(r.Properties)
	c.Provenance = slices.Clone(r.Provenance)
	return &c
}

// Property looks up an extra property by name, ignoring case.
func (r *EntityRecord) Property(name string) (Property, bool) {
	for _, p := range r.Properties {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Property{}, false
}

// AddProvenance inserts batch IDs keeping the set sorted and unique.
func (r *EntityRecord) AddProvenance(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		i, found := slices.BinarySearch(r.Provenance, id)
		if !found {
			r.Provenance = slices.Insert(r.Provenance, i, id)
		}
	}
}

// SameContent compares the mergeable content of two records: description,
// semantic type and the property mapping, all case-insensitively. Property
// order does not matter.
func (r *EntityRecord) SameContent(o *EntityRecord) bool {
	if !strings.EqualFold(r.Description, o.Description) ||
		!strings.EqualFold(r.SemanticType, o.SemanticType) ||
		len(r.Properties) != len(o.Properties) {
		return false
	}
	for _, p := range r.Properties {
		q, ok := o.Property(p.Name)
		if !ok || !samePropertyContent(p, q) {
			return false
		}
	}
	return true
}

func samePropertyContent(a, b Property) bool {
	return strings.EqualFold(a.Label, b.Label) &&
		strings.EqualFold(string(a.Kind), string(b.Kind)) &&
		strings.EqualFold(string(a.Index), string(b.Index)) &&
		strings.EqualFold(a.Desc, b.Desc)
}

// equalSerialized is exact equality over every field the text format carries.
func (r *EntityRecord) equalSerialized(o *EntityRecord) bool {
	return r.Type == o.Type &&
		r.Name == o.Name &&
		r.Label == o.Label &&
		r.Description == o.Description &&
		r.SemanticType == o.SemanticType &&
		r.RemovalSuggested == o.RemovalSuggested &&
		slices.Equal(r.Properties, o.Properties)
}
