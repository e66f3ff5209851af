// Package schema reads and writes the OpenSPG schema markup:
//
//	namespace Engineering
//
//	Bridge(桥梁): EntityType
//	    desc: A structure spanning an obstacle
//	    category: Building
//	    semantic: civil structure
//	    properties:
//	        description(描述): Text
//	        name(名称): Text
//	        semanticType(semanticType): Text
//	            index: Text
//	        span(跨度): Text
//	            desc: main span length
//
// Parse accepts any leading whitespace; Serialize always writes four spaces
// per level.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

const (
	entityTypeKeyword = "EntityType"
	removalMarker     = "# removal-suggested"

	metaDesc       = "desc"
	metaCategory   = "category"
	metaSemantic   = "semantic"
	metaProperties = "properties"
	metaIndex      = "index"
)

var (
	namespaceLine = regexp.MustCompile(`^namespace\s+(\S+)$`)
	metaLine      = regexp.MustCompile(`^(desc|category|semantic|properties|index)\s*:\s*(.*)$`)
	headerLine    = regexp.MustCompile(`^([^()]+)\(([^()]*)\)\s*:\s*EntityType$`)
	propertyLine  = regexp.MustCompile(`^([^()\s]+)\s*\(([^()]*)\)\s*:\s*(\S+)$`)
)

const (
	noProperty       = -1
	standardProperty = -2
)

type parser struct {
	doc            *model.SchemaDocument
	line           int
	text           string
	pendingRemoval bool

	// current entity block
	cur         *model.EntityRecord
	curLine     int
	curCategory bool
	inProps     bool
	lastProp    int
}

// Parse reads schema text into a document. A non-empty namespace must match
// the header. Parsing fails closed: any line that cannot be placed yields a
// MalformedSchemaError and two blocks with the same key a DuplicateKeyError;
// no partial document is returned.
func Parse(text, namespace string) (*model.SchemaDocument, error) {
	p := &parser{lastProp: noProperty}
	for i, raw := range strings.Split(text, "\n") {
		p.line = i + 1
		p.text = strings.TrimSpace(raw)
		if p.text == "" {
			continue
		}
		if err := p.parseLine(); err != nil {
			return nil, err
		}
	}
	if p.doc == nil {
		return nil, &model.MalformedSchemaError{Reason: "missing namespace header"}
	}
	if err := p.finishEntity(); err != nil {
		return nil, err
	}
	if namespace != "" && p.doc.Namespace() != namespace {
		return nil, &model.MalformedSchemaError{
			Reason: fmt.Sprintf("namespace %q does not match expected %q", p.doc.Namespace(), namespace),
		}
	}
	return p.doc, nil
}

func (p *parser) malformed(format string, args ...any) error {
	return &model.MalformedSchemaError{Line: p.line, Text: p.text, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine() error {
	if p.doc == nil {
		if strings.HasPrefix(p.text, "#") {
			return nil
		}
		m := namespaceLine.FindStringSubmatch(p.text)
		if m == nil {
			return p.malformed("expected namespace header")
		}
		p.doc = model.NewSchemaDocument(m[1])
		return nil
	}

	if m := metaLine.FindStringSubmatch(p.text); m != nil {
		return p.parseMeta(m[1], strings.TrimSpace(m[2]))
	}
	if m := headerLine.FindStringSubmatch(p.text); m != nil {
		return p.startEntity(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if p.inProps {
		if m := propertyLine.FindStringSubmatch(p.text); m != nil {
			return p.addProperty(m[1], strings.TrimSpace(m[2]), m[3])
		}
	}

	switch {
	case p.text == removalMarker:
		p.pendingRemoval = true
		return nil
	case strings.HasPrefix(p.text, "#"):
		return nil
	case namespaceLine.MatchString(p.text):
		return p.malformed("duplicate namespace header")
	case p.cur == nil:
		return p.malformed("expected entity header \"Name(Label): EntityType\"")
	case p.inProps:
		return p.malformed("property does not match \"name(label): Kind\"")
	default:
		return p.malformed("unexpected line in entity block")
	}
}

func (p *parser) parseMeta(key, val string) error {
	if p.cur == nil {
		return p.malformed("%q outside an entity block", key)
	}
	if p.inProps {
		return p.parsePropertyMeta(key, val)
	}
	switch key {
	case metaDesc:
		p.cur.Description = val
	case metaCategory:
		et, err := model.ParseEntityType(val)
		if err != nil {
			return p.malformed("unknown entity type %q", val)
		}
		p.cur.Type = et
		p.curCategory = true
	case metaSemantic:
		p.cur.SemanticType = val
	case metaProperties:
		if val != "" {
			return p.malformed("properties header takes no value")
		}
		p.inProps = true
	default:
		return p.malformed("%q outside properties block", key)
	}
	return nil
}

func (p *parser) parsePropertyMeta(key, val string) error {
	if key != metaIndex && key != metaDesc {
		return p.malformed("%q not allowed inside properties block", key)
	}
	switch p.lastProp {
	case noProperty:
		return p.malformed("%q before any property", key)
	case standardProperty:
		// conventional properties are fixed; their qualifiers are implied
		return nil
	}
	prop := &p.cur.Properties[p.lastProp]
	if key == metaIndex {
		prop.Index = model.PropertyKind(val)
	} else {
		prop.Desc = val
	}
	return nil
}

func (p *parser) startEntity(name, label string) error {
	if err := p.finishEntity(); err != nil {
		return err
	}
	if label == "" {
		label = name
	}
	p.cur = &model.EntityRecord{
		Name:             name,
		Label:            label,
		RemovalSuggested: p.pendingRemoval,
	}
	p.curLine = p.line
	p.curCategory = false
	p.inProps = false
	p.lastProp = noProperty
	p.pendingRemoval = false
	return nil
}

func (p *parser) addProperty(name, label, kind string) error {
	if model.IsStandardProperty(name) {
		p.lastProp = standardProperty
		return nil
	}
	if _, dup := p.cur.Property(name); dup {
		return p.malformed("duplicate property %q", name)
	}
	if label == "" {
		label = name
	}
	p.cur.Properties = append(p.cur.Properties, model.Property{
		Name:  name,
		Label: label,
		Kind:  model.PropertyKind(kind),
	})
	p.lastProp = len(p.cur.Properties) - 1
	return nil
}

func (p *parser) finishEntity() error {
	if p.cur == nil {
		return nil
	}
	rec := p.cur
	p.cur = nil
	if !p.inProps {
		return &model.MalformedSchemaError{
			Line:   p.curLine,
			Text:   fmt.Sprintf("%s(%s): %s", rec.Name, rec.Label, entityTypeKeyword),
			Reason: "entity has no properties block",
		}
	}
	if !p.curCategory {
		rec.Type = model.Others
		if et, err := model.ParseEntityType(rec.Name); err == nil {
			rec.Type = et
		}
	}
	if err := p.doc.Insert(rec); err != nil {
		return &model.DuplicateKeyError{Key: rec.Key(), Line: p.curLine}
	}
	return nil
}
