package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

// Format selects an on-disk representation of a schema document.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "schema", "openspg":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown schema format %q", s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

// Export is the structured form of a document. Unlike the text format it
// keeps provenance.
type Export struct {
	Namespace  string                `json:"namespace" yaml:"namespace"`
	Statistics model.Statistics      `json:"statistics" yaml:"statistics"`
	Entities   []*model.EntityRecord `json:"entities" yaml:"entities"`
}

func NewExport(doc *model.SchemaDocument) Export {
	entities := doc.Entities()
	if entities == nil {
		entities = []*model.EntityRecord{}
	}
	return Export{
		Namespace:  doc.Namespace(),
		Statistics: doc.Stats(),
		Entities:   entities,
	}
}

// Document rebuilds a schema document from e. Statistics are ignored and
// recomputed on demand.
func (e Export) Document() (*model.SchemaDocument, error) {
	if err := model.ValidateNamespace(e.Namespace); err != nil {
		return nil, &model.MalformedSchemaError{Reason: err.Error()}
	}
	doc := model.NewSchemaDocument(e.Namespace)
	for _, rec := range e.Entities {
		if rec == nil {
			continue
		}
		if !rec.Type.Valid() {
			return nil, &model.InvalidEntityTypeError{Value: string(rec.Type), Name: rec.Name}
		}
		if strings.TrimSpace(rec.Name) == "" {
			return nil, &model.EmptyNameError{EntityType: string(rec.Type)}
		}
		if rec.Label == "" {
			rec.Label = rec.Name
		}
		if err := doc.Insert(rec); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Encode renders doc in format f.
func Encode(doc *model.SchemaDocument, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(Serialize(doc)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(NewExport(doc), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema to json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(NewExport(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema to yaml: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown schema format %q", f)
}

// Decode reads data written by Encode. A non-empty namespace must match the
// document's.
func Decode(data []byte, f Format, namespace string) (*model.SchemaDocument, error) {
	if f == FormatText {
		return Parse(string(data), namespace)
	}

	var e Export
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown schema format %q", f)
	}

	doc, err := e.Document()
	if err != nil {
		return nil, err
	}
	if namespace != "" && doc.Namespace() != namespace {
		return nil, &model.MalformedSchemaError{
			Reason: fmt.Sprintf("namespace %q does not match expected %q", doc.Namespace(), namespace),
		}
	}
	return doc, nil
}
