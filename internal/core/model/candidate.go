package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Candidate is one unvalidated entity as produced by the extraction step.
// Nothing here is trusted until it passes normalization.
type Candidate struct {
	EntityType   string              `json:"entity_type"`
	Category     string              `json:"category,omitempty"`
	Name         string              `json:"name"`
	Label        string              `json:"label,omitempty"`
	Description  string              `json:"description"`
	SemanticType string              `json:"semantic_type"`
	Properties   CandidateProperties `json:"properties,omitempty"`
}

type CandidateProperty struct {
	Name        string
	Description string
}

// CandidateProperties keeps the key order of the JSON object it came from,
// which a Go map would lose.
type CandidateProperties []CandidateProperty

func (p CandidateProperties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(prop.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *CandidateProperties) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid properties JSON")
	}
	*p = propertiesFromResult(gjson.ParseBytes(data))
	return nil
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid candidate JSON")
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return fmt.Errorf("candidate must be a JSON object, got %s", r.Type)
	}
	*c = CandidateFromResult(r)
	return nil
}

// CandidateFromResult reads a candidate leniently: numbers become strings and
// a few spellings seen in model output are accepted for each field.
func CandidateFromResult(r gjson.Result) Candidate {
	return Candidate{
		EntityType:   firstString(r, "entity_type", "entityType", "type"),
		Category:     firstString(r, "category"),
		Name:         firstString(r, "name"),
		Label:        firstString(r, "label", "chinese_name"),
		Description:  firstString(r, "description", "desc"),
		SemanticType: firstString(r, "semantic_type", "semanticType"),
		Properties:   propertiesFromResult(r.Get("properties")),
	}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return ""
}

func propertiesFromResult(r gjson.Result) CandidateProperties {
	var out CandidateProperties
	switch {
	case r.IsObject():
		r.ForEach(func(k, v gjson.Result) bool {
			out = append(out, CandidateProperty{Name: k.String(), Description: v.String()})
			return true
		})
	case r.IsArray():
		// [{"name": ..., "description": ...}] or a bare list of names
		r.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				out = append(out, CandidateProperty{
					Name:        firstString(v, "name"),
					Description: firstString(v, "description", "desc"),
				})
			} else {
				out = append(out, CandidateProperty{Name: v.String()})
			}
			return true
		})
	}
	return out
}

// DecodeCandidates accepts a JSON array of candidates, an object holding the
// array under "entities" or "extracted_entities", or a single candidate object.
// Non-object array elements are ignored.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid candidate JSON")
	}
	return CandidatesFromResult(gjson.ParseBytes(data))
}

func CandidatesFromResult(r gjson.Result) ([]Candidate, error) {
	if r.IsObject() {
		for _, key := range []string{"entities", "extracted_entities"} {
			if list := r.Get(key); list.IsArray() {
				r = list
				break
			}
		}
	}
	switch {
	case r.IsArray():
		var out []Candidate
		r.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				out = append(out, CandidateFromResult(v))
			}
			return true
		})
		return out, nil
	case r.IsObject():
		return []Candidate{CandidateFromResult(r)}, nil
	default:
		return nil, fmt.Errorf("expected a JSON array or object of candidates, got %s", r.Type)
	}
}
