// Package normalize turns raw extraction candidates into validated entity
// records. It is the only way data from the extraction step enters the
// schema: every field is checked or rewritten here.
package normalize

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

// Characters the schema grammar reserves inside headers and property lines,
// mapped to their full-width forms.
var reserved = strings.NewReplacer("(", "（", ")", "）", ":", "：")

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Normalize validates c and returns a record with canonical whitespace.
// The record has no provenance yet; the merger stamps it.
func Normalize(c model.Candidate) (*model.EntityRecord, error) {
	et, err := resolveType(c)
	if err != nil {
		return nil, err
	}

	name := reserved.Replace(model.CollapseWhitespace(c.Name))
	if name == "" {
		return nil, &model.EmptyNameError{EntityType: string(et)}
	}

	label := reserved.Replace(model.CollapseWhitespace(c.Label))
	if label == "" {
		label = name
	}

	return &model.EntityRecord{
		Type:         et,
		Name:         name,
		Label:        label,
		Description:  model.CollapseWhitespace(c.Description),
		SemanticType: model.CollapseWhitespace(c.SemanticType),
		Properties:   normalizeProperties(c.Properties),
	}, nil
}

func resolveType(c model.Candidate) (model.EntityType, error) {
	raw := strings.TrimSpace(c.EntityType)
	if raw != "" {
		et, err := model.ParseEntityType(raw)
		if err != nil {
			return "", &model.InvalidEntityTypeError{Value: c.EntityType, Name: c.Name}
		}
		return et, nil
	}
	if strings.TrimSpace(c.Category) != "" {
		return TypeForCategory(c.Category), nil
	}
	return "", &model.InvalidEntityTypeError{Value: c.EntityType, Name: c.Name}
}

func normalizeProperties(props model.CandidateProperties) []model.Property {
	var out []model.Property
	for _, p := range props {
		name := PropertyName(p.Name)
		if model.IsStandardProperty(name) {
			continue
		}
		// Same equality the parser uses to reject duplicates.
		if slices.ContainsFunc(out, func(q model.Property) bool { return strings.EqualFold(q.Name, name) }) {
			continue
		}

		label := reserved.Replace(model.CollapseWhitespace(p.Name))
		if label == "" {
			label = name
		}
		out = append(out, model.Property{
			Name:  name,
			Label: label,
			Kind:  model.KindText,
			Desc:  model.CollapseWhitespace(p.Description),
		})
	}
	return out
}

// PropertyName reduces raw to an identifier made of letters, digits and
// underscores that starts with a letter.
func PropertyName(raw string) string {
	name := nonWord.ReplaceAllString(raw, "")
	if name == "" {
		return "customProperty"
	}
	if r := []rune(name)[0]; !unicode.IsLetter(r) {
		name = "prop_" + name
	}
	return name
}
