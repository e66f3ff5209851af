package schema

import (
	"fmt"
	"strings"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

const indent = "    "

// Serialize renders doc in canonical schema text. The output depends only on
// the document: blocks follow insertion order and properties follow
// declaration order, so equal documents give byte-identical text.
func Serialize(doc *model.SchemaDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "namespace %s\n", doc.Namespace())
	for _, rec := range doc.Entities() {
		b.WriteString("\n")
		writeEntity(&b, rec)
	}
	return b.String()
}

func writeEntity(b *strings.Builder, rec *model.EntityRecord) {
	if rec.RemovalSuggested {
		b.WriteString(removalMarker + "\n")
	}
	fmt.Fprintf(b, "%s(%s): %s\n", rec.Name, rec.Label, entityTypeKeyword)
	if rec.Description != "" {
		fmt.Fprintf(b, "%s%s: %s\n", indent, metaDesc, rec.Description)
	}
	fmt.Fprintf(b, "%s%s: %s\n", indent, metaCategory, rec.Type)
	if rec.SemanticType != "" {
		fmt.Fprintf(b, "%s%s: %s\n", indent, metaSemantic, rec.SemanticType)
	}
	fmt.Fprintf(b, "%s%s:\n", indent, metaProperties)
	for _, p := range model.StandardProperties() {
		writeProperty(b, p)
	}
	for _, p := range rec.Properties {
		writeProperty(b, p)
	}
}

func writeProperty(b *strings.Builder, p model.Property) {
	fmt.Fprintf(b, "%s%s(%s): %s\n", indent+indent, p.Name, p.Label, p.Kind)
	if p.Indexed() {
		fmt.Fprintf(b, "%s%s: %s\n", indent+indent+indent, metaIndex, p.Index)
	}
	if p.Desc != "" {
		fmt.Fprintf(b, "%s%s: %s\n", indent+indent+indent, metaDesc, p.Desc)
	}
}
