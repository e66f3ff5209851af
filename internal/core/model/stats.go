package model

// Statistics mirrors the schema overview shown to users: how many entity
// types exist, how many properties they declare and how they spread across
// the enumeration.
type Statistics struct {
	Namespace  string             `json:"namespace" yaml:"namespace"`
	Entities   int                `json:"entity_count" yaml:"entity_count"`
	Properties int                `json:"property_count" yaml:"property_count"`
	ByType     map[EntityType]int `json:"entity_types" yaml:"entity_types"`
	Flagged    int                `json:"removal_suggested" yaml:"removal_suggested"`
}

// Stats counts the conventional properties too, since every block declares them.
func (d *SchemaDocument) Stats() Statistics {
	s := Statistics{
		Namespace: d.namespace,
		Entities:  len(d.keys),
		ByType:    make(map[EntityType]int),
	}
	standard := len(StandardProperties())
	for _, k := range d.keys {
		rec := d.entities[k]
		s.Properties += standard + len(rec.Properties)
		s.ByType[rec.Type]++
		if rec.RemovalSuggested {
			s.Flagged++
		}
	}
	return s
}
