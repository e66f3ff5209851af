package model

import (
	"strings"
)

// EntityType is the closed OpenSPG classification of a schema entity.
type EntityType string

const (
	Concept            EntityType = "Concept"
	ArtificialObject   EntityType = "ArtificialObject"
	NaturalScience     EntityType = "NaturalScience"
	Building           EntityType = "Building"
	GeographicLocation EntityType = "GeographicLocation"
	Medicine           EntityType = "Medicine"
	Works              EntityType = "Works"
	Event              EntityType = "Event"
	Person             EntityType = "Person"
	Transport          EntityType = "Transport"
	Organization       EntityType = "Organization"
	Date               EntityType = "Date"
	Creature           EntityType = "Creature"
	Keyword            EntityType = "Keyword"
	Astronomy          EntityType = "Astronomy"
	SemanticConcept    EntityType = "SemanticConcept"
	Others             EntityType = "Others"
)

var entityTypes = []EntityType{
	Concept, ArtificialObject, NaturalScience, Building, GeographicLocation,
	Medicine, Works, Event, Person, Transport, Organization, Date, Creature,
	Keyword, Astronomy, SemanticConcept, Others,
}

// EntityTypes returns every supported type in declaration order.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

func (t EntityType) Valid() bool {
	for _, et := range entityTypes {
		if et == t {
			return true
		}
	}
	return false
}

func (t EntityType) String() string { return string(t) }

// ParseEntityType resolves s against the enumeration. An exact match wins,
// otherwise the comparison is repeated ignoring case.
func ParseEntityType(s string) (EntityType, error) {
	v := strings.TrimSpace(s)
	if t := EntityType(v); t.Valid() {
		return t, nil
	}
	for _, et := range entityTypes {
		if strings.EqualFold(string(et), v) {
			return et, nil
		}
	}
	return "", &InvalidEntityTypeError{Value: s}
}
