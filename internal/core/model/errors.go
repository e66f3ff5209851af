package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSchema is returned when schema text does not follow the grammar.
	ErrMalformedSchema = errors.New("malformed schema")

	// ErrInvalidEntityType is returned for types outside the enumeration.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrEmptyName is returned when a candidate has a blank name.
	ErrEmptyName = errors.New("empty entity name")

	// ErrDuplicateKey is returned when two records share a (type, name) key.
	ErrDuplicateKey = errors.New("duplicate entity key")

	// ErrNotFound is returned when a key is not part of the document.
	ErrNotFound = errors.New("entity not found")

	// ErrNotFlagged is returned when deletion is requested for a record
	// that was never suggested for removal.
	ErrNotFlagged = errors.New("entity not suggested for removal")

	// ErrEmptyBatchID is returned when a merge is attempted without a batch ID.
	ErrEmptyBatchID = errors.New("empty batch id")

	// ErrInvalidNamespace is returned for a namespace that cannot be written
	// as a schema header.
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// MalformedSchemaError reports the offending line of an unparseable schema.
type MalformedSchemaError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedSchemaError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed schema: %s", e.Reason)
	}
	return fmt.Sprintf("malformed schema at line %d (%q): %s", e.Line, e.Text, e.Reason)
}

func (e *MalformedSchemaError) Unwrap() error { return ErrMalformedSchema }

type InvalidEntityTypeError struct {
	Value string
	Name  string
}

func (e *InvalidEntityTypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid entity type %q for %q", e.Value, e.Name)
	}
	return fmt.Sprintf("invalid entity type %q", e.Value)
}

func (e *InvalidEntityTypeError) Unwrap() error { return ErrInvalidEntityType }

type EmptyNameError struct {
	EntityType string
}

func (e *EmptyNameError) Error() string {
	return fmt.Sprintf("empty name for entity of type %q", e.EntityType)
}

func (e *EmptyNameError) Unwrap() error { return ErrEmptyName }

// DuplicateKeyError carries the key and, when parsing, the line of the
// second occurrence.
type DuplicateKeyError struct {
	Key  Key
	Line int
}

func (e *DuplicateKeyError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("duplicate entity %s at line %d", e.Key, e.Line)
	}
	return fmt.Sprintf("duplicate entity %s", e.Key)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
