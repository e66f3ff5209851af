package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
)

// FileStore keeps one file per namespace in Dir. The text format drops
// provenance; JSON and YAML keep it.
type FileStore struct {
	Dir    string
	Format schema.Format
}

func NewFileStore(dir string, format schema.Format) *FileStore {
	if format == "" {
		format = schema.FormatText
	}
	return &FileStore{Dir: dir, Format: format}
}

// Path is the file a namespace is stored in.
func (s *FileStore) Path(namespace string) string {
	ext := ".schema"
	switch s.Format {
	case schema.FormatJSON:
		ext = ".json"
	case schema.FormatYAML:
		ext = ".yaml"
	}
	return filepath.Join(s.Dir, namespace+ext)
}

func (s *FileStore) Load(_ context.Context, namespace string) (*model.SchemaDocument, error) {
	if err := checkNamespace(namespace); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(namespace))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("namespace %s: %w", namespace, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return schema.Decode(data, s.Format, namespace)
}

// Save writes through a temporary file so a crash never leaves a torn schema.
func (s *FileStore) Save(_ context.Context, doc *model.SchemaDocument) error {
	if err := checkNamespace(doc.Namespace()); err != nil {
		return err
	}
	data, err := schema.Encode(doc, s.Format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create schema dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, doc.Namespace()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(doc.Namespace())); err != nil {
		return fmt.Errorf("failed to replace schema file: %w", err)
	}
	return nil
}
