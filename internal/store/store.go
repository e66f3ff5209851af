// Package store persists schema documents between runs.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

// Store loads and saves whole documents by namespace. Load returns an error
// wrapping model.ErrNotFound when nothing was saved under the namespace.
type Store interface {
	Load(ctx context.Context, namespace string) (*model.SchemaDocument, error)
	Save(ctx context.Context, doc *model.SchemaDocument) error
}

// checkNamespace also rejects names that would escape the store directory.
func checkNamespace(namespace string) error {
	if err := model.ValidateNamespace(namespace); err != nil {
		return err
	}
	if strings.ContainsAny(namespace, `/\`) || namespace == "." || namespace == ".." {
		return fmt.Errorf("%w %q: must not be a path", model.ErrInvalidNamespace, namespace)
	}
	return nil
}
