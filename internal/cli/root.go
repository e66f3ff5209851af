// Package cli implements the openspg-schema command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shawnsang/auto-openspg-schema/internal/config"
	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
	"github.com/shawnsang/auto-openspg-schema/internal/core/session"
	"github.com/shawnsang/auto-openspg-schema/internal/driver"
	"github.com/shawnsang/auto-openspg-schema/internal/llm"
	"github.com/shawnsang/auto-openspg-schema/internal/logger"
	"github.com/shawnsang/auto-openspg-schema/internal/store"
)

var version = "dev"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	appLog *slog.Logger
)

// Constructors for external services, swapped out in tests.
var (
	newLLMClient   = llm.NewClient
	openGraphStore = func(ctx context.Context, c config.MemgraphConfig, l *slog.Logger) (store.Store, func(), error) {
		d, err := driver.NewMemgraphDriver(ctx, c.URI, c.User, c.Password, l)
		if err != nil {
			return nil, nil, err
		}
		if err := d.BuildIndices(ctx); err != nil {
			d.Close(ctx)
			return nil, nil, err
		}
		return store.NewGraphStore(d, l), func() { d.Close(context.Background()) }, nil
	}
)

var rootCmd = &cobra.Command{
	Use:   "openspg-schema",
	Short: "Build OpenSPG schemas from documents",
	Long: `Extracts entity types from technical documents with an LLM and merges
them into an OpenSPG schema that grows across documents and runs.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	cfg = c
	appLog = logger.New(cmd.ErrOrStderr(), level)
	return nil
}

func fileStore() *store.FileStore {
	f, err := schema.ParseFormat(cfg.Schema.Format)
	if err != nil {
		f = schema.FormatJSON
	}
	return store.NewFileStore(cfg.Schema.Dir, f)
}

func newSession(doc *model.SchemaDocument) (*session.Session, error) {
	policy, err := merge.ParsePolicy(cfg.Schema.DescriptionPolicy)
	if err != nil {
		return nil, err
	}
	return session.FromDocument(doc,
		session.WithMerger(merge.NewMerger(policy, appLog)),
		session.WithLogger(appLog),
	)
}

// formatForPath picks the schema format from a file extension.
func formatForPath(path string) schema.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return schema.FormatJSON
	case ".yaml", ".yml":
		return schema.FormatYAML
	}
	return schema.FormatText
}

func readSchemaFile(path, namespace string) (*model.SchemaDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Decode(data, formatForPath(path), namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return doc, nil
}

// loadBase reads the starting document from path, or from the schema dir
// when path is empty. A missing schema starts an empty document.
func loadBase(ctx context.Context, path, namespace string) (*model.SchemaDocument, error) {
	if path != "" {
		doc, err := readSchemaFile(path, namespace)
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("base schema not found, starting empty", "path", path)
			return model.NewSchemaDocument(orDefault(namespace)), nil
		}
		return doc, err
	}

	ns := orDefault(namespace)
	doc, err := fileStore().Load(ctx, ns)
	if errors.Is(err, model.ErrNotFound) {
		appLog.Info("no stored schema, starting empty", "namespace", ns)
		return model.NewSchemaDocument(ns), nil
	}
	return doc, err
}

// loadExisting is loadBase without the empty fallback.
func loadExisting(cmd *cobra.Command, path, namespace string) (*model.SchemaDocument, error) {
	if path != "" {
		return readSchemaFile(path, namespace)
	}
	return fileStore().Load(cmd.Context(), orDefault(namespace))
}

// writeResult writes doc to out, or into the schema dir when out is empty.
func writeResult(cmd *cobra.Command, doc *model.SchemaDocument, out string) error {
	if out == "" {
		st := fileStore()
		if err := st.Save(cmd.Context(), doc); err != nil {
			return err
		}
		cmd.Printf("Schema saved to %s\n", st.Path(doc.Namespace()))
		return nil
	}

	data, err := schema.Encode(doc, formatForPath(out))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	cmd.Printf("Schema written to %s\n", out)
	return nil
}

func orDefault(namespace string) string {
	if namespace == "" {
		return cfg.Schema.Namespace
	}
	return namespace
}

func printReport(cmd *cobra.Command, label string, r model.ChangeReport) {
	cmd.Printf("%s: added=%d modified=%d removal_suggested=%d skipped=%d removed=%d\n",
		label, r.Added, r.Modified, r.RemovalSuggested, r.Skipped, r.Removed)
	for _, s := range r.Skips {
		cmd.Printf("  skipped #%d %q: %s\n", s.Index, s.Name, s.Reason)
	}
}

// finish confirms or lists pending removals, then prints the totals.
func finish(cmd *cobra.Command, sess *session.Session, confirm bool) error {
	pending := sess.PendingRemovals()
	if confirm && len(pending) > 0 {
		if _, err := sess.ConfirmRemovals(); err != nil {
			return err
		}
	} else if len(pending) > 0 {
		cmd.Printf("%d entities suggested for removal (use --confirm-removals to delete):\n", len(pending))
		for _, k := range pending {
			cmd.Printf("  %s\n", k)
		}
	}
	printReport(cmd, "total", sess.Totals())
	return nil
}
