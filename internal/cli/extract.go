package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shawnsang/auto-openspg-schema/internal/core"
	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
)

var (
	extractBase      string
	extractOut       string
	extractNamespace string
	extractMode      string
	extractConfirm   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [document...]",
	Short: "Extract entities from documents with the configured LLM",
	Long: `Splits every document into chunks, asks the LLM for the entities in each
chunk and merges them into the schema, one batch per document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractBase, "base", "b", "", "base schema file (default: the stored schema)")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "output file (default: the schema dir)")
	extractCmd.Flags().StringVarP(&extractNamespace, "namespace", "n", "", "schema namespace")
	extractCmd.Flags().StringVarP(&extractMode, "mode", "m", string(merge.Additive), "additive or replace")
	extractCmd.Flags().BoolVar(&extractConfirm, "confirm-removals", false, "delete entities suggested for removal")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mode, err := merge.ParseMode(extractMode)
	if err != nil {
		return err
	}

	docs := make([]core.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		docs = append(docs, core.Document{Name: filepath.Base(path), Content: string(data)})
	}

	client, err := newLLMClient(ctx, cfg.LLM, appLog)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	gen := core.NewGenerator(extraction.NewExtractor(client, cfg, appLog), appLog)

	base, err := loadBase(ctx, extractBase, extractNamespace)
	if err != nil {
		return err
	}
	sess, err := newSession(base)
	if err != nil {
		return err
	}

	reports, err := gen.ProcessDocuments(ctx, sess, docs, mode)
	for _, r := range reports {
		printReport(cmd, r.BatchID, r)
	}
	if err != nil {
		return err
	}

	if err := finish(cmd, sess, extractConfirm); err != nil {
		return err
	}
	return writeResult(cmd, sess.Document(), extractOut)
}
