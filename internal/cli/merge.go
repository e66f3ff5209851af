package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shawnsang/auto-openspg-schema/internal/core/merge"
	"github.com/shawnsang/auto-openspg-schema/internal/core/model"
)

var (
	mergeBase      string
	mergeOut       string
	mergeNamespace string
	mergeMode      string
	mergeConfirm   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [candidates.json...]",
	Short: "Merge candidate files into a schema",
	Long: `Merges each candidate file into the schema as one batch, in the order given.
The file name is the batch ID. In replace mode a file may only flag entities
that earlier runs of the same file contributed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeBase, "base", "b", "", "base schema file (default: the stored schema)")
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "", "output file (default: the schema dir)")
	mergeCmd.Flags().StringVarP(&mergeNamespace, "namespace", "n", "", "schema namespace")
	mergeCmd.Flags().StringVarP(&mergeMode, "mode", "m", string(merge.Additive), "additive or replace")
	mergeCmd.Flags().BoolVar(&mergeConfirm, "confirm-removals", false, "delete entities suggested for removal")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	mode, err := merge.ParseMode(mergeMode)
	if err != nil {
		return err
	}
	base, err := loadBase(cmd.Context(), mergeBase, mergeNamespace)
	if err != nil {
		return err
	}
	sess, err := newSession(base)
	if err != nil {
		return err
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read candidates: %w", err)
		}
		candidates, err := model.DecodeCandidates(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}

		id := filepath.Base(path)
		batch := merge.Batch{ID: id, Mode: mode, Candidates: candidates}
		if mode == merge.Replace {
			batch.Supersedes = []string{id}
		}
		report, err := sess.AddBatch(batch)
		if err != nil {
			return err
		}
		printReport(cmd, id, report)
	}

	if err := finish(cmd, sess, mergeConfirm); err != nil {
		return err
	}
	return writeResult(cmd, sess.Document(), mergeOut)
}
