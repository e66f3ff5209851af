package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shawnsang/auto-openspg-schema/internal/core/schema"
)

var (
	exportFormat    string
	exportOut       string
	exportNamespace string
)

var exportCmd = &cobra.Command{
	Use:   "export [schema-file]",
	Short: "Convert a schema between text, JSON and YAML",
	Long: `Reads a schema file (format taken from its extension) and writes it in
another format. Without a file the stored schema of the namespace is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(schema.FormatJSON), "text, json or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportNamespace, "namespace", "n", "", "schema namespace")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := schema.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	doc, err := loadExisting(cmd, path, exportNamespace)
	if err != nil {
		return err
	}

	data, err := schema.Encode(doc, f)
	if err != nil {
		return err
	}
	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	return nil
}
