package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var publishNamespace string

var publishCmd = &cobra.Command{
	Use:   "publish [schema-file]",
	Short: "Publish a schema to Memgraph",
	Long: `Writes every entity of the schema as a SchemaType node and deletes the
nodes of entities the schema no longer holds. Without a file the stored
schema of the namespace is published.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

var pullOut string

var pullCmd = &cobra.Command{
	Use:   "pull [namespace]",
	Short: "Load a published schema back from Memgraph",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPull,
}

func init() {
	publishCmd.Flags().StringVarP(&publishNamespace, "namespace", "n", "", "schema namespace")
	pullCmd.Flags().StringVarP(&pullOut, "out", "o", "", "output file (default: the schema dir)")
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(pullCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	doc, err := loadExisting(cmd, path, publishNamespace)
	if err != nil {
		return err
	}

	st, closeStore, err := openGraphStore(cmd.Context(), cfg.Memgraph, appLog)
	if err != nil {
		return fmt.Errorf("failed to connect to Memgraph: %w", err)
	}
	defer closeStore()

	if err := st.Save(cmd.Context(), doc); err != nil {
		return err
	}
	cmd.Printf("Published %d entities to namespace %s\n", doc.Len(), doc.Namespace())
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	namespace := cfg.Schema.Namespace
	if len(args) > 0 {
		namespace = args[0]
	}

	st, closeStore, err := openGraphStore(cmd.Context(), cfg.Memgraph, appLog)
	if err != nil {
		return fmt.Errorf("failed to connect to Memgraph: %w", err)
	}
	defer closeStore()

	doc, err := st.Load(cmd.Context(), namespace)
	if err != nil {
		return err
	}
	cmd.Printf("Pulled %d entities from namespace %s\n", doc.Len(), namespace)
	return writeResult(cmd, doc, pullOut)
}
