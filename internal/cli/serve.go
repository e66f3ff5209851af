package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shawnsang/auto-openspg-schema/internal/core"
	"github.com/shawnsang/auto-openspg-schema/internal/core/extraction"
	"github.com/shawnsang/auto-openspg-schema/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gen *core.Generator
	client, err := newLLMClient(ctx, cfg.LLM, appLog)
	if err != nil {
		appLog.Warn("LLM unavailable, document uploads disabled", "error", err)
	} else {
		gen = core.NewGenerator(extraction.NewExtractor(client, cfg, appLog), appLog)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return server.NewServer(cfg, gen, appLog).Run(ctx, addr)
}
