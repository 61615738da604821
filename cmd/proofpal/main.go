// Command proofpal tracks purchases, their return windows and warranties.
//
// Usage:
//
//	proofpal add "Laptop" --store Fnac --amount 999.90 --date 2024-01-01
//	proofpal list
//	proofpal dashboard
//	proofpal watch             # periodic reminder scans
//	proofpal mcp               # MCP server on stdio
//
// Configuration is read from ~/.proofpal/config.yaml and PROOFPAL_*
// environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/app"
	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/ui"
)

var (
	configPath string
	noColor    bool
	logLevel   string

	// Set by the root command before any subcommand runs.
	proof     *app.App
	formatter *ui.Formatter
)

var rootCmd = &cobra.Command{
	Use:   "proofpal",
	Short: "Keep proof of purchase and never miss a return or warranty deadline",
	Long: `ProofPal records purchases with their receipts and photos, tracks the
return window and the warranty of each one, reminds you before they end and
exports a PDF dossier to back a claim.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		proof, err = app.New(cfg, os.Stderr)
		if err != nil {
			return err
		}
		formatter = ui.NewFormatter(colored())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if proof == nil {
			return nil
		}
		return proof.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetDefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

func colored() bool {
	return !noColor && isatty.IsTerminal(os.Stdout.Fd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if formatter == nil {
			formatter = ui.NewFormatter(false)
		}
		fmt.Fprintln(os.Stderr, formatter.FormatError(err))
		if proof != nil {
			proof.Close()
		}
		os.Exit(1)
	}
}
