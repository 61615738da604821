package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a PDF dossier for a purchase",
	Long: `Write a PDF dossier with the purchase details, deadline status,
reminder history and every attachment. Images are shown on their own page,
PDF attachments are embedded. Attachments that cannot be read are replaced
by a placeholder page.

By default the file is written to the configured export directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize deadlines, urgent purchases and recent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := proof.Service.Dashboard(cmd.Context())
		if err != nil {
			return err
		}
		out, err := formatter.FormatDashboard(summary)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd, dashboardCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of the export directory (- for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	if exportOutput == "-" {
		_, err := proof.Service.ExportDossier(ctx, id, os.Stdout)
		return err
	}

	spinner := ui.NewSpinner(os.Stderr, colored(), colored())
	spinner.Start("Building dossier...")

	var (
		path string
		res  *dossier.Result
	)
	if exportOutput == "" {
		path, res, err = proof.Service.ExportDossierFile(ctx, id)
	} else {
		path = exportOutput
		res, err = exportTo(cmd, id, path)
	}
	if err != nil {
		spinner.StopWithError("Export failed")
		return err
	}

	spinner.StopWithMessage(fmt.Sprintf("Dossier written to %s", path))
	for _, p := range res.Placeholders {
		fmt.Fprintln(os.Stderr, formatter.FormatInfo(fmt.Sprintf("  %s replaced by a placeholder: %s", p.Filename, p.Reason)))
	}
	return nil
}

func exportTo(cmd *cobra.Command, id, path string) (*dossier.Result, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	res, err := proof.Service.ExportDossier(cmd.Context(), id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return res, nil
}
