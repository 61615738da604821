package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/purchase"
)

var attachCmd = &cobra.Command{
	Use:   "attach <id> <file>...",
	Short: "Attach receipts or photos to a purchase",
	Long: `Copy image or PDF files into storage and attach them to a purchase.
They appear in the dossier in the order they were attached.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAttach,
}

var detachCmd = &cobra.Command{
	Use:   "detach <id> <position>",
	Short: "Remove an attachment, by its position as shown by show",
	Args:  cobra.ExactArgs(2),
	RunE:  runDetach,
}

func init() {
	rootCmd.AddCommand(attachCmd, detachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	for _, path := range args[1:] {
		a, err := proof.Service.Attach(ctx, id, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Println(formatter.FormatSuccess(fmt.Sprintf("Attached %s as #%d", a.Filename, a.Position)))
	}
	return nil
}

func runDetach(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return &purchase.ValidationError{Field: "position", Reason: "not a number: " + args[1]}
	}

	rec, err := proof.Service.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, a := range rec.Attachments {
		if a.Position != pos {
			continue
		}
		if _, err := proof.Service.Detach(ctx, a.ID); err != nil {
			return err
		}
		fmt.Println(formatter.FormatSuccess("Removed " + a.Filename))
		return nil
	}
	return purchase.NotFound("attachment", fmt.Sprintf("#%d of %s", pos, rec.ShortID()))
}
