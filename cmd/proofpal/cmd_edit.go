package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/tracker"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a purchase",
	Long: `Change fields of a purchase. Only the flags given are updated.
Changing the purchase date or a period re-arms the reminders of the
deadlines it moves.

Examples:
  proofpal edit 3f2a --return-days 30
  proofpal edit 3f2a --notes "Serial 12345" --category Kitchen`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editLabel        string
	editStore        string
	editCategory     string
	editAmount       string
	editDate         string
	editReturnDays   int
	editWarrantyDays int
	editNotes        string
)

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editLabel, "label", "", "New label")
	editCmd.Flags().StringVar(&editStore, "store", "", "New store")
	editCmd.Flags().StringVar(&editCategory, "category", "", "New category")
	editCmd.Flags().StringVar(&editAmount, "amount", "", "New amount")
	editCmd.Flags().StringVar(&editDate, "date", "", "New purchase date YYYY-MM-DD")
	editCmd.Flags().IntVar(&editReturnDays, "return-days", 0, "New return window in days")
	editCmd.Flags().IntVar(&editWarrantyDays, "warranty-days", 0, "New warranty in days")
	editCmd.Flags().StringVar(&editNotes, "notes", "", "New notes")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	var p tracker.Patch
	changed := cmd.Flags().Changed
	if changed("label") {
		p.Label = &editLabel
	}
	if changed("store") {
		p.Store = &editStore
	}
	if changed("category") {
		p.Category = &editCategory
	}
	if changed("notes") {
		p.Notes = &editNotes
	}
	if changed("amount") {
		d, err := parseAmountFlag(editAmount)
		if err != nil {
			return err
		}
		p.Amount = &d
	}
	if changed("date") {
		t, err := parseDateFlag("date", editDate)
		if err != nil {
			return err
		}
		p.PurchaseDate = &t
	}
	if changed("return-days") {
		p.ReturnDays = &editReturnDays
	}
	if changed("warranty-days") {
		p.WarrantyDays = &editWarrantyDays
	}
	if p.Empty() {
		return fmt.Errorf("nothing to change, see proofpal edit --help")
	}

	rec, err := proof.Service.Update(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Println(formatter.FormatSuccess(fmt.Sprintf("Updated %s (%s)", rec.Label, rec.ShortID())))
	return nil
}
