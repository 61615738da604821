package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/tracker"
	"github.com/notexe/proofpal/internal/ui"
)

var addCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Record a purchase",
	Long: `Record a purchase. The return window and warranty default to the
configured periods and are counted in calendar days from the purchase date.

Examples:
  proofpal add "Laptop" --store Fnac --amount 999.90 --date 2024-01-01
  proofpal add "Kettle" --return-days 0 --warranty-months 12 --attach receipt.pdf
  proofpal add               # asks for each field`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

var (
	addStore          string
	addCategory       string
	addAmount         string
	addDate           string
	addReturnDays     int
	addWarrantyDays   int
	addWarrantyMonths int
	addNotes          string
	addAttach         []string
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addStore, "store", "", "Where it was bought")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Free-form category")
	addCmd.Flags().StringVar(&addAmount, "amount", "", "Price paid, e.g. 129.99")
	addCmd.Flags().StringVar(&addDate, "date", "", "Purchase date YYYY-MM-DD (default today)")
	addCmd.Flags().IntVar(&addReturnDays, "return-days", 0, "Return window in days, 0 for none (default from config)")
	addCmd.Flags().IntVar(&addWarrantyDays, "warranty-days", 0, "Warranty in days, 0 for none")
	addCmd.Flags().IntVar(&addWarrantyMonths, "warranty-months", 0, "Warranty in months (default from config)")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Optional notes")
	addCmd.Flags().StringSliceVar(&addAttach, "attach", nil, "Receipt or photo to attach (repeatable)")
	addCmd.MarkFlagsMutuallyExclusive("warranty-days", "warranty-months")
}

func runAdd(cmd *cobra.Command, args []string) error {
	svc := proof.Service
	defaults := proof.Config.Defaults

	if len(args) == 0 {
		in, err := askPurchase(cmd)
		if err != nil {
			return err
		}
		return addAndReport(cmd, in)
	}

	date := svc.Today()
	if addDate != "" {
		d, err := parseDateFlag("date", addDate)
		if err != nil {
			return err
		}
		date = d
	}
	amount, err := parseAmountFlag(addAmount)
	if err != nil {
		return err
	}

	in := tracker.Input{
		Label:        args[0],
		Store:        addStore,
		Category:     addCategory,
		Amount:       amount,
		PurchaseDate: date,
		ReturnDays:   defaults.ReturnDays,
		WarrantyDays: purchase.MonthsToDays(date, defaults.WarrantyMonths),
		Notes:        addNotes,
	}
	if cmd.Flags().Changed("return-days") {
		in.ReturnDays = addReturnDays
	}
	switch {
	case cmd.Flags().Changed("warranty-days"):
		in.WarrantyDays = addWarrantyDays
	case cmd.Flags().Changed("warranty-months"):
		in.WarrantyDays = purchase.MonthsToDays(date, addWarrantyMonths)
	}

	return addAndReport(cmd, in)
}

func askPurchase(cmd *cobra.Command) (tracker.Input, error) {
	stores, categories, err := proof.Service.Suggestions(cmd.Context())
	if err != nil {
		return tracker.Input{}, err
	}

	p, err := ui.NewPrompter()
	if err != nil {
		return tracker.Input{}, err
	}
	defer p.Close()

	return p.AskPurchase(ui.PurchaseDefaults{
		Today:          proof.Service.Today(),
		ReturnDays:     proof.Config.Defaults.ReturnDays,
		WarrantyMonths: proof.Config.Defaults.WarrantyMonths,
		Stores:         stores,
		Categories:     categories,
	})
}

func addAndReport(cmd *cobra.Command, in tracker.Input) error {
	ctx := cmd.Context()
	svc := proof.Service

	rec, err := svc.Add(ctx, in)
	if err != nil {
		return err
	}
	fmt.Println(formatter.FormatSuccess(fmt.Sprintf("Added %s (%s)", rec.Label, rec.ShortID())))

	for _, path := range addAttach {
		a, err := svc.Attach(ctx, rec.ID, path)
		if err != nil {
			return fmt.Errorf("purchase saved, but %s could not be attached: %w", path, err)
		}
		fmt.Println(formatter.FormatSuccess("Attached " + a.Filename))
	}

	st, err := svc.Status(ctx, rec.ID)
	if err != nil {
		return err
	}
	for _, s := range st.Statuses.All() {
		fmt.Println("  " + formatter.FormatStatus(s))
	}
	return nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	t, err := purchase.ParseDate(value)
	if err != nil {
		return time.Time{}, &purchase.ValidationError{Field: name, Reason: "expected YYYY-MM-DD, got " + value}
	}
	return t, nil
}

func parseAmountFlag(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &purchase.ValidationError{Field: "amount", Reason: "not a number: " + value}
	}
	return d, nil
}
