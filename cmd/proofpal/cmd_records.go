package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/tracker"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List purchases with their deadline status",
	Long: `List purchases, most recent first.

Examples:
  proofpal list --store Fnac
  proofpal list --return-before 2024-02-01
  proofpal list --text "laptop" --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show return and warranty status",
	Long: `Show the return and warranty status of one purchase, or of every
purchase with a tracked deadline, most urgent first.

Examples:
  proofpal status
  proofpal status --kind warranty
  proofpal status 3f2a`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a purchase with its attachments, reminders and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a purchase with its attachments and history",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var (
	listText           string
	listStore          string
	listCategory       string
	listFrom           string
	listTo             string
	listReturnBefore   string
	listWarrantyBefore string
	listJSON           bool
	statusKind         string
)

func init() {
	rootCmd.AddCommand(listCmd, statusCmd, showCmd, deleteCmd)

	listCmd.Flags().StringVar(&listText, "text", "", "Match label, store, category or notes")
	listCmd.Flags().StringVar(&listStore, "store", "", "Exact store")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Exact category")
	listCmd.Flags().StringVar(&listFrom, "from", "", "Purchased on or after YYYY-MM-DD")
	listCmd.Flags().StringVar(&listTo, "to", "", "Purchased on or before YYYY-MM-DD")
	listCmd.Flags().StringVar(&listReturnBefore, "return-before", "", "Return window ends on or before YYYY-MM-DD")
	listCmd.Flags().StringVar(&listWarrantyBefore, "warranty-before", "", "Warranty ends on or before YYYY-MM-DD")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON")

	statusCmd.Flags().StringVar(&statusKind, "kind", "", "Only this deadline: return or warranty")
}

func listFilter() (purchase.Filter, error) {
	f := purchase.Filter{Text: listText, Store: listStore, Category: listCategory}
	dates := []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"from", listFrom, &f.PurchasedFrom},
		{"to", listTo, &f.PurchasedTo},
		{"return-before", listReturnBefore, &f.ReturnBefore},
		{"warranty-before", listWarrantyBefore, &f.WarrantyBefore},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		t, err := parseDateFlag(d.name, d.value)
		if err != nil {
			return purchase.Filter{}, err
		}
		*d.dst = t
	}
	return f, nil
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := listFilter()
	if err != nil {
		return err
	}
	list, err := proof.Service.Statuses(cmd.Context(), f)
	if err != nil {
		return err
	}

	if listJSON {
		records := make([]purchase.Record, 0, len(list))
		for _, rs := range list {
			records = append(records, rs.Record)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	fmt.Println(formatter.FormatRecordList(list))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pick := func(st deadline.Statuses) deadline.Status { return st.MostUrgent() }
	if statusKind != "" {
		kind, err := deadline.ParseKind(statusKind)
		if err != nil {
			return err
		}
		pick = func(st deadline.Statuses) deadline.Status { return st.For(kind) }
	}

	if len(args) == 1 {
		id, err := proof.Service.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		st, err := proof.Service.Status(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", st.Record.Label, st.Record.ShortID())
		for _, s := range st.Statuses.All() {
			if statusKind == "" || s.Kind == pick(st.Statuses).Kind {
				fmt.Println("  " + formatter.FormatStatus(s))
			}
		}
		return nil
	}

	list, err := proof.Service.Statuses(ctx, purchase.Filter{})
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(rs tracker.RecordStatus) bool {
		return !pick(rs.Statuses).Tracked()
	})
	slices.SortStableFunc(list, func(a, b tracker.RecordStatus) int {
		switch {
		case deadline.MoreUrgent(pick(a.Statuses), pick(b.Statuses)):
			return -1
		case deadline.MoreUrgent(pick(b.Statuses), pick(a.Statuses)):
			return 1
		}
		return 0
	})
	if len(list) == 0 {
		fmt.Println(formatter.FormatInfo("No tracked deadlines."))
		return nil
	}
	for _, rs := range list {
		fmt.Printf("%s  %-24s %s\n", rs.Record.ShortID(), rs.Record.Label, formatter.FormatStatus(pick(rs.Statuses)))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	snap, err := proof.Service.Snapshot(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(formatter.FormatRecordDetail(snap))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := proof.Service.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	rec, err := proof.Service.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := proof.Service.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Println(formatter.FormatSuccess(fmt.Sprintf("Deleted %s (%s)", rec.Label, rec.ShortID())))
	return nil
}
