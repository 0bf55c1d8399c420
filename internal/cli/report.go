package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"balansim/internal/analytics"
	"balansim/internal/core"
)

func newReportCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print totals, category breakdown and the last 7 and 15 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			r := analytics.BuildReport(ledger.Snapshot(), time.Now(), a.cfg.Location())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return writeReport(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func writeReport(out io.Writer, r core.Report) error {
	fmt.Fprintln(out, titleStyle.Render("Totals"))
	writeTotals(out, r.Totals)

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Stats"))
	fmt.Fprintf(out, "Net savings:       %s\n", r.Stats.NetSavings)
	fmt.Fprintf(out, "Expense ratio:     %.1f%%\n", r.Stats.ExpenseRatio)
	fmt.Fprintf(out, "Savings rate:      %.1f%%\n", r.Stats.SavingsRate)
	fmt.Fprintf(out, "Average daily:     %s\n", r.Stats.AverageDaily)
	fmt.Fprintf(out, "Projected balance: %s\n", r.Stats.ProjectedBalance)

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Expenses by category"))
	if len(r.Breakdown) == 0 {
		fmt.Fprintln(out, subtleStyle.Render("No expenses yet."))
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range r.Breakdown {
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", c.Name, c.Value, c.Share*100)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Last 7 days"))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", headerStyle.Render("Day"), headerStyle.Render("Income"), headerStyle.Render("Expense"))
	for _, d := range r.DailyFlow {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Date, d.Income, d.Expense)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Balance, last 15 days"))
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range r.BalanceTrend {
		fmt.Fprintf(w, "%s\t%s\n", d.Date, d.Balance)
	}
	return w.Flush()
}
