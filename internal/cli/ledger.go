package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"balansim/internal/analytics"
	"balansim/internal/core"
	"balansim/internal/services"
)

// printMutation reports a persistence failure as a warning and any other
// error as the command's error.
func printMutation(out io.Writer, err error) error {
	if errors.Is(err, core.ErrPersistence) {
		fmt.Fprintln(out, formatWarning("the change is not saved: "+err.Error()))
		return err
	}
	return err
}

func writeTotals(out io.Writer, t core.Totals) {
	fmt.Fprintf(out, "Income:  %s\n", incomeStyle.Render(t.Income.String()))
	fmt.Fprintf(out, "Expense: %s\n", expenseStyle.Render(t.Expense.String()))
	fmt.Fprintf(out, "Balance: %s\n", headerStyle.Render(t.Balance.String()))
}

func newListCommand(a *app) *cobra.Command {
	var typ, query string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := analytics.HistoryFilter{Query: query}
			if typ != "" && !strings.EqualFold(typ, "all") {
				t, err := core.ParseTransactionType(typ)
				if err != nil {
					return err
				}
				f.Type = t
			}

			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			entries := analytics.History(ledger.Snapshot(), f)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, subtleStyle.Render("No transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"), headerStyle.Render("Date"), headerStyle.Render("Type"),
				headerStyle.Render("Category"), headerStyle.Render("Amount"), headerStyle.Render("Note"))
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Date.In(a.cfg.Location()).Format("2006-01-02 15:04"),
					e.Type, e.CategoryName, e.Signed().String(), e.Note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "INCOME, EXPENSE or ALL")
	cmd.Flags().StringVarP(&query, "query", "q", "", "match note or category name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var categoryID, note string
	cmd := &cobra.Command{
		Use:   "add <income|expense> <amount>",
		Short: "Record a transaction",
		Example: `  balansim add expense 12.50 --category food --note lunch
  balansim add income 2500 --category salary`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := core.ParseTransactionType(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseDecimal(args[1])
			if err != nil {
				return err
			}

			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			out := cmd.OutOrStdout()
			t, err := ledger.AddTransaction(cmd.Context(), services.NewTransaction{
				Type:       typ,
				CategoryID: categoryID,
				Amount:     amount,
				Note:       note,
			})
			if err != nil && !errors.Is(err, core.ErrPersistence) {
				return err
			}
			fmt.Fprintln(out, formatSuccess(fmt.Sprintf("Added %s %s (%s)", strings.ToLower(string(t.Type)), t.Amount, t.ID)))
			writeTotals(out, ledger.Snapshot().Totals())
			return printMutation(out, err)
		},
	}
	cmd.Flags().StringVarP(&categoryID, "category", "c", "cat-6", "category id")
	cmd.Flags().StringVar(&note, "note", "", "free-text note")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			out := cmd.OutOrStdout()
			removed, err := ledger.DeleteTransaction(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, core.ErrPersistence) {
				return err
			}
			if removed {
				fmt.Fprintln(out, formatSuccess("Deleted transaction "+args[0]))
			} else {
				fmt.Fprintln(out, subtleStyle.Render("No transaction "+args[0]+", nothing to delete."))
			}
			writeTotals(out, ledger.Snapshot().Totals())
			return printMutation(out, err)
		},
	}
}

func newBalanceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [starting-balance]",
		Short: "Show the totals, or set the starting balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				starting core.Money
				set      = len(args) == 1
			)
			if set {
				m, err := core.ParseDecimal(args[0])
				if err != nil {
					return err
				}
				starting = m
			}

			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			out := cmd.OutOrStdout()
			if set {
				err = ledger.SetStartingBalance(cmd.Context(), starting)
				if err != nil && !errors.Is(err, core.ErrPersistence) {
					return err
				}
				fmt.Fprintln(out, formatSuccess("Starting balance set to "+starting.String()))
			}
			l := ledger.Snapshot()
			fmt.Fprintf(out, "Starting: %s\n", l.StartingBalance)
			writeTotals(out, l.Totals())
			return printMutation(out, err)
		},
	}
}

func newCategoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(newCategoryListCommand(a))
	cmd.AddCommand(newCategoryAddCommand(a))
	cmd.AddCommand(newCategoryRemoveCommand(a))
	return cmd
}

func newCategoryListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"), headerStyle.Render("Name"), headerStyle.Render("Color"), headerStyle.Render("Kind"))
			for _, c := range ledger.Snapshot().Categories {
				kind := "built-in"
				if c.IsCustom {
					kind = "custom"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Color, kind)
			}
			return w.Flush()
		},
	}
}

func newCategoryAddCommand(a *app) *cobra.Command {
	var icon, color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			out := cmd.OutOrStdout()
			c, err := ledger.AddCategory(cmd.Context(), services.NewCategory{Name: args[0], Icon: icon, Color: color})
			if err != nil && !errors.Is(err, core.ErrPersistence) {
				return err
			}
			fmt.Fprintln(out, formatSuccess(fmt.Sprintf("Added category %q (%s)", c.Name, c.ID)))
			return printMutation(out, err)
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "icon hint")
	cmd.Flags().StringVar(&color, "color", "", "color hint, e.g. #8E44AD")
	return cmd
}

func newCategoryRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <category-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a custom category; its transactions are kept",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeLedger(cmd.Context(), ledger)

			out := cmd.OutOrStdout()
			removed, err := ledger.RemoveCategory(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, core.ErrPersistence) {
				return err
			}
			if removed {
				fmt.Fprintln(out, formatSuccess("Removed category "+args[0]))
			} else {
				fmt.Fprintln(out, subtleStyle.Render("No category "+args[0]+", nothing to remove."))
			}
			return printMutation(out, err)
		},
	}
}
