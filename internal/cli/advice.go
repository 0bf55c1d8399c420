package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"balansim/internal/advice"
)

func newAdviceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Ask for advice on the current totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer a.closeLedger(ctx, ledger)

			svc, stop := a.startAdvice(ctx)
			defer stop()

			res := svc.Advise(ctx, advice.Summarize(ledger.Snapshot()))
			if res.Fallback {
				fmt.Fprintln(cmd.OutOrStdout(), formatWarning(res.Text))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
}
