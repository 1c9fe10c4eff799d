package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/app"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
)

var winnersDrawID string

var winnersCmd = &cobra.Command{
	Use:   "winners",
	Short: "Show the reconciled winners grid of a draw",
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, err := operatorSession()
		if err != nil {
			return err
		}

		console := app.NewConsoleService(cfg, app.NewPromoClient(cfg), nil)
		view, err := console.Winners(cmd.Context(), session, winnersDrawID)
		if err != nil {
			return eris.New(apperrors.UserMessage(err))
		}
		return printView(cmd.OutOrStdout(), view, session.Privileged())
	},
}

func init() {
	winnersCmd.Flags().StringVar(&winnersDrawID, "draw-id", "", "draw id")
	_ = winnersCmd.MarkFlagRequired("draw-id")
	rootCmd.AddCommand(winnersCmd)
}

// printView writes one table per tier: the main winner then its runner-ups.
func printView(w io.Writer, view services.ReconciledView, privileged bool) error {
	for i, tier := range view.Tiers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d prizes, %d runner-ups each)\n", tier.TierName, tier.PrizeCount, tier.RunnerUpCountPerPrize)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		header := []string{"#", "WINNER"}
		for k := 1; k <= tier.RunnerUpCountPerPrize; k++ {
			header = append(header, fmt.Sprintf("RUNNER-UP %d", k))
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for r, cells := range tier.Grid(privileged) {
			fmt.Fprintf(tw, "%d\t%s\n", r+1, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if len(tier.Overflow) > 0 {
			fmt.Fprintf(w, "Unplaced runner-ups: %s\n", strings.Join(displayAll(tier.Overflow, privileged), ", "))
		}
	}

	if len(view.Unmatched) > 0 {
		fmt.Fprintf(w, "\nWinners in tiers missing from the prize structure: %s\n",
			strings.Join(displayAll(view.Unmatched, privileged), ", "))
	}
	return nil
}

func displayAll(winners []models.WinnerRecord, privileged bool) []string {
	out := make([]string, 0, len(winners))
	for _, wr := range winners {
		out = append(out, fmt.Sprintf("%s/%s", wr.TierName, services.DisplayWinner(wr, privileged)))
	}
	return out
}
