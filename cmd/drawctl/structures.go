package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/app"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

var structuresDate string

var structuresCmd = &cobra.Command{
	Use:   "structures",
	Short: "List the prize structures valid for a draw date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := models.ParseDate(structuresDate)
		if err != nil {
			return eris.Errorf("invalid --date %q, want YYYY-MM-DD", structuresDate)
		}
		session, err := operatorSession()
		if err != nil {
			return err
		}

		list, err := app.NewPromoClient(cfg).ListValidForDate(cmd.Context(), session, date)
		if err != nil {
			return eris.Wrap(err, "structures: list")
		}
		if len(list) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No prize structures are valid for %s\n", date.Format(models.DateLayout))
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTIERS\tPRIZES")
		for _, ps := range list {
			prizes := 0
			for _, t := range ps.Tiers {
				prizes += t.PrizeCount
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", ps.ID, ps.Name, len(ps.Tiers), prizes)
		}
		return tw.Flush()
	},
}

func init() {
	structuresCmd.Flags().StringVar(&structuresDate, "date", "", "draw date (YYYY-MM-DD)")
	_ = structuresCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(structuresCmd)
}
