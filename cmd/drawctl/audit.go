package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/app"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

var (
	auditLimit int
	auditDate  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent draw console actions from the audit trail",
	Long:  "Reads the MongoDB audit trail. Without mongodb.uri only actions of this process are known, so the list is empty.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var day time.Time
		if auditDate != "" {
			d, err := models.ParseDate(strings.TrimSpace(auditDate))
			if err != nil {
				return eris.Wrapf(err, "parse --date %q", auditDate)
			}
			day = d
		}

		repo, closeAudit, err := app.OpenAuditRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeAudit(ctx)

		var entries []*models.DrawAudit
		if day.IsZero() {
			entries, err = repo.FindRecent(ctx, auditLimit)
		} else {
			entries, err = repo.FindByDrawDate(ctx, day)
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tOPERATOR\tACTION\tOUTCOME\tDRAW DATE\tDRAW")
		for _, a := range entries {
			draw := a.DrawID
			if draw == "" {
				draw = a.ExistingDrawID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				a.CreatedAt.Format("2006-01-02 15:04:05"), a.Operator, a.Action, a.Outcome,
				a.DrawDate.Format(models.DateLayout), draw)
		}
		return tw.Flush()
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "number of entries to show")
	auditCmd.Flags().StringVar(&auditDate, "date", "", "show every entry for this draw date (YYYY-MM-DD) instead")
	rootCmd.AddCommand(auditCmd)
}
