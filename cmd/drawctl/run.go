package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/app"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

var (
	runDate      string
	runStructure string
	runFile      string
	runYes       bool
	runNoRerun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a draw, rerunning an existing one only after confirmation",
	Long: `Submits a draw for --date with --structure. Without --file the backend
draws from its live participant feed; with --file the uploaded weighted
entries are used instead.

If a draw already exists for the date and the backend allows a rerun, you
are asked to confirm. --yes confirms and --no-rerun declines without asking.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		date, err := models.ParseDate(runDate)
		if err != nil {
			return eris.Errorf("invalid --date %q, want YYYY-MM-DD", runDate)
		}
		session, err := operatorSession()
		if err != nil {
			return err
		}

		var entries []models.ParticipantEntry
		if runFile != "" {
			imp, err := readEntriesFile(runFile)
			if err != nil {
				return err
			}
			if err := utils.RequireEntries(imp.Entries); err != nil {
				return eris.New(apperrors.UserMessage(err))
			}
			fmt.Fprintf(out, "Loaded %d entries from %s (%d rows skipped)\n", len(imp.Entries), runFile, imp.Skipped())
			entries = imp.Entries
		}

		audit, closeAudit, err := app.OpenAuditRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeAudit(ctx)

		console := app.NewConsoleService(cfg, app.NewPromoClient(cfg), audit)
		structure, err := console.ResolvePrizeStructure(ctx, session, date, runStructure)
		if err != nil {
			return eris.New(apperrors.UserMessage(err))
		}

		req, err := services.BuildDrawRequest(services.DrawRequestInput{
			DrawDate:         date,
			PrizeStructure:   structure,
			PrizeStructureID: runStructure,
			Entries:          entries,
		})
		if err != nil {
			return eris.New(apperrors.UserMessage(err))
		}

		ctrl := console.Controller(session)
		result, err := ctrl.Execute(ctx, req)
		var conflict *apperrors.ConflictError
		if errors.As(err, &conflict) {
			fmt.Fprintln(out, apperrors.UserMessage(conflict))
			rerun, askErr := confirmRerun(cmd.InOrStdin(), out, conflict.ExistingDrawID)
			if askErr != nil {
				return askErr
			}
			if !rerun {
				if err := ctrl.DeclineRerun(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "Rerun declined; the existing draw is unchanged.")
				return nil
			}
			result, err = ctrl.ConfirmRerun(ctx)
		}
		if err != nil {
			return eris.New(apperrors.UserMessage(err))
		}

		zap.L().Info("draw finished", zap.String("draw_id", result.DrawID), zap.String("mode", string(req.Mode())))
		fmt.Fprintf(out, "Draw %s completed for %s\n\n", result.DrawID, req.DateString())
		return printView(out, services.ReconcileWinners(*result, *structure), session.Privileged())
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "draw date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runStructure, "structure", "", "prize structure id")
	runCmd.Flags().StringVar(&runFile, "file", "", "optional participant file (.csv or .xlsx)")
	runCmd.Flags().BoolVar(&runYes, "yes", false, "confirm a rerun without asking")
	runCmd.Flags().BoolVar(&runNoRerun, "no-rerun", false, "decline a rerun without asking")
	_ = runCmd.MarkFlagRequired("date")
	_ = runCmd.MarkFlagRequired("structure")
	runCmd.MarkFlagsMutuallyExclusive("yes", "no-rerun")
	rootCmd.AddCommand(runCmd)
}

// confirmRerun decides whether the existing draw is rerun. Anything but an
// explicit yes declines.
func confirmRerun(in io.Reader, out io.Writer, existingDrawID string) (bool, error) {
	switch {
	case runYes:
		return true, nil
	case runNoRerun:
		return false, nil
	}

	fmt.Fprintf(out, "Rerun draw %s? This replaces its winners. [y/N]: ", existingDrawID)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, eris.Wrap(err, "read answer")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
