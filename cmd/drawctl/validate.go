package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a participant CSV or XLSX file without submitting it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		imp, err := readEntriesFile(validateFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Rows: %d\nValid: %d\nSkipped: %d\n", imp.TotalRows, len(imp.Entries), imp.Skipped())
		if err := utils.RequireEntries(imp.Entries); err != nil {
			return eris.New(apperrors.UserMessage(err))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "participant file (.csv or .xlsx)")
	_ = validateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCmd)
}

func readEntriesFile(path string) (*utils.EntryImport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	imp, err := utils.ParseEntriesFile(path, data)
	if err != nil {
		return nil, eris.New(apperrors.UserMessage(err))
	}
	return imp, nil
}
