package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

var (
	cfg       *config.Config
	flagToken string
)

var rootCmd = &cobra.Command{
	Use:   "drawctl",
	Short: "Operate promo draws from the command line",
	Long:  "Lists prize structures, validates participant uploads, runs draws with the confirmed-rerun flow and shows reconciled winners.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token for the promo backend (default api.token)")
}

// operatorSession resolves the operator from --token or api.token.
func operatorSession() (models.Session, error) {
	token := flagToken
	if token == "" {
		token = cfg.API.Token
	}
	if token == "" {
		return models.Session{}, eris.New("no backend token: pass --token or set DRAWCONSOLE_API_TOKEN")
	}
	session, err := utils.SessionFromToken(token, cfg.JWT.Secret)
	if err != nil {
		return models.Session{}, eris.Wrap(err, "invalid backend token")
	}
	return session, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
