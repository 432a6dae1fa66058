package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/worker"
	"github.com/vibast-solutions/ms-go-lostfound-auth/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired sessions and tokens once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err = configureLogging(cfg); err != nil {
			return err
		}

		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := worker.NewSweeper(repository.NewMySQLStore(db), cfg.Sweeper.Interval).SweepOnce(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "sessions: %d\nverification_tokens: %d\nreset_tokens: %d\n",
			result.Sessions, result.VerificationTokens, result.ResetTokens)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
