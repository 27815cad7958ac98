package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/reboot/internal/config"
	"github.com/faucetdb/reboot/internal/journal"
	"github.com/faucetdb/reboot/internal/model"
	"github.com/faucetdb/reboot/internal/reboot"
)

func runReboot(cmd *cobra.Command, v *viper.Viper, sys reboot.System, args []string) error {
	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), settings.Debug)

	// The controller changes directory, so pin the journal location first.
	journalDir, err := absPath(settings.Journal)
	if err != nil {
		return fmt.Errorf("resolve journal path: %w", err)
	}

	rep := reboot.NewReporter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctrl := reboot.New(settings.ControllerConfig(), sys, rep, logger)

	logger.Debug("starting reboot", "args", args, "command", settings.Command,
		"grace", settings.Grace, "kill_wait", settings.KillWait)

	// Invalid arguments return a zero attempt before anything is signaled,
	// so they are never journaled.
	attempt, runErr := ctrl.Reboot(args)

	if journalDir != "" && attempt.RunID != "" {
		if err := recordAttempt(journalDir, &attempt); err != nil {
			rep.Warn("failed to record reboot in journal: %v", err)
		} else {
			logger.Debug("recorded attempt", "journal", journalDir, "id", attempt.ID)
		}
	}
	return runErr
}

func recordAttempt(dir string, a *model.Attempt) error {
	store, err := journal.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(context.Background(), a)
}
