package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/reboot/internal/config"
	"github.com/faucetdb/reboot/internal/reboot"
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date, reboot.OSSystem())
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string, sys reboot.System) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "reboot <pid> <project_dir>",
		Short: "Restart a service detached from the caller's session",
		Long: `Reboot stops a running service and starts it again.

It sends SIGTERM to <pid>, waits a grace period, sends SIGKILL if the process
is still alive, changes into <project_dir>, and launches the managed command
(default: npm run dev) in a new session so it outlives this process.

Every flag can also be set through a REBOOT_* environment variable, for
example REBOOT_GRACE=2s or REBOOT_COMMAND="go run ./cmd/server".`,
		Example: `  reboot 4242 ~/src/site
  reboot --grace 2s --command make --command serve 4242 .
  reboot --pid-file run/site.pid --journal ~/.reboot $(cat run/site.pid) ~/src/site`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReboot(cmd, v, sys, args)
		},
	}

	cmd.PersistentFlags().String("journal", "", "directory of the SQLite reboot journal (disabled when empty)")
	cmd.PersistentFlags().Bool("debug", false, "emit structured debug logs on stderr")

	cmd.PersistentFlags().Duration("grace", reboot.DefaultGrace, "how long the target gets to exit after SIGTERM")
	cmd.PersistentFlags().Duration("kill-wait", reboot.DefaultKillWait, "how long to wait after SIGKILL before relaunching")
	cmd.PersistentFlags().StringArray("command", reboot.DefaultCommand, "argv of the managed command, one flag per argument")
	cmd.PersistentFlags().String("pid-file", "", "lock this file during the reboot and write the new PID to it")
	cmd.PersistentFlags().String("output", "", "append the new process's stdout and stderr to this file")

	bindFlags(v, cmd)
	cmd.SetFlagErrorFunc(negativePIDError)

	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newHistoryCmd(v))
	cmd.AddCommand(newConfigCmd(v))

	return cmd
}

// bindFlags ties each flag to its viper key so flags win over environment
// variables, which win over defaults.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	v.BindPFlag(config.KeyJournal, cmd.PersistentFlags().Lookup("journal"))
	v.BindPFlag(config.KeyDebug, cmd.PersistentFlags().Lookup("debug"))
	v.BindPFlag(config.KeyGrace, cmd.PersistentFlags().Lookup("grace"))
	v.BindPFlag(config.KeyKillWait, cmd.PersistentFlags().Lookup("kill-wait"))
	v.BindPFlag(config.KeyCommand, cmd.PersistentFlags().Lookup("command"))
	v.BindPFlag(config.KeyPIDFile, cmd.PersistentFlags().Lookup("pid-file"))
	v.BindPFlag(config.KeyOutput, cmd.PersistentFlags().Lookup("output"))
}

// negativePIDError turns "reboot -5 <dir>", which pflag rejects as an unknown
// shorthand flag, into the same error as any other invalid pid.
func negativePIDError(cmd *cobra.Command, err error) error {
	if cmd.HasParent() {
		return err
	}
	_, token, ok := strings.Cut(err.Error(), " in ")
	if !ok || !strings.HasPrefix(err.Error(), "unknown shorthand flag") {
		return err
	}
	if n, convErr := strconv.Atoi(token); convErr == nil && n < 0 {
		return fmt.Errorf("%w: %s", reboot.ErrInvalidPID, token)
	}
	return err
}

// stdoutIsTerminal is swapped out in tests.
var stdoutIsTerminal = func() bool {
	return isTerminal(os.Stdout)
}
