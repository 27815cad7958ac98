package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/reboot/internal/config"
	"github.com/faucetdb/reboot/internal/journal"
	"github.com/faucetdb/reboot/internal/model"
)

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var (
		limit      int
		dir        string
		jsonOutput bool
		pruneAge   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded reboot attempts",
		Long: `List reboot attempts from the journal, newest first.

Output is a table on a terminal and YAML when piped. The journal is only
written when reboot runs with --journal (or REBOOT_JOURNAL).`,
		Example: `  reboot history --journal ~/.reboot
  reboot history --journal ~/.reboot --dir ~/src/site --limit 5 --json
  reboot history --journal ~/.reboot --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Attempts record absolute directories.
			launchDir, err := absPath(dir)
			if err != nil {
				return fmt.Errorf("resolve --dir: %w", err)
			}
			filter := journal.ListFilter{LaunchDir: launchDir, Limit: limit}
			return runHistory(cmd.OutOrStdout(), cmd.ErrOrStderr(), v, filter, jsonOutput, pruneAge)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of attempts to show (0 for all)")
	cmd.Flags().StringVar(&dir, "dir", "", "only show attempts for this project directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output attempts as JSON")
	cmd.Flags().DurationVar(&pruneAge, "prune", 0, "delete attempts older than this before listing")

	return cmd
}

func runHistory(w, errW io.Writer, v *viper.Viper, filter journal.ListFilter, jsonOutput bool, pruneAge time.Duration) error {
	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	store, err := openJournal(settings.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if pruneAge > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-pruneAge))
		if err != nil {
			return err
		}
		fmt.Fprintf(errW, "Pruned %d attempt(s) older than %s.\n", n, pruneAge)
	}

	attempts, err := store.List(ctx, filter)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(attempts)
	case !stdoutIsTerminal():
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(attempts); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(attempts) == 0 {
		fmt.Fprintln(w, "No reboots recorded.")
		return nil
	}
	printAttemptTable(w, attempts)
	return nil
}

func printAttemptTable(w io.Writer, attempts []model.Attempt) {
	fmt.Fprintf(w, "%-20s %-10s %-8s %-8s %-7s %-30s %s\n", "STARTED", "STATE", "PID", "NEW PID", "KILLED", "DIR", "COMMAND")
	fmt.Fprintf(w, "%-20s %-10s %-8s %-8s %-7s %-30s %s\n", "-------", "-----", "---", "-------", "------", "---", "-------")
	for _, a := range attempts {
		newPID := "-"
		if a.Succeeded() {
			newPID = fmt.Sprintf("%d", a.NewPID)
		}
		killed := "no"
		if a.Killed {
			killed = "yes"
		}
		fmt.Fprintf(w, "%-20s %-10s %-8d %-8s %-7s %-30s %s\n",
			a.StartedAt.Local().Format("2006-01-02 15:04:05"),
			a.State, a.TargetPID, newPID, killed,
			truncate(a.LaunchDir, 30), strings.Join(a.Command, " "))
		if a.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", a.Error)
		}
	}
}

// truncate shortens s from the left so the end of a path stays visible.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-(n-3):]
}
