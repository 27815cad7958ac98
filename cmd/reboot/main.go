// reboot terminates a service and relaunches it detached from the caller.
package main

import (
	"os"

	"github.com/faucetdb/reboot/cmd/reboot/cli"
	"github.com/faucetdb/reboot/internal/reboot"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		reboot.NewReporter(os.Stdout, os.Stderr).Error(err)
		os.Exit(1)
	}
}
