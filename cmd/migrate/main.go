// Command migrate applies, inspects and exports the schema ledger.
package main

import (
	"fmt"
	"os"

	"github.com/xerocraft/backend/internal/infrastructure/migration"
)

// Exit codes. A ledger error means the migrations themselves need fixing;
// anything else is usually the database or the environment.
const (
	exitFailure     = 1
	exitLedgerError = 2
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	e := defaultEnv()
	err := newRootCommand(e).Execute()
	e.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if migration.IsLedgerError(err) {
		return exitLedgerError
	}
	return exitFailure
}
