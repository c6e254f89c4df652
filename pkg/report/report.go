// Package report renders the end-of-run summary of the reconciliation
// ledger. Pure read, console output only.
package report

import (
	"fmt"
	"io"

	"github.com/deskforge/deskforge/pkg/reconcile"
)

// Show prints the three bucket counts, the failed and skipped package
// names when present, and where the session log lives.
func Show(w io.Writer, ledger *reconcile.Ledger, logPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Provisioning summary")
	fmt.Fprintf(w, "  installed: %d\n", len(ledger.Installed))
	fmt.Fprintf(w, "  failed:    %d\n", len(ledger.Failed))
	fmt.Fprintf(w, "  skipped:   %d\n", len(ledger.Skipped))

	if len(ledger.Failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed packages:")
		for _, name := range ledger.Failed {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	if len(ledger.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped packages:")
		for _, name := range ledger.Skipped {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Session log: %s\n", logPath)
}
