package reconcile

import "github.com/deskforge/deskforge/pkg/profiles"

// Outcome is the final disposition of one attempted package.
type Outcome string

const (
	OutcomeInstalled Outcome = "installed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Entry records one package's disposition, in processing order.
type Entry struct {
	Name    string
	Source  profiles.Source
	Outcome Outcome
}

// Ledger partitions every attempted package into exactly one of three
// buckets. Populated incrementally during reconciliation, read once by
// the reporter and the run-history store.
type Ledger struct {
	Installed []string
	Failed    []string
	Skipped   []string

	// Entries keeps the full ordered record behind the three buckets.
	Entries []Entry
}

func (l *Ledger) record(name string, source profiles.Source, outcome Outcome) {
	l.Entries = append(l.Entries, Entry{Name: name, Source: source, Outcome: outcome})
	switch outcome {
	case OutcomeInstalled:
		l.Installed = append(l.Installed, name)
	case OutcomeFailed:
		l.Failed = append(l.Failed, name)
	case OutcomeSkipped:
		l.Skipped = append(l.Skipped, name)
	}
}

// Total is the number of packages processed.
func (l *Ledger) Total() int {
	return len(l.Entries)
}
