// Package reconcile walks the selected package lists and brings each
// entry to the installed state, recording every package into exactly
// one of the ledger's three buckets.
package reconcile

import (
	"context"
	"fmt"

	"github.com/deskforge/deskforge/pkg/distro"
	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/profiles"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

// Reconciler installs the packages of the selected profile.
type Reconciler struct {
	runner   execute.Runner
	log      *telemetry.Logger
	family   distro.Family
	helper   string
	realUser string

	failedModules map[string]bool
}

// New creates a reconciler. helper is the discovered auxiliary helper
// ("" when none); failedModules lists COPR modules that did not
// activate, whose dependent packages are skipped outright.
func New(runner execute.Runner, log *telemetry.Logger, family distro.Family, helper, realUser string, failedModules []string) *Reconciler {
	failed := make(map[string]bool, len(failedModules))
	for _, module := range failedModules {
		failed[module] = true
	}
	return &Reconciler{
		runner:        runner,
		log:           log.Component("reconcile"),
		family:        family,
		helper:        helper,
		realUser:      realUser,
		failedModules: failed,
	}
}

// Run processes every group in order and returns the populated ledger.
// Individual package failures are recorded, never returned: a partial
// install is surfaced by the report, not by aborting the run.
func (r *Reconciler) Run(ctx context.Context, groups []profiles.Group) *Ledger {
	ledger := &Ledger{}
	for _, group := range groups {
		r.installGroup(ctx, group, ledger)
	}
	return ledger
}

func (r *Reconciler) installGroup(ctx context.Context, group profiles.Group, ledger *Ledger) {
	if len(group.Packages) == 0 {
		return
	}

	// Auxiliary lists without a helper are an intentionally degraded
	// path: record everything skipped without attempting anything.
	if group.Source == profiles.SourceAux && r.helper == "" {
		r.log.Warnf("no auxiliary helper, skipping %d %s packages", len(group.Packages), group.Label)
		for _, pkg := range group.Packages {
			ledger.record(pkg.Name, group.Source, OutcomeSkipped)
		}
		return
	}

	r.log.Infof("processing %s packages (%d)", group.Label, len(group.Packages))
	for i, pkg := range group.Packages {
		r.installOne(ctx, group, pkg, i+1, len(group.Packages), ledger)
	}
}

func (r *Reconciler) installOne(ctx context.Context, group profiles.Group, pkg profiles.Package, n, total int, ledger *Ledger) {
	if pkg.RequiresModule != "" && r.failedModules[pkg.RequiresModule] {
		r.log.Warnf("[%d/%d] skipping %s: COPR module %s did not activate", n, total, pkg.Name, pkg.RequiresModule)
		ledger.record(pkg.Name, group.Source, OutcomeSkipped)
		return
	}

	// The already-installed short-circuit avoids redundant installer
	// invocations and their network calls. Checks are meaningless in
	// dry-run, where the install announcement stands in for the action.
	if !r.runner.DryRun() {
		if _, err := r.runner.Output(ctx, r.checkCommand(pkg.Name)); err == nil {
			r.log.Infof("[%d/%d] %s already installed", n, total, pkg.Name)
			ledger.record(pkg.Name, group.Source, OutcomeInstalled)
			return
		}
	}

	if err := r.runner.Run(ctx, r.installCommand(group.Source, pkg.Name)); err != nil {
		r.log.WithError(err).Errorf("[%d/%d] failed to install %s", n, total, pkg.Name)
		ledger.record(pkg.Name, group.Source, OutcomeFailed)
		return
	}

	r.log.Infof("[%d/%d] installed %s", n, total, pkg.Name)
	ledger.record(pkg.Name, group.Source, OutcomeInstalled)
}

// checkCommand queries the native package database. Auxiliary installs
// register there too, so one query form per family suffices.
func (r *Reconciler) checkCommand(name string) execute.Command {
	switch r.family {
	case distro.FamilyFedora:
		return execute.New("rpm", "-q", name)
	default:
		return execute.New("pacman", "-Qi", name)
	}
}

func (r *Reconciler) installCommand(source profiles.Source, name string) execute.Command {
	if source == profiles.SourceAux {
		// AUR helpers refuse to run as root; install under the real
		// invoking user.
		return execute.New(r.helper, "-S", "--noconfirm", "--needed", name).AsUser(r.realUser)
	}

	switch r.family {
	case distro.FamilyFedora:
		return execute.New("dnf", "install", "-y", name)
	default:
		return execute.New("pacman", "-S", "--noconfirm", "--needed", name)
	}
}

// Describe renders the ledger counts for logs.
func Describe(l *Ledger) string {
	return fmt.Sprintf("%d installed, %d failed, %d skipped",
		len(l.Installed), len(l.Failed), len(l.Skipped))
}
