// Package provision orchestrates one end-to-end run: pre-flight,
// distribution detection, package-source configuration, reconciliation,
// finalization and reporting, with the fatal/recoverable error split the
// stages agree on.
package provision

import (
	"context"
	"os"
	"time"

	"github.com/deskforge/deskforge/pkg/configure"
	"github.com/deskforge/deskforge/pkg/distro"
	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/finalize"
	"github.com/deskforge/deskforge/pkg/preflight"
	"github.com/deskforge/deskforge/pkg/profiles"
	"github.com/deskforge/deskforge/pkg/reconcile"
	"github.com/deskforge/deskforge/pkg/report"
	"github.com/deskforge/deskforge/pkg/stores"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

// Pipeline drives the provisioning stages in their fixed order.
type Pipeline struct {
	rc  *RunContext
	log *telemetry.Logger

	closeLog func() error
}

// NewPipeline opens the session log and prepares the run.
func NewPipeline(rc *RunContext) (*Pipeline, error) {
	log, closeLog, err := telemetry.NewSession(rc.LogPath)
	if err != nil {
		return nil, NewFatalError("setup", "failed to open session log", err)
	}
	return &Pipeline{rc: rc, log: log, closeLog: closeLog}, nil
}

// Run executes the stages. Fatal stage errors abort; everything else is
// absorbed into the ledger and the final report.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.cleanup()

	started := time.Now()
	rc := p.rc

	if rc.DryRun {
		p.log.DryRunf("simulation: no command below will be executed")
	}
	p.log.Infof("run %s starting (profile: %s)", rc.ID, rc.Profile)

	runner := execute.NewExecutor(p.log, rc.DryRun)

	if err := preflight.NewChecker(p.log, rc.DryRun).Check(ctx); err != nil {
		return NewFatalError("preflight", "host validation failed", err)
	}
	p.snapshot(ctx, runner)

	info, err := distro.Detect()
	if err != nil {
		return NewFatalError("detect", "unsupported distribution", err)
	}
	p.log.Infof("detected %s (family: %s)", info.ID, info.Family)

	cfg, err := configure.New(info, rc.Profile, runner, p.log, rc.RealUser.Name)
	if err != nil {
		return NewFatalError("configure", "no configurator available", err)
	}
	result, err := cfg.Configure(ctx)
	if err != nil {
		return NewFatalError("configure", "package source configuration failed", err)
	}

	groups, err := profiles.Select(info.Family, rc.Profile)
	if err != nil {
		return NewFatalError("profiles", "profile selection failed", err)
	}

	rec := reconcile.New(runner, p.log, info.Family, result.AURHelper, rc.RealUser.Name, result.FailedModules)
	ledger := rec.Run(ctx, groups)
	p.log.Infof("reconciliation complete: %s", reconcile.Describe(ledger))

	finalize.New(runner, p.log).Apply(ctx)

	p.recordRun(ctx, info, ledger, started)
	report.Show(os.Stdout, ledger, rc.LogPath)

	p.log.Infof("run %s finished in %s", rc.ID, time.Since(started).Round(time.Second))
	return nil
}

// snapshot records the pre-run package set. Best effort: a failed
// snapshot is a warning, never an abort.
func (p *Pipeline) snapshot(ctx context.Context, runner execute.Runner) {
	if p.rc.DryRun {
		p.log.DryRunf("would snapshot installed packages to %s", p.rc.StateDir)
		return
	}
	path, err := preflight.Snapshot(ctx, runner, p.rc.StateDir)
	if err != nil {
		p.log.WithError(err).Warn("package snapshot failed")
		return
	}
	p.log.Infof("package snapshot written to %s", path)
}

// recordRun persists the ledger into the run-history database. Best
// effort, and skipped entirely in dry-run.
func (p *Pipeline) recordRun(ctx context.Context, info *distro.Info, ledger *reconcile.Ledger, started time.Time) {
	if p.rc.DryRun {
		return
	}

	store, err := stores.NewRunStore(stores.Config{Path: p.rc.DBPath()})
	if err == nil {
		err = store.Init(ctx)
	}
	if err == nil {
		defer func() { _ = store.Close() }()
		err = store.Migrate(ctx)
	}
	if err == nil {
		err = store.RecordRun(ctx, runRecord(p.rc, info, ledger, started))
	}
	if err != nil {
		p.log.WithError(err).Warn("failed to record run history")
		return
	}
	p.log.Debugf("run history recorded in %s", p.rc.DBPath())
}

func runRecord(rc *RunContext, info *distro.Info, ledger *reconcile.Ledger, started time.Time) stores.RunRecord {
	rec := stores.RunRecord{
		ID:         rc.ID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Family:     string(info.Family),
		Profile:    string(rc.Profile),
		DryRun:     rc.DryRun,
	}
	for _, e := range ledger.Entries {
		rec.Results = append(rec.Results, stores.PackageResult{
			Name:    e.Name,
			Source:  string(e.Source),
			Outcome: string(e.Outcome),
		})
	}
	return rec
}

// cleanup runs on every exit path: close the session log and hand it
// back to the invoking user so it stays readable without sudo.
func (p *Pipeline) cleanup() {
	if p.closeLog != nil {
		_ = p.closeLog()
	}
	if u := p.rc.RealUser; u.Known() {
		_ = os.Chown(p.rc.LogPath, u.UID, u.GID)
	}
}
