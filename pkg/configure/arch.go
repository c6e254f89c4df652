package configure

import (
	"context"

	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

const pacmanConfPath = "/etc/pacman.conf"

// AUR helpers in discovery preference order.
var aurHelpers = []string{"yay", "paru"}

// archConfigurator prepares an Arch-family host: pacman.conf tuning,
// keyring refresh, full upgrade, AUR helper discovery.
type archConfigurator struct {
	runner   execute.Runner
	log      *telemetry.Logger
	realUser string

	// confPath is overridden in tests.
	confPath string
}

func (a *archConfigurator) Configure(ctx context.Context) (*Result, error) {
	if a.runner.DryRun() {
		a.log.DryRunf("would tune %s (Color, VerbosePkgLists, ParallelDownloads, multilib)", a.confPath)
		a.log.DryRunf("would refresh archlinux-keyring and run a full system upgrade")
		a.log.DryRunf("would probe for an AUR helper (%v) as %s", aurHelpers, a.realUser)
		return &Result{}, nil
	}

	a.tuneConf()

	// Both operations hit mirrors and are the expected transient-failure
	// points, hence the retry policy. A failure here degrades the run
	// but does not abort it.
	keyring := execute.New("pacman", "-Sy", "--noconfirm", "archlinux-keyring")
	if err := a.runner.RunRetry(ctx, keyring, execute.DefaultRetry); err != nil {
		a.log.WithError(err).Warn("keyring refresh failed, installs may hit signature errors")
	}

	upgrade := execute.New("pacman", "-Syu", "--noconfirm")
	if err := a.runner.RunRetry(ctx, upgrade, execute.DefaultRetry); err != nil {
		a.log.WithError(err).Warn("full system upgrade failed, continuing on current package set")
	}

	result := &Result{AURHelper: a.discoverHelper(ctx)}
	if result.AURHelper == "" {
		a.log.Warn("no AUR helper found, auxiliary packages will be skipped")
	} else {
		a.log.Infof("using AUR helper %q", result.AURHelper)
	}
	return result, nil
}

// tuneConf applies the idempotent pacman.conf edits. Edit failures are
// warnings: a stock configuration still installs packages.
func (a *archConfigurator) tuneConf() {
	if backup, err := backupFile(a.confPath); err != nil {
		a.log.WithError(err).Warnf("could not back up %s", a.confPath)
	} else {
		a.log.Infof("backed up %s to %s", a.confPath, backup)
	}

	for _, option := range []string{"Color", "VerbosePkgLists"} {
		changed, err := enableOption(a.confPath, option)
		switch {
		case err != nil:
			a.log.WithError(err).Warnf("could not enable %s", option)
		case changed:
			a.log.Infof("enabled %s", option)
		default:
			a.log.Debugf("%s already enabled", option)
		}
	}

	changed, err := setParallelDownloads(a.confPath, 10)
	switch {
	case err != nil:
		a.log.WithError(err).Warn("could not set ParallelDownloads")
	case changed:
		a.log.Info("set ParallelDownloads = 10")
	}

	changed, err = ensureSection(a.confPath, "multilib", []string{"Include = /etc/pacman.d/mirrorlist"})
	switch {
	case err != nil:
		a.log.WithError(err).Warn("could not enable multilib repository")
	case changed:
		a.log.Info("enabled multilib repository")
	default:
		a.log.Debugf("multilib repository already enabled")
	}
}

// discoverHelper probes for a known AUR helper under the real user's
// identity, since helpers refuse to run as root. First hit wins.
func (a *archConfigurator) discoverHelper(ctx context.Context) string {
	for _, helper := range aurHelpers {
		probe := execute.New(helper, "--version").AsUser(a.realUser)
		if _, err := a.runner.Output(ctx, probe); err == nil {
			return helper
		}
	}
	return ""
}
