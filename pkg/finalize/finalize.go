// Package finalize applies the post-install side effects: flatpak
// remote registration and permission overrides, the polkit policy rule,
// and service enablement. Everything here is non-fatal; failures are
// logged and the run proceeds to the report.
package finalize

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

const (
	flathubName = "flathub"
	flathubURL  = "https://dl.flathub.org/repo/flathub.flatpakrepo"

	polkitRulePath = "/etc/polkit-1/rules.d/49-deskforge.rules"

	// verifyService is checked after enablement; detection only, no
	// corrective action is taken.
	verifyService = "NetworkManager"
)

// GTK theme settings must be readable by sandboxed apps or every
// flatpak renders unthemed. Reapplying an override is itself
// idempotent, so no pre-check is needed.
var flatpakOverrides = []string{
	"--filesystem=xdg-config/gtk-3.0",
	"--filesystem=xdg-config/gtk-4.0",
}

var enableServices = []string{"NetworkManager", "bluetooth"}

// polkitRule grants systemd unit management to the wheel group.
// Written verbatim, overwriting any prior version of the file.
const polkitRule = `/* Managed by deskforge. */
polkit.addRule(function(action, subject) {
    if (action.id == "org.freedesktop.systemd1.manage-units" &&
        subject.isInGroup("wheel")) {
        return polkit.Result.YES;
    }
});
`

// Finalizer applies the post-install configuration.
type Finalizer struct {
	runner execute.Runner
	log    *telemetry.Logger

	// rulePath is overridden in tests.
	rulePath string
}

// New creates a finalizer.
func New(runner execute.Runner, log *telemetry.Logger) *Finalizer {
	return &Finalizer{
		runner:   runner,
		log:      log.Component("finalize"),
		rulePath: polkitRulePath,
	}
}

// Apply runs every finalization step. Under dry-run it only announces.
func (f *Finalizer) Apply(ctx context.Context) {
	if f.runner.DryRun() {
		f.log.DryRunf("would register flatpak remote %s", flathubName)
		f.log.DryRunf("would grant flatpak overrides %s", strings.Join(flatpakOverrides, " "))
		f.log.DryRunf("would write polkit rule %s", f.rulePath)
		f.log.DryRunf("would enable services %s", strings.Join(enableServices, ", "))
		return
	}

	// remote-add with --if-not-exists: re-registering is not an error.
	remote := execute.New("flatpak", "remote-add", "--if-not-exists", flathubName, flathubURL)
	if err := f.runner.Run(ctx, remote); err != nil {
		f.log.WithError(err).Warnf("could not register flatpak remote %s", flathubName)
	} else {
		f.log.Infof("flatpak remote %s registered", flathubName)
	}

	for _, override := range flatpakOverrides {
		if err := f.runner.Run(ctx, execute.New("flatpak", "override", override)); err != nil {
			f.log.WithError(err).Warnf("could not apply flatpak override %s", override)
		}
	}

	f.writeRule()
	f.enableAndVerify(ctx)
}

func (f *Finalizer) writeRule() {
	if err := os.MkdirAll(filepath.Dir(f.rulePath), 0o755); err != nil {
		f.log.WithError(err).Warnf("could not create %s", filepath.Dir(f.rulePath))
		return
	}
	if err := os.WriteFile(f.rulePath, []byte(polkitRule), 0o644); err != nil {
		f.log.WithError(err).Warnf("could not write polkit rule %s", f.rulePath)
		return
	}
	f.log.Infof("wrote polkit rule %s", f.rulePath)
}

func (f *Finalizer) enableAndVerify(ctx context.Context) {
	for _, service := range enableServices {
		if err := f.runner.Run(ctx, execute.New("systemctl", "enable", service)); err != nil {
			f.log.WithError(err).Warnf("could not enable %s", service)
		} else {
			f.log.Infof("enabled %s", service)
		}
	}

	out, err := f.runner.Output(ctx, execute.New("systemctl", "is-enabled", verifyService))
	if err == nil && strings.TrimSpace(out) == "enabled" {
		f.log.Infof("%s verified enabled", verifyService)
		return
	}
	f.log.Errorf("%s is not enabled after finalization", verifyService)
}
