package configure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

const yumRepoDir = "/etc/yum.repos.d"

// rpmFusionURL templates the release package URL with the tier
// (free/nonfree) and the installed release number.
const rpmFusionURL = "https://mirrors.rpmfusion.org/%[1]s/fedora/rpmfusion-%[1]s-release-%[2]s.noarch.rpm"

const chromeRepo = `[google-chrome]
name=google-chrome
baseurl=https://dl.google.com/linux/chrome/rpm/stable/x86_64
enabled=1
gpgcheck=1
gpgkey=https://dl.google.com/linux/linux_signing_key.pub
`

// fedoraConfigurator prepares a Fedora-family host: RPM Fusion release
// packages, the vendor browser repository, best-effort COPR module
// activation, and a full system update.
type fedoraConfigurator struct {
	runner    execute.Runner
	log       *telemetry.Logger
	versionID string
	modules   []string

	// repoDir is overridden in tests.
	repoDir string
}

func (f *fedoraConfigurator) Configure(ctx context.Context) (*Result, error) {
	if f.runner.DryRun() {
		f.log.DryRunf("would install RPM Fusion free/nonfree release packages for Fedora %s", f.versionID)
		f.log.DryRunf("would add the google-chrome repository if missing")
		for _, module := range f.modules {
			f.log.DryRunf("would enable COPR module %s", module)
		}
		f.log.DryRunf("would run a full system update")
		return &Result{}, nil
	}

	for _, tier := range []string{"free", "nonfree"} {
		url := fmt.Sprintf(rpmFusionURL, tier, f.versionID)
		if err := f.runner.Run(ctx, execute.New("dnf", "install", "-y", url)); err != nil {
			f.log.WithError(err).Warnf("could not install RPM Fusion %s release", tier)
		}
	}

	f.ensureChromeRepo()

	result := &Result{}
	for _, module := range f.modules {
		// Module activation is best-effort; packages depending on a
		// module that did not activate are skipped downstream instead
		// of being attempted and failing.
		enable := execute.New("dnf", "copr", "enable", "-y", module)
		if err := f.runner.Run(ctx, enable); err != nil {
			f.log.WithError(err).Warnf("could not enable COPR module %s", module)
			result.FailedModules = append(result.FailedModules, module)
			continue
		}
		f.log.Infof("enabled COPR module %s", module)
	}

	upgrade := execute.New("dnf", "upgrade", "-y", "--refresh")
	if err := f.runner.RunRetry(ctx, upgrade, execute.DefaultRetry); err != nil {
		f.log.WithError(err).Warn("full system update failed, continuing on current package set")
	}

	return result, nil
}

// ensureChromeRepo writes the vendor browser repository definition iff
// it is not already configured.
func (f *fedoraConfigurator) ensureChromeRepo() {
	path := filepath.Join(f.repoDir, "google-chrome.repo")
	if _, err := os.Stat(path); err == nil {
		f.log.Debugf("google-chrome repository already configured")
		return
	}

	if err := os.WriteFile(path, []byte(chromeRepo), 0o644); err != nil {
		f.log.WithError(err).Warn("could not add google-chrome repository")
		return
	}
	f.log.Info("added google-chrome repository")
}
