// Package configure prepares the package-manager environment for a
// family before any package is installed: source configuration, index
// refresh, full system upgrade, and discovery of the optional auxiliary
// helper.
package configure

import (
	"context"
	"fmt"

	"github.com/deskforge/deskforge/pkg/distro"
	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/profiles"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

// Result is what configuration feeds forward into reconciliation.
type Result struct {
	// AURHelper is the discovered auxiliary helper program, empty when
	// none was found (Arch family only).
	AURHelper string

	// FailedModules lists COPR modules that could not be enabled
	// (Fedora family only). Packages depending on them are skipped.
	FailedModules []string
}

// Configurator is the family-specific environment configuration step.
type Configurator interface {
	Configure(ctx context.Context) (*Result, error)
}

// New returns the configurator for the detected family.
func New(info *distro.Info, profile profiles.Profile, runner execute.Runner, log *telemetry.Logger, realUser string) (Configurator, error) {
	switch info.Family {
	case distro.FamilyArch:
		return &archConfigurator{
			runner:   runner,
			log:      log.Component("configure"),
			realUser: realUser,
			confPath: pacmanConfPath,
		}, nil
	case distro.FamilyFedora:
		modules, err := profiles.Modules(info.Family, profile)
		if err != nil {
			return nil, err
		}
		return &fedoraConfigurator{
			runner:    runner,
			log:       log.Component("configure"),
			versionID: info.VersionID,
			modules:   modules,
			repoDir:   yumRepoDir,
		}, nil
	default:
		return nil, fmt.Errorf("no configurator for family %q", info.Family)
	}
}
