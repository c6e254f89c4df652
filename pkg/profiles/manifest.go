// Package profiles holds the curated package lists as a data table
// keyed by (distribution family, installation profile). Keeping list
// selection as data rather than branching code lets it be unit tested
// without touching a package manager.
package profiles

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/deskforge/deskforge/pkg/distro"
)

// Profile is the installation scope selected by the operator.
type Profile string

const (
	// ProfileBase installs the minimal tool set only.
	ProfileBase Profile = "base"

	// ProfileDesktop installs the base set plus the desktop shell.
	ProfileDesktop Profile = "desktop"
)

// Source identifies which installer a package comes from.
type Source string

const (
	// SourceNative packages install through the family's package manager.
	SourceNative Source = "native"

	// SourceAux packages install through the optional auxiliary helper
	// (AUR helper on the Arch family) and are skipped when none was
	// discovered.
	SourceAux Source = "aux"
)

// Package is one entry of a profile list.
type Package struct {
	Name string `yaml:"name" validate:"required"`

	// RequiresModule names the COPR module this package is published
	// from. Packages whose module failed to enable are skipped rather
	// than attempted.
	RequiresModule string `yaml:"requires_module"`
}

// UnmarshalYAML accepts either a bare package name or a mapping with
// name and requires_module keys.
func (p *Package) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Name = value.Value
		return nil
	}

	type plain Package
	return value.Decode((*plain)(p))
}

// Group is an ordered package list together with its source and a label
// used in logs and the report.
type Group struct {
	Label    string
	Source   Source
	Packages []Package
}

type profileLists struct {
	Native []Package `yaml:"native" validate:"dive"`
	Aux    []Package `yaml:"aux" validate:"dive"`
}

type familyProfiles struct {
	Base    profileLists `yaml:"base"`
	Desktop profileLists `yaml:"desktop"`
}

type manifest struct {
	Arch   familyProfiles `yaml:"arch"`
	Fedora familyProfiles `yaml:"fedora"`
}

//go:embed packages.yaml
var manifestData []byte

var loadManifest = sync.OnceValues(func() (*manifest, error) {
	var m manifest
	if err := yaml.Unmarshal(manifestData, &m); err != nil {
		return nil, fmt.Errorf("failed to parse package manifest: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid package manifest: %w", err)
	}
	return &m, nil
})

// Select returns the ordered list groups for a family and profile. The
// base groups always come first; the desktop profile appends the
// desktop-shell groups after them.
func Select(family distro.Family, profile Profile) ([]Group, error) {
	m, err := loadManifest()
	if err != nil {
		return nil, err
	}

	var fp familyProfiles
	switch family {
	case distro.FamilyArch:
		fp = m.Arch
	case distro.FamilyFedora:
		fp = m.Fedora
	default:
		return nil, fmt.Errorf("unknown family %q", family)
	}

	groups := []Group{
		{Label: "base", Source: SourceNative, Packages: fp.Base.Native},
		{Label: "base (aux)", Source: SourceAux, Packages: fp.Base.Aux},
	}

	switch profile {
	case ProfileBase:
	case ProfileDesktop:
		groups = append(groups,
			Group{Label: "desktop shell", Source: SourceNative, Packages: fp.Desktop.Native},
			Group{Label: "desktop shell (aux)", Source: SourceAux, Packages: fp.Desktop.Aux},
		)
	default:
		return nil, fmt.Errorf("unknown profile %q", profile)
	}

	return groups, nil
}

// Modules returns the distinct COPR modules, in first-use order, that
// the selected lists depend on. The Fedora configurator enables these
// before reconciliation.
func Modules(family distro.Family, profile Profile) ([]string, error) {
	groups, err := Select(family, profile)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var modules []string
	for _, group := range groups {
		for _, pkg := range group.Packages {
			if pkg.RequiresModule != "" && !seen[pkg.RequiresModule] {
				seen[pkg.RequiresModule] = true
				modules = append(modules, pkg.RequiresModule)
			}
		}
	}
	return modules, nil
}
