// Package distro classifies the host into one of the two supported
// distribution families.
//
// Classification is a strict fallback chain: the os-release ID field is
// matched against a fixed table of known identifiers; if that produces
// nothing, the ID_LIKE field is checked for a family marker; finally the
// presence of a family's characteristic package-manager binary decides.
// A host that none of the three methods can classify is unsupported.
package distro

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Family is one of the two supported distribution lineages.
type Family string

const (
	// FamilyArch covers Arch Linux and its derivatives (pacman-based).
	FamilyArch Family = "arch"

	// FamilyFedora covers Fedora and its derivatives (dnf-based).
	FamilyFedora Family = "fedora"
)

// Info describes the classified host.
type Info struct {
	Family Family

	// ID is the raw os-release identifier, kept for logging.
	ID string

	// VersionID is the release number, needed to template the RPM
	// Fusion release package URLs on the Fedora family.
	VersionID string
}

const osReleasePath = "/etc/os-release"

// Known primary identifiers per family.
var familyByID = map[string]Family{
	"arch":        FamilyArch,
	"manjaro":     FamilyArch,
	"endeavouros": FamilyArch,
	"garuda":      FamilyArch,
	"cachyos":     FamilyArch,
	"fedora":      FamilyFedora,
	"nobara":      FamilyFedora,
	"risios":      FamilyFedora,
}

// Characteristic package-manager binary per family, the last-resort check.
var familyByBinary = []struct {
	binary string
	family Family
}{
	{"pacman", FamilyArch},
	{"dnf", FamilyFedora},
}

// Detect classifies the running host. The returned error means the host
// is not a supported distribution and the run cannot proceed.
func Detect() (*Info, error) {
	// A missing or unreadable os-release falls through to the binary
	// presence check.
	data, _ := os.ReadFile(osReleasePath)
	return detect(data, exec.LookPath)
}

func detect(osRelease []byte, lookPath func(string) (string, error)) (*Info, error) {
	fields := parseOSRelease(osRelease)
	info := &Info{
		ID:        fields["ID"],
		VersionID: fields["VERSION_ID"],
	}

	// Primary identifier against the known table.
	if family, ok := familyByID[strings.ToLower(info.ID)]; ok {
		info.Family = family
		return info, nil
	}

	// ID_LIKE lists closely-related distributions; a family marker token
	// anywhere in it classifies the host.
	idLike := strings.ToLower(fields["ID_LIKE"])
	switch {
	case strings.Contains(idLike, string(FamilyArch)):
		info.Family = FamilyArch
		return info, nil
	case strings.Contains(idLike, string(FamilyFedora)):
		info.Family = FamilyFedora
		return info, nil
	}

	// Last resort: whichever family's package manager is installed.
	for _, probe := range familyByBinary {
		if _, err := lookPath(probe.binary); err == nil {
			info.Family = probe.family
			return info, nil
		}
	}

	return nil, fmt.Errorf("unsupported distribution (id=%q, id_like=%q): only Arch-derived and Fedora-derived systems are supported", info.ID, idLike)
}

// parseOSRelease extracts KEY=value pairs from os-release contents,
// stripping surrounding quotes.
func parseOSRelease(data []byte) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"`)
	}
	return fields
}
