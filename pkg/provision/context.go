package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/deskforge/deskforge/pkg/profiles"
)

const (
	logDir   = "/var/log/deskforge"
	stateDir = "/var/lib/deskforge"
)

// geteuid is replaced in tests.
var geteuid = os.Geteuid

// RealUser is the unprivileged user who invoked deskforge through sudo.
// Auxiliary helpers run as this user, and the session log is handed back
// to them when the run ends.
type RealUser struct {
	Name string
	UID  int
	GID  int
}

// Known reports whether a real user could be resolved. Running directly
// as root (no sudo) leaves it unknown.
func (u RealUser) Known() bool {
	return u.Name != "" && u.UID > 0
}

// RunContext carries the immutable parameters of one provisioning run.
type RunContext struct {
	ID       string
	DryRun   bool
	Profile  profiles.Profile
	RealUser RealUser

	// LogPath is the per-run session log file.
	LogPath string

	// StateDir holds package snapshots and the run-history database.
	StateDir string
}

// NewRunContext validates privileges and resolves the run parameters.
// Provisioning mutates system paths, so root is required even in dry-run
// (the session log and state dir live under /var).
func NewRunContext(dryRun bool, profile profiles.Profile) (*RunContext, error) {
	if geteuid() != 0 {
		return nil, NewFatalError("setup", "root privileges required", fmt.Errorf("run with sudo"))
	}

	id := uuid.New().String()
	return &RunContext{
		ID:       id,
		DryRun:   dryRun,
		Profile:  profile,
		RealUser: resolveRealUser(),
		LogPath:  filepath.Join(logDir, fmt.Sprintf("run-%s.log", id)),
		StateDir: stateDir,
	}, nil
}

// DBPath is where the run-history database lives.
func (rc *RunContext) DBPath() string {
	return filepath.Join(rc.StateDir, "deskforge.db")
}

// resolveRealUser reads the identity sudo preserves in the environment.
func resolveRealUser() RealUser {
	name := os.Getenv("SUDO_USER")
	if name == "" || name == "root" {
		return RealUser{}
	}
	uid, err := strconv.Atoi(os.Getenv("SUDO_UID"))
	if err != nil {
		return RealUser{}
	}
	gid, err := strconv.Atoi(os.Getenv("SUDO_GID"))
	if err != nil {
		gid = uid
	}
	return RealUser{Name: name, UID: uid, GID: gid}
}
