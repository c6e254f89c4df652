package provision

import (
	"strings"
	"testing"

	"github.com/deskforge/deskforge/pkg/profiles"
)

func asRoot(t *testing.T) {
	t.Helper()
	orig := geteuid
	geteuid = func() int { return 0 }
	t.Cleanup(func() { geteuid = orig })
}

func TestNewRunContextRequiresRoot(t *testing.T) {
	orig := geteuid
	geteuid = func() int { return 1000 }
	t.Cleanup(func() { geteuid = orig })

	_, err := NewRunContext(false, profiles.ProfileDesktop)
	if err == nil {
		t.Fatal("expected error without root")
	}
	if !IsFatal(err) {
		t.Error("privilege error must be fatal")
	}
}

func TestNewRunContextPaths(t *testing.T) {
	asRoot(t)

	rc, err := NewRunContext(true, profiles.ProfileBase)
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}

	if rc.ID == "" {
		t.Error("run ID must be set")
	}
	if !rc.DryRun || rc.Profile != profiles.ProfileBase {
		t.Errorf("run parameters not carried: %+v", rc)
	}
	if !strings.HasPrefix(rc.LogPath, "/var/log/deskforge/") || !strings.Contains(rc.LogPath, rc.ID) {
		t.Errorf("unexpected log path %q", rc.LogPath)
	}
	if !strings.HasPrefix(rc.DBPath(), rc.StateDir) {
		t.Errorf("database must live in the state dir, got %q", rc.DBPath())
	}
}

func TestNewRunContextIDsAreUnique(t *testing.T) {
	asRoot(t)

	a, err := NewRunContext(true, profiles.ProfileBase)
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}
	b, err := NewRunContext(true, profiles.ProfileBase)
	if err != nil {
		t.Fatalf("NewRunContext failed: %v", err)
	}
	if a.ID == b.ID {
		t.Error("consecutive runs must get distinct IDs")
	}
}

func TestResolveRealUser(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		uid, gid  string
		wantKnown bool
	}{
		{"sudo user", "alice", "1000", "1000", true},
		{"no sudo env", "", "", "", false},
		{"root via sudo", "root", "0", "0", false},
		{"garbled uid", "alice", "not-a-number", "1000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SUDO_USER", tt.user)
			t.Setenv("SUDO_UID", tt.uid)
			t.Setenv("SUDO_GID", tt.gid)

			u := resolveRealUser()
			if u.Known() != tt.wantKnown {
				t.Errorf("Known() = %v, want %v (%+v)", u.Known(), tt.wantKnown, u)
			}
			if tt.wantKnown && (u.Name != tt.user || u.UID != 1000) {
				t.Errorf("unexpected resolution: %+v", u)
			}
		})
	}
}

func TestResolveRealUserDefaultsGID(t *testing.T) {
	t.Setenv("SUDO_USER", "alice")
	t.Setenv("SUDO_UID", "1000")
	t.Setenv("SUDO_GID", "")

	u := resolveRealUser()
	if u.GID != 1000 {
		t.Errorf("missing SUDO_GID must fall back to the UID, got %d", u.GID)
	}
}
