package configure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deskforge/deskforge/pkg/execute"
	"github.com/deskforge/deskforge/pkg/telemetry"
)

// fakeRunner records invocations and answers from canned results.
type fakeRunner struct {
	dryRun bool
	ran    []execute.Command

	// runErr, when set, decides per-command failures for Run/RunRetry.
	runErr func(execute.Command) error

	// outputErr decides Output failures; Output returns "" otherwise.
	outputErr func(execute.Command) error
}

func (f *fakeRunner) DryRun() bool { return f.dryRun }

func (f *fakeRunner) Run(ctx context.Context, cmd execute.Command) error {
	f.ran = append(f.ran, cmd)
	if f.runErr != nil {
		return f.runErr(cmd)
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, cmd execute.Command) (string, error) {
	if f.outputErr != nil {
		if err := f.outputErr(cmd); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (f *fakeRunner) RunRetry(ctx context.Context, cmd execute.Command, policy execute.RetryPolicy) error {
	return f.Run(ctx, cmd)
}

func (f *fakeRunner) commandLines() []string {
	var lines []string
	for _, cmd := range f.ran {
		lines = append(lines, cmd.String())
	}
	return lines
}

func testLog() *telemetry.Logger {
	return telemetry.NewWriter(io.Discard)
}

func TestArchConfigureDryRunExecutesNothing(t *testing.T) {
	runner := &fakeRunner{dryRun: true}
	conf := &archConfigurator{
		runner:   runner,
		log:      testLog(),
		realUser: "alice",
		confPath: filepath.Join(t.TempDir(), "pacman.conf"),
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(runner.ran) != 0 {
		t.Errorf("dry-run must not execute commands, ran %v", runner.commandLines())
	}
	if result.AURHelper != "" {
		t.Error("dry-run must not discover a helper")
	}

	// The conf file must not even exist afterwards.
	if _, err := os.Stat(conf.confPath); !os.IsNotExist(err) {
		t.Error("dry-run touched the configuration file")
	}
}

func TestArchConfigureLive(t *testing.T) {
	path := writeSampleConf(t)
	runner := &fakeRunner{
		// yay missing, paru present.
		outputErr: func(cmd execute.Command) error {
			if cmd.Program == "yay" {
				return errors.New("not found")
			}
			return nil
		},
	}
	conf := &archConfigurator{
		runner:   runner,
		log:      testLog(),
		realUser: "alice",
		confPath: path,
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	lines := strings.Join(runner.commandLines(), "\n")
	if !strings.Contains(lines, "pacman -Sy --noconfirm archlinux-keyring") {
		t.Error("keyring refresh not issued")
	}
	if !strings.Contains(lines, "pacman -Syu --noconfirm") {
		t.Error("system upgrade not issued")
	}

	if result.AURHelper != "paru" {
		t.Errorf("expected paru helper, got %q", result.AURHelper)
	}

	content := readConf(t, path)
	if !strings.Contains(content, "ParallelDownloads = 10") || !strings.Contains(content, "[multilib]") {
		t.Error("configuration edits not applied")
	}
}

func TestArchHelperPreferenceOrder(t *testing.T) {
	runner := &fakeRunner{} // both helpers respond
	conf := &archConfigurator{
		runner:   runner,
		log:      testLog(),
		realUser: "alice",
		confPath: writeSampleConf(t),
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if result.AURHelper != "yay" {
		t.Errorf("yay must win the preference order, got %q", result.AURHelper)
	}
}

func TestArchNoHelperFound(t *testing.T) {
	runner := &fakeRunner{
		outputErr: func(execute.Command) error { return errors.New("not found") },
	}
	conf := &archConfigurator{
		runner:   runner,
		log:      testLog(),
		realUser: "alice",
		confPath: writeSampleConf(t),
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if result.AURHelper != "" {
		t.Errorf("expected no helper, got %q", result.AURHelper)
	}
}

func TestFedoraConfigureCollectsFailedModules(t *testing.T) {
	runner := &fakeRunner{
		runErr: func(cmd execute.Command) error {
			if strings.Contains(cmd.String(), "copr enable -y solopasha/hyprland") {
				return errors.New("copr unavailable")
			}
			return nil
		},
	}
	conf := &fedoraConfigurator{
		runner:    runner,
		log:       testLog(),
		versionID: "42",
		modules:   []string{"solopasha/hyprland", "erikreider/SwayNotificationCenter"},
		repoDir:   t.TempDir(),
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if len(result.FailedModules) != 1 || result.FailedModules[0] != "solopasha/hyprland" {
		t.Errorf("unexpected failed modules: %v", result.FailedModules)
	}

	lines := strings.Join(runner.commandLines(), "\n")
	wantFree := fmt.Sprintf(rpmFusionURL, "free", "42")
	if !strings.Contains(lines, wantFree) {
		t.Error("RPM Fusion free release install not issued with templated version")
	}
	if !strings.Contains(lines, "dnf upgrade -y --refresh") {
		t.Error("full system update not issued")
	}
}

func TestFedoraChromeRepoIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	conf := &fedoraConfigurator{
		runner:  &fakeRunner{},
		log:     testLog(),
		repoDir: dir,
	}

	conf.ensureChromeRepo()
	path := filepath.Join(dir, "google-chrome.repo")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("repo file not written: %v", err)
	}

	// Scribble on it; a second run must leave the existing file alone.
	if err := os.WriteFile(path, append(first, []byte("# local edit\n")...), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conf.ensureChromeRepo()

	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(second), "# local edit") {
		t.Error("existing repo file was overwritten")
	}
}

func TestFedoraConfigureDryRun(t *testing.T) {
	runner := &fakeRunner{dryRun: true}
	dir := t.TempDir()
	conf := &fedoraConfigurator{
		runner:    runner,
		log:       testLog(),
		versionID: "42",
		modules:   []string{"solopasha/hyprland"},
		repoDir:   dir,
	}

	result, err := conf.Configure(context.Background())
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(runner.ran) != 0 {
		t.Errorf("dry-run must not execute commands, ran %v", runner.commandLines())
	}
	if len(result.FailedModules) != 0 {
		t.Error("dry-run must not report failed modules")
	}
	if _, err := os.Stat(filepath.Join(dir, "google-chrome.repo")); !os.IsNotExist(err) {
		t.Error("dry-run wrote the repo file")
	}
}
