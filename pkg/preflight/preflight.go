// Package preflight validates the host before any mutation happens and
// records a best-effort snapshot of the installed package set.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/deskforge/deskforge/pkg/telemetry"
)

const (
	// probeAddr is the fixed external endpoint used for the internet
	// reachability check. DNS-over-TLS port on a public resolver, so the
	// probe works before any repository hostname resolves.
	probeAddr = "1.1.1.1:443"

	probeTimeout = 5 * time.Second

	// minFreeBytes is the minimum free space required on the root
	// filesystem before a live run may proceed.
	minFreeBytes = 5 << 30 // 5 GiB
)

// requiredTools must be present on PATH even in dry-run.
var requiredTools = []string{"curl"}

// Checker performs the fatal pre-flight validation.
type Checker struct {
	log    *telemetry.Logger
	dryRun bool

	// Injection points for tests.
	lookPath  func(string) (string, error)
	dial      func(network, addr string, timeout time.Duration) (net.Conn, error)
	diskAvail func(path string) (uint64, error)
}

// NewChecker creates a pre-flight checker. Dry-run still requires the
// tools to be present but skips the network and disk checks.
func NewChecker(log *telemetry.Logger, dryRun bool) *Checker {
	return &Checker{
		log:       log.Component("preflight"),
		dryRun:    dryRun,
		lookPath:  exec.LookPath,
		dial:      net.DialTimeout,
		diskAvail: diskAvail,
	}
}

// Check validates the host. Any returned error is fatal to the run.
func (c *Checker) Check(ctx context.Context) error {
	for _, tool := range requiredTools {
		if _, err := c.lookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found on PATH", tool)
		}
	}
	c.log.Info("required tools present")

	if c.dryRun {
		c.log.DryRunf("skipping network and disk checks")
		return nil
	}

	conn, err := c.dial("tcp", probeAddr, probeTimeout)
	if err != nil {
		return fmt.Errorf("no internet connectivity (probe to %s failed): %w", probeAddr, err)
	}
	conn.Close()
	c.log.Info("internet connectivity confirmed")

	avail, err := c.diskAvail("/")
	if err != nil {
		return fmt.Errorf("failed to check free disk space: %w", err)
	}
	if avail < minFreeBytes {
		return fmt.Errorf("insufficient disk space: %d MiB free on /, need at least %d MiB",
			avail>>20, uint64(minFreeBytes)>>20)
	}
	c.log.Infof("disk space ok (%d GiB free)", avail>>30)

	return nil
}

// diskAvail returns the bytes available to unprivileged users on the
// filesystem containing path.
func diskAvail(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
