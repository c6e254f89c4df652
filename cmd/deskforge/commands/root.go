// Package commands implements the deskforge command-line interface.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deskforge/deskforge/pkg/profiles"
	"github.com/deskforge/deskforge/pkg/provision"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	var (
		dryRun      bool
		installFull bool
		baseOnly    bool
	)

	rootCmd := &cobra.Command{
		Use:   "deskforge",
		Short: "Deskforge - Linux desktop provisioning",
		Long: `Deskforge provisions a Linux desktop environment on Arch-derived and
Fedora-derived distributions.

It detects the host distribution family, configures package-manager sources,
installs a curated package set (base tools or the full desktop shell), and
applies post-install configuration: flatpak remote and permission overrides,
a polkit policy rule, and service enablement.

Run with --dry-run to see every intended action without mutating the system.`,
		Example: `  # Interactive profile selection
  sudo deskforge

  # Full desktop shell, no prompts
  sudo deskforge --install

  # Base tools only
  sudo deskforge --base

  # Report intended actions without changing anything
  sudo deskforge --install --dry-run`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if installFull && baseOnly {
				return fmt.Errorf("--install and --base are mutually exclusive")
			}

			var profile profiles.Profile
			switch {
			case installFull:
				profile = profiles.ProfileDesktop
			case baseOnly:
				profile = profiles.ProfileBase
			default:
				selected, ok := promptProfile(cmd)
				if !ok {
					// Any answer other than a menu entry exits cleanly.
					return nil
				}
				profile = selected
			}

			rc, err := provision.NewRunContext(dryRun, profile)
			if err != nil {
				return err
			}

			pipeline, err := provision.NewPipeline(rc)
			if err != nil {
				return err
			}
			return pipeline.Run(cmd.Context())
		},
	}

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended actions without mutating the system")
	rootCmd.Flags().BoolVar(&installFull, "install", false, "non-interactive: install the full desktop-shell profile")
	rootCmd.Flags().BoolVar(&baseOnly, "base", false, "non-interactive: install the base profile only")

	return rootCmd
}

// promptProfile shows the interactive menu and reads one selection from stdin.
// The second return is false when the user picked neither profile.
func promptProfile(cmd *cobra.Command) (profiles.Profile, bool) {
	fmt.Fprintln(cmd.OutOrStdout(), "Select installation profile:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1) Full desktop shell")
	fmt.Fprintln(cmd.OutOrStdout(), "  2) Base tools only")
	fmt.Fprint(cmd.OutOrStdout(), "Choice: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", false
	}

	switch strings.TrimSpace(line) {
	case "1":
		return profiles.ProfileDesktop, true
	case "2":
		return profiles.ProfileBase, true
	default:
		return "", false
	}
}
