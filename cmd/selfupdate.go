package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shellboot/internal/updates"
)

// githubRepoSlug is the repository self-update pulls releases from.
const githubRepoSlug = updates.DefaultRepoSlug

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update shellboot to the latest release",
		Long: `Checks for the latest release on GitHub and, if a newer version is
available, downloads it and replaces the current binary in place.`,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	version := rootCmd.Version
	if updates.IsDevVersion(version) {
		return fmt.Errorf("cannot self-update a development version (%q)", version)
	}

	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}

	probe := updates.NewProbe(githubRepoSlug, version)
	avail, err := probe.Apply(ctx)
	if err != nil {
		return err
	}

	if avail.UpdateAvailable {
		fmt.Printf("Updated to version %s\n", avail.LatestVersion)
	} else {
		fmt.Printf("Already running the latest version (%s)\n", version)
	}
	return nil
}
