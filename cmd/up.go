package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shellboot/internal/app"
)

func newUpCmd() *cobra.Command {
	var (
		configDir string
		noShell   bool
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the startup sequence and hand off to the shell",
		Long: `Reserves ports, starts every configured service in order while showing
startup progress, then reveals the main surface. With --no-shell the
progress and surface are plain log output and the process runs headless
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(app.Options{
				ConfigDir: configDir,
				NoShell:   noShell,
				Debug:     debug,
				Version:   rootCmd.Version,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configDir, "config", "", "directory containing config.yaml (skips the user/project lookup)")
	cmd.Flags().BoolVar(&noShell, "no-shell", false, "run headless: log progress instead of the interactive shell")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}
