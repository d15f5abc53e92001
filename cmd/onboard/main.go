// Command onboard serves the business profile onboarding tools over MCP and
// offers a few local commands for inspecting and filling profiles.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/onboarding"
	"bizonboard/internal/profile"
	"bizonboard/internal/store"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Business profile onboarding over MCP",
	Long: `onboard tracks a multi-section business profile per account, saving each
field as it is entered and reporting completion after every change.

Run "onboard serve" to expose the tools and the widget to an agent host.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := logging.Initialize(loaded.Logging.ToLogging()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "onboard.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for local profile commands")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileResetCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService opens the configured backend and wires the tool service.
// The returned func closes the backend.
func openService(ctx context.Context) (*onboarding.Service, func(), error) {
	repo, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	closeFn := func() {
		if err := repo.Close(); err != nil {
			logging.StoreWarn("close %s store: %v", repo.Name(), err)
		}
	}
	st := profile.NewStore(repo, profile.WithOpTimeout(cfg.GetOpTimeout()))
	logging.Boot("profile store ready on %s backend", repo.Name())
	return onboarding.NewService(st), closeFn, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
