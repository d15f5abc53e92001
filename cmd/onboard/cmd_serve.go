package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bizonboard/internal/mcp"

	"github.com/spf13/cobra"
)

var serveTransport string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the onboarding tools and widget over MCP",
	Long: `Serves load_business_profile, update_business_profile_field and
reset_business_profile plus the onboarding widget resource.

The http transport exposes streamable MCP at the endpoint path (default /mcp),
legacy SSE at /mcp/sse and /mcp/messages, and / /healthz /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveTransport, "transport", "t", "", "Transport: http or stdio (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := mcp.NewServer(svc, cfg)
	switch cfg.Server.Transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ListenAndServe(ctx)
	default:
		return fmt.Errorf("unsupported transport %q", cfg.Server.Transport)
	}
}
