package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bizonboard/internal/logging"
	"bizonboard/internal/mcp"
	"bizonboard/internal/widget"

	"github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

var (
	fillURL      string
	fillRestart  bool
	fillOptional bool
)

var fillCmd = &cobra.Command{
	Use:   "fill [accountId]",
	Short: "Fill a profile interactively through the MCP tools",
	Long: `Walks every blank field and saves each answer with its own
update_business_profile_field call, the same way the widget does.

With --url the tools of a running server are used; otherwise an in-process
server over the configured store. Leave an answer empty to skip a field.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillURL, "url", "", "Streamable HTTP endpoint of a running server, e.g. http://localhost:8000/mcp")
	fillCmd.Flags().BoolVar(&fillRestart, "restart", false, "Reset the profile before filling")
	fillCmd.Flags().BoolVar(&fillOptional, "optional", false, "Also ask for optional fields")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	c, cleanup, err := fillClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m := widget.NewMirror(widget.NewMCPCaller(c), nil)
	accountID := ""
	if len(args) > 0 {
		accountID = args[0]
	}
	if err := m.Hydrate(ctx, accountID, fillRestart); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	snap, _ := m.Snapshot()
	fmt.Fprintf(out, "Account %s: %s\n", snap.AccountID, snap.Message)

	for _, s := range snap.Metadata.Sections {
		for _, f := range s.Fields {
			if f.Filled() || (!f.Required && !fillOptional) {
				continue
			}
			fmt.Fprintf(out, "%s / %s (%s): ", s.Title, f.Label, f.Helper)
			if !in.Scan() {
				fmt.Fprintln(out)
				return finishFill(out, m, in.Err())
			}
			value := strings.TrimSpace(in.Text())
			if value == "" {
				continue
			}

			err := m.Edit(ctx, s.Key, f.Key, value)
			var toolErr *widget.ToolError
			switch {
			case errors.As(err, &toolErr):
				fmt.Fprintf(out, "  rejected: %s\n", toolErr.Message)
				continue
			case err != nil:
				return err
			}
			cur, _ := m.Snapshot()
			fmt.Fprintf(out, "  %s %d%% of required fields done.\n", cur.Message, cur.Summary.RequiredCompletionPercent)
		}
	}
	return finishFill(out, m, nil)
}

func finishFill(out io.Writer, m *widget.Mirror, err error) error {
	if err != nil {
		return err
	}
	snap, _ := m.Snapshot()
	if snap.Summary.NextSection == nil {
		fmt.Fprintf(out, "Profile %s is %s.\n", snap.AccountID, snap.Summary.OnboardingStatus)
		return nil
	}
	fmt.Fprintf(out, "Profile %s is %s; next section: %s.\n",
		snap.AccountID, snap.Summary.OnboardingStatus, snap.Summary.NextSection.Title)
	return nil
}

// fillClient returns an initialized MCP client, remote when --url is set.
func fillClient(ctx context.Context) (*client.Client, func(), error) {
	var (
		c       *client.Client
		err     error
		cleanup = func() {}
	)
	if fillURL != "" {
		c, err = client.NewStreamableHttpClient(fillURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create client for %s: %w", fillURL, err)
		}
	} else {
		svc, closeStore, err := openService(ctx)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = closeStore
		c, err = client.NewInProcessClient(mcp.NewServer(svc, cfg).MCPServer())
		if err != nil {
			closeStore()
			return nil, func() {}, fmt.Errorf("create in-process client: %w", err)
		}
	}

	closeAll := func() {
		if err := c.Close(); err != nil {
			logging.Widget("close MCP client: %v", err)
		}
		cleanup()
	}
	if err := c.Start(ctx); err != nil {
		closeAll()
		return nil, func() {}, fmt.Errorf("start MCP client: %w", err)
	}

	initReq := mcplib.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcplib.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcplib.Implementation{Name: "onboard-fill", Version: buildVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		closeAll()
		return nil, func() {}, fmt.Errorf("initialize MCP session: %w", err)
	}
	return c, closeAll, nil
}
