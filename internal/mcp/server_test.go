package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"bizonboard/internal/config"
	"bizonboard/internal/onboarding"
	"bizonboard/internal/profile"
	"bizonboard/internal/store"
	"bizonboard/internal/widget"

	"github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, repo profile.Repository, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	n := 0
	svc := onboarding.NewService(profile.NewStore(repo), onboarding.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("acct-gen-%d", n)
	}))
	return NewServer(svc, cfg)
}

func connect(t *testing.T, s *Server) *client.Client {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Start(ctx))

	initReq := mcplib.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcplib.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcplib.Implementation{Name: "onboard-test", Version: "0.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

// failingRepo reports every read and write as a backend outage.
type failingRepo struct {
	*store.Memory
}

func (failingRepo) Get(context.Context, string) (*profile.Profile, error) {
	return nil, fmt.Errorf("get: %w: %w", profile.ErrPersistenceUnavailable, errors.New("connection refused"))
}

func (failingRepo) Update(context.Context, string, profile.UpdateFunc) (*profile.Profile, error) {
	return nil, fmt.Errorf("update: %w: %w", profile.ErrPersistenceUnavailable, errors.New("connection refused"))
}

func TestListTools(t *testing.T) {
	c := connect(t, newTestServer(t, store.NewMemory(), nil))

	res, err := c.ListTools(context.Background(), mcplib.ListToolsRequest{})
	require.NoError(t, err)

	byName := map[string]mcplib.Tool{}
	for _, tool := range res.Tools {
		byName[tool.Name] = tool
	}
	require.Len(t, byName, 3)

	load := byName[onboarding.ToolLoad]
	assert.Empty(t, load.InputSchema.Required)
	assert.Contains(t, load.InputSchema.Properties, "restart")

	update := byName[onboarding.ToolUpdate]
	assert.ElementsMatch(t, []string{"accountId", "sectionKey", "fieldKey", "value"}, update.InputSchema.Required)
	value, ok := update.InputSchema.Properties["value"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"string", "number"}, value["type"])
	assert.Equal(t, []string{"string", "number"}, updateTool().InputSchema.Properties["value"].(map[string]any)["type"])

	reset := byName[onboarding.ToolReset]
	assert.Equal(t, []string{"accountId"}, reset.InputSchema.Required)
	require.NotNil(t, reset.Annotations.DestructiveHint)
	assert.True(t, *reset.Annotations.DestructiveHint)
}

func TestToolResultCarriesMetadata(t *testing.T) {
	c := connect(t, newTestServer(t, store.NewMemory(), nil))

	res := callTool(t, c, onboarding.ToolLoad, map[string]any{})
	require.False(t, res.IsError)
	require.NotNil(t, res.Meta)

	fields := res.Meta.AdditionalFields
	assert.Equal(t, "acct-gen-1", fields["accountId"])
	assert.Contains(t, fields, "sections")
	require.Contains(t, fields, ResponseMetadataKey)
	dup, ok := fields[ResponseMetadataKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, fields["sections"], dup["sections"])

	resp, err := widget.DecodeResult(onboarding.ToolLoad, res)
	require.NoError(t, err)
	assert.Equal(t, "Created a new account and loaded onboarding.", resp.Message)
	assert.Equal(t, "acct-gen-1", resp.StructuredContent.AccountID)
	assert.Equal(t, profile.StatusInProgress, resp.StructuredContent.OnboardingStatus)
}

func TestOnboardingScenarioThroughMirror(t *testing.T) {
	ctx := context.Background()
	c := connect(t, newTestServer(t, store.NewMemory(), nil))
	m := widget.NewMirror(widget.NewMCPCaller(c), nil)

	require.NoError(t, m.Hydrate(ctx, "acct-42", false))
	snap, _ := m.Snapshot()
	assert.Equal(t, 0, snap.Summary.RequiredCompletionPercent)
	assert.Equal(t, "business_profile", snap.Summary.NextSection.Key)

	for _, f := range []string{"legalName", "entityType", "ein", "website"} {
		require.NoError(t, m.Edit(ctx, "business_profile", f, "v-"+f))
	}
	snap, _ = m.Snapshot()
	assert.Equal(t, 40, snap.Summary.RequiredCompletionPercent)
	assert.Equal(t, "contact", snap.Summary.NextSection.Key)

	fill := map[string][]string{
		"contact":  {"contactName", "email", "phone"},
		"payments": {"bank", "routing", "account"},
	}
	for _, section := range []string{"contact", "payments"} {
		for _, f := range fill[section] {
			require.NoError(t, m.Edit(ctx, section, f, "v-"+f))
		}
	}
	snap, _ = m.Snapshot()
	assert.Equal(t, 100, snap.Summary.RequiredCompletionPercent)
	assert.Equal(t, profile.StatusComplete, snap.Summary.OnboardingStatus)
	assert.Nil(t, snap.Summary.NextSection)

	// A fresh session on the same account sees the saved state.
	m2 := widget.NewMirror(widget.NewMCPCaller(c), nil)
	require.NoError(t, m2.Hydrate(ctx, "acct-42", false))
	snap2, _ := m2.Snapshot()
	assert.Equal(t, "Profile is complete.", snap2.Message)
	v, ok := m2.Value("payments", "routing")
	require.True(t, ok)
	assert.Equal(t, "v-routing", v)
}

func TestNumericValueIsStoredAsText(t *testing.T) {
	c := connect(t, newTestServer(t, store.NewMemory(), nil))

	res := callTool(t, c, onboarding.ToolUpdate, map[string]any{
		"accountId": "acct-1", "sectionKey": "payments", "fieldKey": "routing", "value": 21000021,
	})
	require.False(t, res.IsError)

	resp, err := widget.DecodeResult(onboarding.ToolUpdate, res)
	require.NoError(t, err)
	assert.Equal(t, "Saved routing in payments.", resp.Message)
	for _, s := range resp.Metadata.Sections {
		if s.Key == "payments" {
			assert.Equal(t, "21000021", s.Field("routing").Value)
		}
	}
}

func TestValidationErrorsAreToolErrors(t *testing.T) {
	c := connect(t, newTestServer(t, store.NewMemory(), nil))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "unknown section",
			tool: onboarding.ToolUpdate,
			args: map[string]any{"accountId": "acct-1", "sectionKey": "not-a-real-section", "fieldKey": "x", "value": "y"},
			want: "unknown section: not-a-real-section",
		},
		{
			name: "unknown field",
			tool: onboarding.ToolUpdate,
			args: map[string]any{"accountId": "acct-1", "sectionKey": "contact", "fieldKey": "fax", "value": "y"},
			want: "unknown field: contact.fax",
		},
		{
			name: "missing value",
			tool: onboarding.ToolUpdate,
			args: map[string]any{"accountId": "acct-1", "sectionKey": "contact", "fieldKey": "email"},
			want: "missing required argument: value",
		},
		{
			name: "missing account on reset",
			tool: onboarding.ToolReset,
			args: map[string]any{},
			want: "missing required argument: accountId",
		},
		{
			name: "unsupported value type",
			tool: onboarding.ToolUpdate,
			args: map[string]any{"accountId": "acct-1", "sectionKey": "contact", "fieldKey": "email", "value": []any{"a"}},
			want: "invalid field value",
		},
		{
			name: "numeric account on load",
			tool: onboarding.ToolLoad,
			args: map[string]any{"accountId": 42},
			want: "invalid field value: accountId must be a string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, c, tt.tool, tt.args)
			require.True(t, res.IsError)

			_, err := widget.DecodeResult(tt.tool, res)
			var toolErr *widget.ToolError
			require.ErrorAs(t, err, &toolErr)
			assert.Contains(t, toolErr.Message, tt.want)
		})
	}
}

func TestPersistenceFailureIsProtocolError(t *testing.T) {
	c := connect(t, newTestServer(t, failingRepo{store.NewMemory()}, nil))
	caller := widget.NewMCPCaller(c)

	_, err := caller.CallTool(context.Background(), onboarding.ToolLoad, map[string]any{"accountId": "acct-1"})
	require.Error(t, err)
	var toolErr *widget.ToolError
	assert.False(t, errors.As(err, &toolErr))
}

func TestWidgetResource(t *testing.T) {
	override := filepath.Join(t.TempDir(), "widget.html")
	require.NoError(t, os.WriteFile(override, []byte("<main>custom</main>"), 0644))

	s := newTestServer(t, store.NewMemory(), func(cfg *config.Config) {
		cfg.Widget.Domain = "https://widgets.example"
		cfg.Widget.ConnectDomains = []string{"https://api.example"}
	})

	contents, err := s.handleWidget(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, WidgetURI, text.URI)
	assert.Equal(t, WidgetMIMEType, text.MIMEType)
	assert.Contains(t, text.Text, "update_business_profile_field")

	require.NotNil(t, text.Meta)
	fields := text.Meta.AdditionalFields
	assert.Equal(t, true, fields["openai/widgetPrefersBorder"])
	assert.Equal(t, "https://widgets.example", fields["openai/widgetDomain"])
	csp := fields["openai/widgetCSP"].(map[string]any)
	assert.Equal(t, []string{"https://api.example"}, csp["connect_domains"])
	assert.Equal(t, []string{"https://*.oaistatic.com"}, csp["resource_domains"])

	s.cfg.Widget.TemplatePath = override
	contents, err = s.handleWidget(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "<main>custom</main>", contents[0].(mcplib.TextResourceContents).Text)

	s.cfg.Widget.TemplatePath = filepath.Join(t.TempDir(), "gone.html")
	_, err = s.handleWidget(context.Background(), mcplib.ReadResourceRequest{})
	require.Error(t, err)
}

func TestWidgetResourceOverProtocol(t *testing.T) {
	c := connect(t, newTestServer(t, store.NewMemory(), nil))

	list, err := c.ListResources(context.Background(), mcplib.ListResourcesRequest{})
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, WidgetURI, list.Resources[0].URI)
	assert.Equal(t, WidgetMIMEType, list.Resources[0].MIMEType)

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = WidgetURI
	res, err := c.ReadResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
}
