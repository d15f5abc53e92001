package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bizonboard/internal/profile"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Response is a decoded tool envelope.
type Response struct {
	StructuredContent profile.StructuredContent
	Metadata          profile.Metadata
	Message           string
}

// ToolCaller invokes one onboarding tool.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*Response, error)
}

// ToolError is a tool result flagged isError by the server.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// ErrNoMetadata means a successful tool result carried no _meta payload.
var ErrNoMetadata = errors.New("tool result carried no metadata")

// MCPCaller calls tools through an initialized mcp-go client.
type MCPCaller struct {
	client *client.Client
}

// NewMCPCaller wraps c, which must already be started and initialized.
func NewMCPCaller(c *client.Client) *MCPCaller {
	return &MCPCaller{client: c}
}

func (m *MCPCaller) CallTool(ctx context.Context, name string, args map[string]any) (*Response, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := m.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return DecodeResult(name, res)
}

// DecodeResult turns a CallToolResult into a Response.
func DecodeResult(tool string, res *mcp.CallToolResult) (*Response, error) {
	text := firstText(res.Content)
	if res.IsError {
		return nil, &ToolError{Tool: tool, Message: text}
	}

	out := &Response{Message: text}
	if err := remarshal(res.StructuredContent, &out.StructuredContent); err != nil {
		return nil, fmt.Errorf("decode %s structured content: %w", tool, err)
	}
	if res.Meta == nil || len(res.Meta.AdditionalFields) == 0 {
		return nil, fmt.Errorf("%s: %w", tool, ErrNoMetadata)
	}
	if err := remarshal(res.Meta.AdditionalFields, &out.Metadata); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", tool, err)
	}
	return out, nil
}

func firstText(content []mcp.Content) string {
	for _, c := range content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	return ""
}

func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
