package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"bizonboard/internal/onboarding"
	"bizonboard/internal/profile"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// ResponseMetadataKey duplicates _meta inside _meta for hosts that read it
// from there.
const ResponseMetadataKey = "toolResponseMetadata"

const accountIDHelp = "Account, workspace, or merchant identifier."

func loadTool() mcplib.Tool {
	return mcplib.NewTool(onboarding.ToolLoad,
		mcplib.WithDescription("Load the business onboarding profile for an account, creating a blank one when none exists. Omit accountId to start a new account."),
		mcplib.WithTitleAnnotation("Load business profile"),
		mcplib.WithReadOnlyHintAnnotation(false),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithIdempotentHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
		mcplib.WithString("accountId", mcplib.Description(accountIDHelp)),
		mcplib.WithBoolean("restart", mcplib.Description("If true, clears any saved progress before loading.")),
	)
}

func updateTool() mcplib.Tool {
	return mcplib.NewTool(onboarding.ToolUpdate,
		mcplib.WithDescription("Save one field of the onboarding profile and return the recomputed progress."),
		mcplib.WithTitleAnnotation("Save profile field"),
		mcplib.WithReadOnlyHintAnnotation(false),
		mcplib.WithDestructiveHintAnnotation(false),
		mcplib.WithIdempotentHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
		mcplib.WithString("accountId", mcplib.Required(), mcplib.Description(accountIDHelp)),
		mcplib.WithString("sectionKey", mcplib.Required(), mcplib.Description("Section identifier (business_profile, contact, payments).")),
		mcplib.WithString("fieldKey", mcplib.Required(), mcplib.Description("Field identifier inside the section.")),
		mcplib.WithString("value", mcplib.Required(), textOrNumber(), mcplib.Description("Value to store. Numbers and booleans are stored as text.")),
	)
}

func resetTool() mcplib.Tool {
	return mcplib.NewTool(onboarding.ToolReset,
		mcplib.WithDescription("Discard all saved answers and start the onboarding profile over."),
		mcplib.WithTitleAnnotation("Reset business profile"),
		mcplib.WithReadOnlyHintAnnotation(false),
		mcplib.WithDestructiveHintAnnotation(true),
		mcplib.WithIdempotentHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
		mcplib.WithString("accountId", mcplib.Required(), mcplib.Description(accountIDHelp)),
	)
}

// textOrNumber widens a property so hosts may send numeric values unquoted.
func textOrNumber() mcplib.PropertyOption {
	return func(schema map[string]any) {
		schema["type"] = []string{"string", "number"}
	}
}

// stringArg reads an optional string argument. A present non-string value is
// rejected instead of being treated as absent.
func stringArg(req mcplib.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", onboarding.ErrInvalidValue, key, v)
	}
	return str, nil
}

func (s *Server) handleLoad(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	accountID, err := stringArg(req, "accountId")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	env, err := s.svc.LoadProfile(ctx, onboarding.LoadInput{
		AccountID: accountID,
		Restart:   req.GetBool("restart", false),
	})
	return toolResult(env, err)
}

func (s *Server) handleUpdate(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	value, ok := req.GetArguments()["value"]
	if !ok {
		return mcplib.NewToolResultError(fmt.Sprintf("%v: value", onboarding.ErrMissingArgument)), nil
	}
	env, err := s.svc.UpdateField(ctx, onboarding.UpdateInput{
		AccountID:  req.GetString("accountId", ""),
		SectionKey: req.GetString("sectionKey", ""),
		FieldKey:   req.GetString("fieldKey", ""),
		Value:      value,
	})
	return toolResult(env, err)
}

func (s *Server) handleReset(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	env, err := s.svc.ResetProfile(ctx, onboarding.ResetInput{
		AccountID: req.GetString("accountId", ""),
	})
	return toolResult(env, err)
}

// toolResult maps caller mistakes to an isError result carrying the message
// verbatim. Anything else surfaces as a JSON-RPC error.
func toolResult(env *onboarding.Envelope, err error) (*mcplib.CallToolResult, error) {
	if err != nil {
		if onboarding.IsValidation(err) {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	meta, err := metadataMap(env.Metadata)
	if err != nil {
		return nil, err
	}
	content := make([]mcplib.Content, 0, len(env.Content))
	for _, c := range env.Content {
		content = append(content, mcplib.NewTextContent(c.Text))
	}
	return &mcplib.CallToolResult{
		Result:            mcplib.Result{Meta: mcplib.NewMetaFromMap(meta)},
		Content:           content,
		StructuredContent: env.StructuredContent,
	}, nil
}

func metadataMap(md profile.Metadata) (map[string]any, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	dup := make(map[string]any, len(out))
	for k, v := range out {
		dup[k] = v
	}
	out[ResponseMetadataKey] = dup
	return out, nil
}
