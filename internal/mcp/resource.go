package mcp

import (
	"context"

	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/widget"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	// WidgetURI is the resource a host fetches to render the form.
	WidgetURI = "ui://widget/business-profile-onboarding.html"
	// WidgetMIMEType marks the HTML as a sandboxed widget bundle.
	WidgetMIMEType = "text/html+skybridge"
)

func widgetResource(cfg config.WidgetConfig) mcplib.Resource {
	return mcplib.NewResource(WidgetURI, "business-profile-widget",
		mcplib.WithResourceDescription(cfg.Description),
		mcplib.WithMIMEType(WidgetMIMEType),
	)
}

// handleWidget re-reads the template override on every read.
func (s *Server) handleWidget(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	html, err := widget.Template(s.cfg.Widget.TemplatePath)
	if err != nil {
		logging.Get(logging.CategoryWidget).Error("widget template unavailable: %v", err)
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      WidgetURI,
			MIMEType: WidgetMIMEType,
			Text:     html,
			Meta:     mcplib.NewMetaFromMap(widgetMeta(s.cfg.Widget)),
		},
	}, nil
}

func widgetMeta(cfg config.WidgetConfig) map[string]any {
	return map[string]any{
		"openai/widgetPrefersBorder": cfg.PrefersBorder,
		"openai/widgetDomain":        cfg.Domain,
		"openai/widgetCSP": map[string]any{
			"connect_domains":  orEmpty(cfg.ConnectDomains),
			"resource_domains": orEmpty(cfg.ResourceDomains),
		},
		"openai/widgetDescription": cfg.Description,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
