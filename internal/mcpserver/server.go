// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the date-adjustment operations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/timeshift/internal/runservice"
)

// ContractURI is the resource URI of the filter contract.
const ContractURI = "timeshift://filter-contract"

// Server wraps the MCP server with timeshift tools.
type Server struct {
	mcp *server.MCPServer
	svc *runservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *runservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"timeshift",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_properties",
		mcp.WithDescription("List the properties of the Notion database with their types. "+
			"Only select, multi_select, title, rich_text, number, checkbox, people and formula can be filtered on."),
	), s.listProperties)

	s.mcp.AddTool(mcp.NewTool("adjust_dates",
		mcp.WithDescription("Shift the Date property of every matching record whose start is on or after "+
			"start_date by the given number of hours. Read the filter contract first via the "+
			ContractURI+" resource. Every call writes to Notion; repeating a call shifts again."),
		mcp.WithNumber("hours", mcp.Required(), mcp.Description("Hours to shift; negative moves dates earlier")),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Cutoff date, e.g. 2024-06-01 or 2024-06-01T08:00:00")),
		mcp.WithBoolean("move_backward", mcp.Description("Treat hours as a magnitude and shift earlier")),
		mcp.WithObject("filters", mcp.Description("Property name to value; all filters must match")),
		mcp.WithString("preset", mcp.Description("Name of a configured filter preset")),
	), s.adjustDates)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent adjustment runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
	), s.listRuns)

	s.mcp.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List the configured filter presets."),
	), s.listPresets)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Filter Contract",
			mcp.WithResourceDescription("How filter values are matched for each property type."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContract,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) listProperties(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	props, err := s.svc.Properties(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(props)
}

func (s *Server) adjustDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startDate, err := req.RequireString("start_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hours, err := req.RequireInt("hours")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filters := map[string]string{}
	if raw, ok := req.GetArguments()["filters"].(map[string]any); ok {
		for k, v := range raw {
			filters[k] = fmt.Sprint(v)
		}
	}

	resp, err := s.svc.Adjust(ctx, runservice.Request{
		Hours:     hours,
		StartDate: startDate,
		Backward:  req.GetBool("move_backward", false),
		Filters:   filters,
		Preset:    req.GetString("preset", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !resp.Success {
		return mcp.NewToolResultError(resp.Error), nil
	}

	text := resp.Message
	if resp.Warning != "" {
		text += "\nWarning: " + resp.Warning
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.svc.Runs(ctx, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(runs)
}

func (s *Server) listPresets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Presets())
}

func (s *Server) readContract(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     FilterContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
