// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Self tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/selfhq/self/internal/capture"
	"github.com/selfhq/self/internal/store"
)

// Server wraps the MCP server with Self tools.
type Server struct {
	mcp *server.MCPServer
	svc *capture.Service
}

// New creates a new MCP server with all Self tools registered.
func New(svc *capture.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Self",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Full-text search through captured item content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Read one captured item by id, including its content and metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("capture_text",
		mcp.WithDescription("Capture a new text or link item. URLs are classified "+
			"as links and enriched with page metadata when available."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text or URL to capture")),
		mcp.WithString("title", mcp.Description("Optional item title")),
	), s.captureText)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List recent items, newest first."),
		mcp.WithString("tag", mcp.Description("Optional tag id to filter by")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with their ids."),
	), s.listTags)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.GetItem(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(item, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) captureText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := ""
	if v, argErr := req.RequireString("title"); argErr == nil {
		title = v
	}
	item, err := s.svc.CreateItem(ctx, capture.ItemInput{Content: content, Title: title}, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("captured: %s (%s)", item.ID, item.Type)), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := store.ItemFilter{Limit: 50}
	if tag, err := req.RequireString("tag"); err == nil {
		f.TagID = tag
	}
	items, _, err := s.svc.ListItems(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, it := range items {
		line := fmt.Sprintf("%s\t%s\t%s", it.ID, it.Type, firstLine(it.Content))
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no items"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	var lines []string
	for _, tag := range tags {
		lines = append(lines, fmt.Sprintf("%s\t%s", tag.ID, tag.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// firstLine truncates content to its first line for compact listings.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
