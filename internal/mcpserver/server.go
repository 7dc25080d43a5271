// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes PromptPad tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/promptservice"
	"github.com/starford/promptpad/internal/search"
)

// Server wraps the MCP server with PromptPad tools.
type Server struct {
	mcp *server.MCPServer
	svc *promptservice.Service
}

// New creates a new MCP server with all PromptPad tools registered.
func New(svc *promptservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"PromptPad",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_prompts",
		mcp.WithDescription("Case-insensitive literal search through prompt bodies. An empty query returns every prompt."),
		mcp.WithString("query", mcp.Description("Text to look for")),
	), s.searchPrompts)

	s.mcp.AddTool(mcp.NewTool("read_prompt",
		mcp.WithDescription("Read a prompt: metadata, body and checksum."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id (UUID)")),
	), s.readPrompt)

	s.mcp.AddTool(mcp.NewTool("create_prompt",
		mcp.WithDescription("Create a new prompt. PromptPad assigns the id and file name; "+
			"see get_prompt_format or the "+PromptFormatURI+" resource for how it is stored."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Prompt body")),
		mcp.WithString("description", mcp.Description("Optional short description")),
		mcp.WithString("folder", mcp.Description("Folder name; empty means uncategorized")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Optional tags")),
	), s.createPrompt)

	s.mcp.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List prompt metadata, most used first."),
		mcp.WithString("folder", mcp.Description("Only prompts in this folder")),
		mcp.WithString("tag", mcp.Description("Only prompts carrying this tag")),
		mcp.WithString("query", mcp.Description("Substring of the name or description")),
	), s.listPrompts)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List prompt folders."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("record_usage",
		mcp.WithDescription("Record that a prompt was used: increments use_count and sets last_used_at."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id (UUID)")),
	), s.recordUsage)

	s.mcp.AddTool(mcp.NewTool("get_prompt_format",
		mcp.WithDescription("Returns the PromptPad prompt file format."),
	), s.getPromptFormat)

	s.mcp.AddResource(
		mcp.NewResource(PromptFormatURI, "Prompt Format",
			mcp.WithResourceDescription("How PromptPad stores prompts as Markdown files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPromptFormatResource,
	)

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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.svc.SearchContent(ctx, req.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPrompt(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) createPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, err := s.svc.CreatePrompt(ctx, models.CreateInput{
		Name:        name,
		Content:     content,
		Description: req.GetString("description", ""),
		Folder:      strings.TrimSpace(req.GetString("folder", "")),
		Tags:        req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m)
}

func (s *Server) listPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListPrompts(ctx, search.Filter{
		Folder: req.GetString("folder", ""),
		Tag:    req.GetString("tag", ""),
		Query:  req.GetString("query", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) listFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.svc.ListFolders(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(folders, "\n")), nil
}

func (s *Server) recordUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.RecordUsage(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m)
}

func (s *Server) getPromptFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptFormatContract), nil
}

func (s *Server) readPromptFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PromptFormatURI,
			MIMEType: "text/markdown",
			Text:     PromptFormatContract,
		},
	}, nil
}
