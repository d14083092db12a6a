// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz note tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/noteservice"
)

// Server wraps the MCP server with Ansuz tools. All tools operate on behalf
// of a single configured user identity; stdio transport carries no bearer
// tokens, so the identity is fixed at startup.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	userID string
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *noteservice.Service, userID string) *Server {
	s := &Server{svc: svc, userID: userID}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest first."),
		mcp.WithNumber("page", mcp.Description("Page number (1-based, default 1)")),
		mcp.WithNumber("page_size", mcp.Description("Page size (default 20)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a single note by id, including its summary if one exists."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Set is_conversation to group the note "+
			"into a thread; supply conversation_id to append to an existing thread."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (1-255 characters)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
		mcp.WithBoolean("is_conversation", mcp.Description("Whether the note belongs to a conversation thread")),
		mcp.WithString("conversation_id", mcp.Description("Existing thread to append to (conversation notes only)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note's title and/or content. Omitted fields are left unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note permanently."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("summarize_note",
		mcp.WithDescription("Summarize a note via the AI service and persist the summary on the note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithNumber("max_length", mcp.Description("Maximum summary length, 50-1000 (default 100)")),
	), s.summarizeNote)

	s.mcp.AddTool(mcp.NewTool("list_conversations",
		mcp.WithDescription("List conversation threads."),
	), s.listConversations)

	s.mcp.AddTool(mcp.NewTool("read_thread",
		mcp.WithDescription("Read all notes of a conversation thread in chronological order."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), s.readThread)

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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	pageSize := req.GetInt("page_size", noteservice.DefaultPageSize)

	notes, total, err := s.svc.ListNotes(ctx, s.userID, page, pageSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": notes, "total": total}), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(note), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.CreateNote(ctx, s.userID, noteservice.CreateParams{
		Title:          title,
		Content:        content,
		IsConversation: req.GetBool("is_conversation", false),
		ConversationID: req.GetString("conversation_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var params noteservice.UpdateParams
	if title := req.GetString("title", ""); title != "" {
		params.Title = &title
	}
	if content := req.GetString("content", ""); content != "" {
		params.Content = &content
	}

	note, err := s.svc.UpdateNote(ctx, s.userID, id, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, s.userID, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) summarizeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxLength := req.GetInt("max_length", 100)

	res, err := s.svc.Summarize(ctx, s.userID, id, maxLength)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"summary":  res.Summary,
		"ai_model": res.Model,
	}), nil
}

func (s *Server) listConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	heads, err := s.svc.ListConversations(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(heads), nil
}

func (s *Server) readThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	thread, err := s.svc.ConversationThread(ctx, s.userID, conversationID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(thread), nil
}
