// Package mcp exposes the article pipelines as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"articlerag/internal/answer"
	"articlerag/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Ingestor queues a URL for ingestion and returns the task id.
type Ingestor interface {
	Enqueue(ctx context.Context, url string) (string, error)
}

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (*answer.Answer, error)
}

// DocumentStore resolves document ids.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

// Server wraps the MCP server around the ingestion and answer pipelines.
type Server struct {
	mcpServer *server.MCPServer
	ingestor  Ingestor
	answerer  Answerer
	store     DocumentStore
}

// NewServer creates an MCP server exposing ask, ingest_url, and get_document.
func NewServer(config Config, ingestor Ingestor, answerer Answerer, store DocumentStore) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		ingestor:  ingestor,
		answerer:  answerer,
		store:     store,
	}

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the ingested articles. Returns the answer and its source URLs."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of chunks to retrieve (default: 5)"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	ingestTool := mcp.NewTool("ingest_url",
		mcp.WithDescription("Queue a web article for ingestion. Returns the task id to poll."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of the article to ingest"),
		),
	)
	mcpServer.AddTool(ingestTool, s.ingestHandler)

	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get an ingested document by ID, including its structured content"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Document ID to retrieve"),
		),
	)
	mcpServer.AddTool(getDocTool, s.getDocumentHandler)

	return s
}

// askHandler handles the ask tool call.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	topK := req.GetInt("top_k", 0)

	result, err := s.answerer.Answer(ctx, question, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// ingestHandler handles the ingest_url tool call.
func (s *Server) ingestHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	taskID, err := s.ingestor.Enqueue(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to queue url: %v", err)), nil
	}

	payload, _ := json.Marshal(map[string]string{"task_id": taskID, "status": "queued"})
	return mcp.NewToolResultText(string(payload)), nil
}

// getDocumentHandler handles the get_document tool call.
func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", id)), nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal document: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
