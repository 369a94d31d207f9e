// Package expert exposes the query pipeline as an MCP server.
package expert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/feedback"
	"github.com/dominicdesy/intelia-expert-sub005/memory"
	"github.com/dominicdesy/intelia-expert-sub005/pipeline"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

const Version = "1.0.0"

// NewServer builds the MCP server and registers the expert tools.
func NewServer(pipe *pipeline.Pipeline, mem memory.History, fm *feedback.Manager) *server.MCPServer {
	s := server.NewMCPServer(
		"intelia-expert",
		Version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Broiler production expert. Ask questions about performance targets, environment settings, health and economics; answers are grounded in the knowledge base."),
	)

	s.AddTool(
		mcp.NewTool("ask-expert",
			mcp.WithDescription("Answer a broiler production question from the knowledge base"),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
			mcp.WithString("language", mcp.Description("ISO 639-1 language code of the question (default en)")),
			mcp.WithString("session_id", mcp.Description("Conversation session identifier for follow-up questions")),
		),
		handleAskExpert(pipe),
	)

	s.AddTool(
		mcp.NewTool("clear-session",
			mcp.WithDescription("Forget the conversation history of a session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to clear")),
		),
		handleClearSession(mem),
	)

	if fm != nil {
		s.AddTool(
			mcp.NewTool("rate-answer",
				mcp.WithDescription("Rate a previous answer as helpful or not"),
				mcp.WithString("query_id", mcp.Required(), mcp.Description("The query_id returned by ask-expert")),
				mcp.WithBoolean("helpful", mcp.Required(), mcp.Description("Whether the answer was helpful")),
			),
			handleRateAnswer(fm),
		)
		s.AddTool(
			mcp.NewTool("feedback-stats",
				mcp.WithDescription("Summarize recent answer outcomes and ratings"),
			),
			handleFeedbackStats(fm),
		)
	}

	return s
}

func handleAskExpert(pipe *pipeline.Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		language := req.GetString("language", "")
		sessionID := req.GetString("session_id", "")

		result := pipe.ProcessQuery(ctx, question, language, sessionID)

		payload, err := json.Marshal(toToolResponse(result))
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func handleRateAnswer(fm *feedback.Manager) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryID, err := req.RequireString("query_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		helpful, err := req.RequireBool("helpful")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !fm.RecordRating(queryID, helpful) {
			return mcp.NewToolResultError("unknown or expired query_id"), nil
		}
		return mcp.NewToolResultText(`{"recorded":true}`), nil
	}
}

func handleFeedbackStats(fm *feedback.Manager) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.Marshal(fm.Stats())
		if err != nil {
			return nil, fmt.Errorf("marshal stats: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func handleClearSession(mem memory.History) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mem.Clear(sessionID)
		return mcp.NewToolResultText(`{"cleared":true}`), nil
	}
}

// toolResponse is the wire shape returned to MCP clients. It strips the
// full documents down to title/source references.
type toolResponse struct {
	QueryID    string      `json:"query_id,omitempty"`
	Status     string      `json:"status"`
	Answer     string      `json:"answer,omitempty"`
	Message    string      `json:"message,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Intent     string      `json:"intent,omitempty"`
	Verified   bool        `json:"verified,omitempty"`
	FromCache  bool        `json:"from_cache,omitempty"`
	Sources    []sourceRef `json:"sources,omitempty"`
	TookMs     int64       `json:"took_ms"`
}

type sourceRef struct {
	Title  string  `json:"title,omitempty"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score"`
}

func toToolResponse(r schema.PipelineResult) toolResponse {
	out := toolResponse{
		QueryID:    r.QueryID,
		Status:     string(r.Status),
		Answer:     r.Answer,
		Message:    r.Message,
		Confidence: r.Confidence,
		Intent:     string(r.Intent.Intent),
		Verified:   r.Verified,
		FromCache:  r.FromCache,
		TookMs:     r.TookMs,
	}
	for _, d := range r.Documents {
		out.Sources = append(out.Sources, sourceRef{Title: d.Title(), Source: d.Source(), Score: d.Score})
	}
	return out
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	logger.Infof("expert: serving MCP over stdio")
	return server.ServeStdio(s)
}
