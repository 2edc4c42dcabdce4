package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

const (
	uriPendingQueue     = "standardhub://feedback/pending"
	uriHumanReviewQueue = "standardhub://feedback/human-review"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriPendingQueue,
			"Pending Feedback",
			mcplib.WithResourceDescription("Feedback items awaiting LLM review, oldest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.queueResource(func(ctx context.Context) ([]feedback.Item, error) {
			return s.deps.Feedback.Pending(ctx, 0, feedback.MaxListLimit)
		}),
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriHumanReviewQueue,
			"Human Review Queue",
			mcplib.WithResourceDescription("LLM-approved feedback items that still need a human decision"),
			mcplib.WithMIMEType("application/json"),
		),
		s.queueResource(func(ctx context.Context) ([]feedback.Item, error) {
			return s.deps.Feedback.AwaitingHumanReview(ctx, 0, feedback.MaxListLimit)
		}),
	)
}

func (s *Server) queueResource(load func(context.Context) ([]feedback.Item, error)) func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
		text := `{"error":"feedback service not configured"}`
		if s.deps.Feedback != nil {
			items, err := load(ctx)
			if err != nil {
				return nil, err
			}
			if items == nil {
				items = []feedback.Item{}
			}
			data, err := json.Marshal(items)
			if err != nil {
				return nil, err
			}
			text = string(data)
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}
