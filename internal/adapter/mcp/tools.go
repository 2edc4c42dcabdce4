package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.submitFeedbackTool(),
		s.getFeedbackTool(),
		s.listFeedbackTool(),
		s.getCodingRuleTool(),
	)
}

func targetTypeNames() []string {
	names := make([]string, len(feedback.TargetTypes))
	for i, tt := range feedback.TargetTypes {
		names[i] = string(tt)
	}
	return names
}

func (s *Server) submitFeedbackTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("submit_feedback",
		mcplib.WithDescription("Propose adding, modifying or deleting a catalogue entity. The proposal enters the review queue as PENDING."),
		mcplib.WithString("target_type",
			mcplib.Required(),
			mcplib.Description("Entity kind the proposal targets"),
			mcplib.Enum(targetTypeNames()...),
		),
		mcplib.WithString("feedback_type",
			mcplib.Required(),
			mcplib.Description("ADD (alias CREATE), MODIFY (alias UPDATE) or DELETE"),
		),
		mcplib.WithNumber("target_id",
			mcplib.Description("Id of the entity to modify or delete; omit for ADD"),
		),
		mcplib.WithObject("payload",
			mcplib.Description("Entity fields for ADD, changed fields for MODIFY, empty for DELETE"),
		),
		mcplib.WithString("risk_level",
			mcplib.Description("LOW, MEDIUM or HIGH; defaults per target type"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSubmitFeedback}
}

func (s *Server) getFeedbackTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_feedback",
		mcplib.WithDescription("Get a feedback item and its review status by id"),
		mcplib.WithNumber("feedback_id",
			mcplib.Required(),
			mcplib.Description("The feedback id returned by submit_feedback"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetFeedback}
}

func (s *Server) listFeedbackTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_feedback",
		mcplib.WithDescription("List feedback items, newest first, optionally filtered"),
		mcplib.WithString("status", mcplib.Description("PENDING, LLM_APPROVED, LLM_REJECTED, HUMAN_APPROVED, HUMAN_REJECTED or MERGED")),
		mcplib.WithString("target_type", mcplib.Description("Restrict to one entity kind")),
		mcplib.WithNumber("after_id", mcplib.Description("Return items after this id (pagination cursor)")),
		mcplib.WithNumber("limit", mcplib.Description("Page size, at most 100")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListFeedback}
}

func (s *Server) getCodingRuleTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_coding_rule",
		mcplib.WithDescription("Get a coding rule by id"),
		mcplib.WithNumber("rule_id",
			mcplib.Required(),
			mcplib.Description("The coding rule id"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetCodingRule}
}

func (s *Server) handleSubmitFeedback(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Feedback == nil {
		return mcplib.NewToolResultError("feedback service not configured"), nil
	}
	args := req.GetArguments()

	targetID, err := optionalID(args, "target_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	payload, err := rawPayload(args["payload"])
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	cmd, err := feedback.ParseCreateCommand(
		req.GetString("target_type", ""),
		targetID,
		req.GetString("feedback_type", ""),
		payload,
		req.GetString("risk_level", ""),
	)
	if err != nil {
		return toolError(ctx, "submit_feedback", err), nil
	}

	it, err := s.deps.Feedback.Create(ctx, cmd)
	if err != nil {
		return toolError(ctx, "submit_feedback", err), nil
	}
	return toolResultJSON(it)
}

func (s *Server) handleGetFeedback(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Feedback == nil {
		return mcplib.NewToolResultError("feedback service not configured"), nil
	}
	id, err := requiredID(req.GetArguments(), "feedback_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	it, err := s.deps.Feedback.Get(ctx, id)
	if err != nil {
		return toolError(ctx, "get_feedback", err), nil
	}
	return toolResultJSON(it)
}

func (s *Server) handleListFeedback(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Feedback == nil {
		return mcplib.NewToolResultError("feedback service not configured"), nil
	}
	args := req.GetArguments()
	afterID, err := optionalID(args, "after_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	filter := feedback.ListFilter{
		Status:     feedback.Status(strings.ToUpper(req.GetString("status", ""))),
		TargetType: feedback.TargetType(strings.ToUpper(req.GetString("target_type", ""))),
		Limit:      req.GetInt("limit", 0),
	}
	if afterID != nil {
		filter.AfterID = *afterID
	}

	items, err := s.deps.Feedback.List(ctx, filter)
	if err != nil {
		return toolError(ctx, "list_feedback", err), nil
	}
	if items == nil {
		items = []feedback.Item{}
	}
	return toolResultJSON(items)
}

func (s *Server) handleGetCodingRule(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Catalog == nil {
		return mcplib.NewToolResultError("catalog not configured"), nil
	}
	id, err := requiredID(req.GetArguments(), "rule_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	rule, err := s.deps.Catalog.CodingRule(ctx, id)
	if err != nil {
		return toolError(ctx, "get_coding_rule", err), nil
	}
	return toolResultJSON(rule)
}

// toolResultJSON marshals v as the text content of a successful result.
func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// toolError turns client-correctable errors into readable tool errors and
// hides everything else behind a generic message.
func toolError(ctx context.Context, tool string, err error) *mcplib.CallToolResult {
	var (
		notFound   *feedback.NotFoundError
		transition *feedback.InvalidTransitionError
		mergeCheck *feedback.MergeValidationError
	)
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &transition),
		errors.As(err, &mergeCheck),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict):
		return mcplib.NewToolResultError(err.Error())
	default:
		slog.ErrorContext(ctx, "mcp tool failed", "tool", tool, "error", err)
		return mcplib.NewToolResultError("internal error")
	}
}

// optionalID reads a positive integer argument. JSON numbers arrive as
// float64; numeric strings are accepted too.
func optionalID(args map[string]any, key string) (*int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var id int64
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit
		if v < 1 || v >= math.MaxInt64 {
			return nil, fmt.Errorf("%s must be positive and fit in 64 bits", key)
		}
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		id = parsed
	default:
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%s must be positive", key)
	}
	return &id, nil
}

func requiredID(args map[string]any, key string) (int64, error) {
	id, err := optionalID(args, key)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	return *id, nil
}

// rawPayload accepts the payload as a JSON object or as a JSON-encoded string.
func rawPayload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case string:
		if !json.Valid([]byte(p)) {
			return nil, errors.New("payload is not valid JSON")
		}
		return json.RawMessage(p), nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		return data, nil
	}
}
