package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"blockyweb/internal/actions"

	"github.com/mark3labs/mcp-go/mcp"
)

type handlers struct {
	dispatcher *actions.Dispatcher
	status     StatusSource
}

func (h *handlers) blockingStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.status.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch blocking status: %v", err)), nil
	}
	return jsonResult(StatusToDTO(st))
}

func (h *handlers) queryDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	domain, _ := args["domain"].(string)
	return h.dispatch(ctx, actions.Request{Action: string(actions.Query), Domain: domain})
}

func (h *handlers) toggleBlocking(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	state, _ := args["state"].(string)
	return h.dispatch(ctx, actions.Request{Action: string(actions.Toggle), State: state})
}

func (h *handlers) allowDomain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	domain, _ := args["domain"].(string)
	return h.dispatch(ctx, actions.Request{
		Action:   string(actions.Add),
		Domain:   domain,
		Redirect: actions.Flag{Value: false, Set: true},
	})
}

// dispatch runs the same action path as POST /api. Validation failures and
// RC false results surface as tool errors.
func (h *handlers) dispatch(ctx context.Context, req actions.Request) (*mcp.CallToolResult, error) {
	res, err := h.dispatcher.Dispatch(ctx, req)
	if err != nil {
		var verr *actions.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(verr.Message), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("action failed: %v", err)), nil
	}
	if !res.RC {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(ResultToDTO(res))
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
