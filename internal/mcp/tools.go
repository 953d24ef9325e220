package mcptools

import (
	"context"

	"blockyweb/internal/actions"
	"blockyweb/internal/blocky"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatusSource reports the current blocking state.
type StatusSource interface {
	Status(ctx context.Context) (blocky.BlockingStatus, error)
}

func RegisterTools(s *server.MCPServer, d *actions.Dispatcher, status StatusSource) {
	h := &handlers{dispatcher: d, status: status}

	s.AddTool(
		mcp.NewTool("blocking_status",
			mcp.WithDescription("Report whether blocky is currently blocking, and how long until it re-enables itself when temporarily disabled."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		),
		h.blockingStatus,
	)

	s.AddTool(
		mcp.NewTool("query_domain",
			mcp.WithDescription("Ask blocky whether a domain is blocked, by resolving it as an A record."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("domain", mcp.Description("Domain name to check"), mcp.Required()),
		),
		h.queryDomain,
	)

	s.AddTool(
		mcp.NewTool("toggle_blocking",
			mcp.WithDescription("Enable or disable blocking on the blocky server."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("state",
				mcp.Description("Target state"),
				mcp.Enum(string(blocky.Enable), string(blocky.Disable)),
				mcp.Required(),
			),
		),
		h.toggleBlocking,
	)

	s.AddTool(
		mcp.NewTool("allow_domain",
			mcp.WithDescription("Append a domain to the allow-list file and ask blocky to refresh its lists."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("domain", mcp.Description("Domain name to allow"), mcp.Required()),
		),
		h.allowDomain,
	)
}
