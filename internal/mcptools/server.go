package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeIntelMCPServer creates an MCP server with the graph tools registered.
func NewCodeIntelMCPServer(svc *CodeIntelService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codekg",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_graph",
		Description: "Build the code knowledge graph from a solution manifest or a list of project manifests. Extracts project dependencies and, from TypeScript and Go sources, classes, interfaces, methods, inheritance, calls, instantiations and file layout.",
	}, svc.BuildGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_nodes",
		Description: "Search graph nodes by label and case-insensitive name substring. Returns each node's primary key, full name and properties.",
	}, svc.QueryNodes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_relationships",
		Description: "List the relationships (HAVE, INVOKE, CONSTRUCT, OF_TYPE, DECLARED_AT, INCLUDED_IN, DEPENDS_ON) entering or leaving a node, given its label and primary key.",
	}, svc.GetRelationships)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Return node counts by label and relationship counts by type.",
	}, svc.GraphStats)

	return server
}

// RunMCPServer starts an HTTP server exposing the graph MCP tools. It returns
// when ctx is cancelled or the listener fails.
func RunMCPServer(ctx context.Context, svc *CodeIntelService, addr string) error {
	server := NewCodeIntelMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	svc.log.Info("serving MCP", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
