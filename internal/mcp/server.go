package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/lexsearch/pkg/searcher"
	"github.com/Aman-CERP/lexsearch/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "lexsearch"

// Server is the MCP server for lexsearch. It exposes lexicon search to AI
// clients through the synchronous search path.
type Server struct {
	mcp      *mcp.Server
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search_lexicon",
		Description: "Find dictionary entries whose headword, gloss, citation form, category or senses contain a word starting with the query. Matching is case-insensitive; results are the full entries in id order.",
	},
	{
		Name:        "index_status",
		Description: "Report the open lexicon (entries, writing systems, index backend) and the state of each search engine.",
	},
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an MCP server over s.
func NewServer(s *searcher.Searcher, opts ...ServerOption) (*Server, error) {
	if s == nil {
		return nil, errors.New("searcher is required")
	}

	srv := &Server{searcher: s}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}

	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	srv.registerTools()
	srv.registerResources()
	return srv, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return slices.Clone(tools)
}

// CallTool invokes a tool by name with JSON-style arguments. search_lexicon
// returns its markdown rendering, index_status its structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_lexicon":
		var input SearchLexiconInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		out, err := s.searchLexicon(ctx, input)
		if err != nil {
			return nil, err
		}
		return FormatSearchResults(input.Query, out), nil
	case "index_status":
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, into any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, into); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.mcpSearchLexiconHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) searchLexicon(ctx context.Context, input SearchLexiconInput) (SearchLexiconOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return SearchLexiconOutput{}, NewInvalidParamsError("query parameter is required")
	}

	res, err := s.searcher.Search(ctx, searcher.Query{
		Text:    input.Query,
		Fields:  input.Fields,
		WS:      input.WS,
		Exclude: input.Exclude,
	})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "mcp_search_failed", slog.String("query", input.Query), slog.String("error", err.Error()))
		return SearchLexiconOutput{}, MapError(err)
	}

	hits := res.Hits
	if limit := clampLimit(input.Limit); len(hits) > limit {
		hits = hits[:limit]
	}
	s.logger.Debug("mcp_search",
		slog.String("query", input.Query),
		slog.Int("total", res.Total),
		slog.Duration("elapsed", res.Elapsed))

	return SearchLexiconOutput{
		Entries:   hits,
		Total:     res.Total,
		Truncated: len(hits) < res.Total,
	}, nil
}

func (s *Server) mcpSearchLexiconHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchLexiconInput) (
	*mcp.CallToolResult,
	SearchLexiconOutput,
	error,
) {
	out, err := s.searchLexicon(ctx, input)
	if err != nil {
		return nil, SearchLexiconOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(input.Query, out)}},
	}, out, nil
}

func (s *Server) indexStatus() *IndexStatusOutput {
	sr := s.searcher
	return &IndexStatusOutput{
		Lexicon: LexiconInfo{
			Path:           sr.Path(),
			Entries:        sr.Store().Len(),
			WritingSystems: sr.WritingSystems().Codes(),
			Backend:        sr.Backend(),
		},
		Engines: sr.Status(),
	}
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

// Serve runs the server on transport until ctx is done. Only "stdio" is
// supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
