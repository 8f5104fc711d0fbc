package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	QueryLogURI = "lexsearch://query_log"
	MetricsURI  = "lexsearch://metrics"
)

// ResourceInfo describes a registered resource.
type ResourceInfo struct {
	URI         string
	Name        string
	Description string
}

func (s *Server) resources() []ResourceInfo {
	return []ResourceInfo{
		{
			URI:         QueryLogURI,
			Name:        "query_log",
			Description: "Query patterns seen by this server: top terms, zero-result queries, latency buckets",
		},
		{
			URI:         MetricsURI,
			Name:        "metrics",
			Description: "Search engine counters: searches by outcome, objects indexed, invalidations",
		},
	}
}

func (s *Server) registerResources() {
	for _, r := range s.resources() {
		uri := r.URI
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        r.Name,
				URI:         uri,
				Description: r.Description,
				MIMEType:    "application/json",
			},
			func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
				text, err := s.ReadResource(ctx, uri)
				if err != nil {
					return nil, err
				}
				return &mcp.ReadResourceResult{
					Contents: []*mcp.ResourceContents{
						{URI: uri, MIMEType: "application/json", Text: text},
					},
				}, nil
			},
		)
	}
}

// ListResources returns the registered resources.
func (s *Server) ListResources() []ResourceInfo {
	return s.resources()
}

// ReadResource returns the resource at uri as indented JSON.
func (s *Server) ReadResource(_ context.Context, uri string) (string, error) {
	var v any
	switch uri {
	case QueryLogURI:
		v = s.searcher.QueryLog().Snapshot()
	case MetricsURI:
		samples, err := s.searcher.Metrics().Samples()
		if err != nil {
			return "", MapError(err)
		}
		v = samples
	default:
		return "", &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("Resource '%s' not found.", uri),
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", MapError(err)
	}
	return string(data), nil
}
