package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "kotae://"

func (s *Server) registerResources() {
	if s.registry != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "commands",
			Name:        "commands",
			Description: "Commands a proposal may contain, with their argument shapes",
			MIMEType:    "application/json",
		}, s.handleCommandsResource)
	}
	if s.sources != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "sources",
			Name:        "sources",
			Description: "Sources of the ingested documents",
			MIMEType:    "application/json",
		}, s.handleSourcesResource)
	}
}

func (s *Server) handleCommandsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.registry.Entries())
}

func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sources, err := s.sources.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	if sources == nil {
		sources = []string{}
	}
	return jsonResource(req.Params.URI, sources)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
