package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs for AWS environment metadata.
const (
	resourceProfiles    = "aws://config/profiles"
	resourceRegions     = "aws://config/regions"
	resourceEnvironment = "aws://config/environment"
	resourceAccount     = "aws://config/account"
)

// registerResources publishes the aws://config/* resources. Skipped when no
// environment reader is wired (tests exercising only the tools).
func (s *Server) registerResources() {
	if s.env == nil {
		return
	}

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceProfiles,
		Name:        "AWS Profiles",
		Description: "Profiles configured in ~/.aws/config and ~/.aws/credentials",
		MIMEType:    "application/json",
	}, s.readProfiles)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceRegions,
		Name:        "AWS Regions",
		Description: "Known AWS regions with the current region flagged",
		MIMEType:    "application/json",
	}, s.readRegions)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceEnvironment,
		Name:        "AWS Environment",
		Description: "Active profile, region, and credential state",
		MIMEType:    "application/json",
	}, s.readEnvironment)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceAccount,
		Name:        "AWS Account",
		Description: "Account id and alias for the current credentials",
		MIMEType:    "application/json",
	}, s.readAccount)
}

func (s *Server) readProfiles(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	current := s.env.Current().Profile

	type profile struct {
		Name    string `json:"name"`
		Current bool   `json:"is_current"`
	}
	var profiles []profile
	for _, name := range s.env.Profiles() {
		profiles = append(profiles, profile{Name: name, Current: name == current})
	}

	return jsonResource(resourceProfiles, map[string]any{"profiles": profiles})
}

func (s *Server) readRegions(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(resourceRegions, map[string]any{"regions": s.env.Regions()})
}

func (s *Server) readEnvironment(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(resourceEnvironment, s.env.Current())
}

func (s *Server) readAccount(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(resourceAccount, s.env.Account(ctx))
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
