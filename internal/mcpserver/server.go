// Package mcpserver exposes the recommender as an MCP tool.
package mcpserver

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"trueneutral/internal/domain"
	"trueneutral/internal/logging"
	"trueneutral/internal/service"
)

const ToolName = "recommend_books"

// RecommendInput is the tool's argument object.
type RecommendInput struct {
	Title       string `json:"title,omitempty" jsonschema:"Title of a book in the catalog. Takes precedence over summary when found."`
	Summary     string `json:"summary,omitempty" jsonschema:"Free-text plot summary used when the title is unknown or absent."`
	NSim        int    `json:"nsim,omitempty" jsonschema:"Number of similar books to return. Default: 10"`
	WithSummary bool   `json:"with_summary,omitempty" jsonschema:"Attach a short extractive summary to every result"`
}

// Recommendation is one entry of the tool's JSON result.
type Recommendation struct {
	Title            string  `json:"title"`
	Author           string  `json:"author"`
	Genres           string  `json:"genres"`
	CorrelationScore float64 `json:"correlation_score"`
	Summary          string  `json:"summary,omitempty"`
}

// Server wraps an MCP server with the recommend_books tool registered.
type Server struct {
	server *mcp.Server
	svc    domain.Recommender
	logger zerolog.Logger
}

func New(name, version string, svc domain.Recommender, logger zerolog.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		svc:    svc,
		logger: logger,
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: "Recommend books similar to a known title or to a plot summary, ranked by correlation score.",
	}, s.handleRecommend)
	return s
}

// Run serves MCP over the given transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *Server) handleRecommend(ctx context.Context, req *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, any, error) {
	ctx = service.WithSource(logging.ContextWithNewRequestID(ctx), "mcp")
	recs, err := s.svc.Recommend(ctx, domain.Query{
		Title:       input.Title,
		Summary:     input.Summary,
		NSim:        input.NSim,
		WithSummary: input.WithSummary,
	})
	if err != nil {
		logging.Ctx(ctx, s.logger).Debug().Err(err).Msg("tool call rejected")
		return errorResult(err.Error()), nil, nil
	}

	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		out = append(out, Recommendation{
			Title:            r.Book.Title,
			Author:           r.Book.Author,
			Genres:           r.Book.Genres,
			CorrelationScore: r.Score,
			Summary:          r.ShortSummary,
		})
	}
	body, err := json.Marshal(out)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
