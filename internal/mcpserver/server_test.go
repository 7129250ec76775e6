package mcpserver

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueneutral/internal/domain"
	"trueneutral/internal/service"
)

type stubRecommender struct {
	got    domain.Query
	source string
	recs   []domain.Recommendation
	err    error
}

func (s *stubRecommender) Recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error) {
	s.got = q
	s.source = service.SourceFromContext(ctx)
	return s.recs, s.err
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRecommendBooks(t *testing.T) {
	stub := &stubRecommender{recs: []domain.Recommendation{
		{Book: domain.Book{Title: "Dune", Author: "Frank Herbert", Genres: "Science Fiction"}, Score: 0.91, ShortSummary: "Spice."},
		{Book: domain.Book{Title: "Hyperion", Author: "Dan Simmons", Genres: "Science Fiction"}, Score: 0.5},
	}}
	s := New("trueneutral", "test", stub, zerolog.Nop())

	res, _, err := s.handleRecommend(context.Background(), nil, RecommendInput{Title: "Foundation", NSim: 2, WithSummary: true})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, domain.Query{Title: "Foundation", NSim: 2, WithSummary: true}, stub.got)
	assert.Equal(t, "mcp", stub.source)

	var out []Recommendation
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, Recommendation{Title: "Dune", Author: "Frank Herbert", Genres: "Science Fiction", CorrelationScore: 0.91, Summary: "Spice."}, out[0])
	assert.Empty(t, out[1].Summary)
}

func TestRecommendBooks_QueryError(t *testing.T) {
	stub := &stubRecommender{err: &domain.UnknownTitleError{Title: "Nope"}}
	s := New("trueneutral", "test", stub, zerolog.Nop())

	res, _, err := s.handleRecommend(context.Background(), nil, RecommendInput{Title: "Nope"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not in database")
}
