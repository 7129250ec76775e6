package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueneutral/internal/domain"
)

type stubRecommender struct {
	queries []domain.Query
	recs    []domain.Recommendation
	err     error
}

func (s *stubRecommender) Recommend(ctx context.Context, q domain.Query) ([]domain.Recommendation, error) {
	s.queries = append(s.queries, q)
	return s.recs, s.err
}

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func typeText(s string) tea.Msg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_SearchByTitleAndBrowse(t *testing.T) {
	stub := &stubRecommender{recs: []domain.Recommendation{
		{Book: domain.Book{Title: "Dune", Author: "Frank Herbert", Summary: "Desert planet. Spice and worms."}, Score: 0.9},
		{Book: domain.Book{Title: "Hyperion", Author: "Dan Simmons"}, Score: 0.4},
	}}
	m := send(New(stub, "42 books", 5),
		tea.WindowSizeMsg{Width: 80, Height: 30},
		typeText("Foundation"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	require.Len(t, stub.queries, 1)
	assert.Equal(t, domain.Query{Title: "Foundation", NSim: 5, WithSummary: true}, stub.queries[0])

	model := m.(Model)
	assert.Equal(t, 0, model.cursor)
	assert.Contains(t, model.status, "2 books similar to")
	assert.Contains(t, model.renderCurrentResult(), "Dune")

	model = send(model, tea.KeyMsg{Type: tea.KeyDown}).(Model)
	assert.Equal(t, 1, model.cursor)
	assert.Contains(t, model.renderCurrentResult(), "Hyperion")

	model = send(model, tea.KeyMsg{Type: tea.KeyDown}).(Model)
	assert.Equal(t, 0, model.cursor)
	model = send(model, tea.KeyMsg{Type: tea.KeyUp}).(Model)
	assert.Equal(t, 1, model.cursor)
}

func TestModel_TabMovesToSummary(t *testing.T) {
	stub := &stubRecommender{}
	m := send(New(stub, "", 3),
		tea.WindowSizeMsg{Width: 80, Height: 30},
		tea.KeyMsg{Type: tea.KeyTab},
		typeText("a boy wizard"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	require.Len(t, stub.queries, 1)
	assert.Equal(t, "", stub.queries[0].Title)
	assert.Equal(t, "a boy wizard", stub.queries[0].Summary)
	assert.Contains(t, m.View(), "Book Recommendations")
}

func TestModel_EmptyQueryDoesNotSearch(t *testing.T) {
	stub := &stubRecommender{}
	m := send(New(stub, "", 3), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, stub.queries)
	assert.Equal(t, "Enter a title or a summary.", m.(Model).status)
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_ErrorShownInStatus(t *testing.T) {
	stub := &stubRecommender{err: &domain.UnknownTitleError{Title: "Nope"}}
	m := send(New(stub, "", 3), typeText("Nope"), tea.KeyMsg{Type: tea.KeyEnter})
	model := m.(Model)
	assert.True(t, strings.HasPrefix(model.status, "Error: "))
	assert.Nil(t, model.results)
	assert.Equal(t, "No results yet.", model.renderCurrentResult())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("The sky is blue. Dragons burn villages.", "dragons villages")
	assert.Contains(t, out, "The sky is blue.")
	assert.Contains(t, out, "Dragons burn villages.")
	assert.Equal(t, "One. Two.", highlightBestSentence("One. Two.", ""))
}

func TestHighlightBestSentence_UnterminatedLastSentence(t *testing.T) {
	out := highlightBestSentence("A wizard studies magic. She later fights a dragon", "dragon")
	assert.Equal(t, "A wizard studies magic. "+highlightStyle.Render("She later fights a dragon"), out)

	out = highlightBestSentence("No punctuation at all", "")
	assert.Equal(t, "No punctuation at all", out)
}
