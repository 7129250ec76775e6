package present

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueneutral/internal/domain"
)

func TestPrint(t *testing.T) {
	recs := []domain.Recommendation{
		{Book: domain.Book{Title: "Dune", Author: "Frank Herbert", Genres: "Science Fiction, Classics"}, Score: 0.8765},
		{Book: domain.Book{Title: "Hyperion", Author: "Dan Simmons", Genres: "Science Fiction"}, Score: 0.5, ShortSummary: "Seven pilgrims travel to the Time Tombs."},
	}
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, false).Print(recs))

	want := "Dune by Frank Herbert\n" +
		"Genres: Science Fiction, Classics\n" +
		"Correlation: 0.88\n\n" +
		"Hyperion by Dan Simmons\n" +
		"Genres: Science Fiction\n" +
		"Correlation: 0.50\n" +
		"Short Summary:\n" +
		"Seven pilgrims travel to the Time Tombs.\n\n"
	assert.Equal(t, want, buf.String())
}

func TestPrint_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, true).Print(nil))
	assert.Empty(t, buf.String())
}

func TestFormat_StyledKeepsText(t *testing.T) {
	out := NewPrinter(nil, true).Format(domain.Recommendation{Book: domain.Book{Title: "Dune", Author: "Frank Herbert"}, Score: 1})
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, " by Frank Herbert")
	assert.Contains(t, out, "1.00")
}
