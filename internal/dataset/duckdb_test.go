package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	csv := "Title,Author,Genres,Summary\n" +
		"Dune,Frank Herbert,Science Fiction,\"Spice, sand and worms.\"\n" +
		"Blank,Nobody,None,\n" +
		"Emma,Jane Austen,Classics,A matchmaker meddles.\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	books, err := LoadTable(t.Context(), path, true, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Spice, sand and worms.", books[0].Summary)
	assert.Equal(t, "Jane Austen", books[1].Author)
}

func TestLoadTable_Unsupported(t *testing.T) {
	_, err := LoadTable(t.Context(), "books.txt", false, zerolog.Nop())
	assert.Error(t, err)
}
