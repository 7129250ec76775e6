package bundle

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueneutral/internal/domain"
	"trueneutral/internal/embedding/tfidf"
	"trueneutral/internal/embedding/word2vec"
)

func testBooks() []domain.Book {
	return []domain.Book{
		{Title: "The Wizard's School", Author: "A. Writer", Genres: "Fantasy", Summary: "A young wizard attends a school of magic and duels a dark lord."},
		{Title: "Starfall", Author: "B. Writer", Genres: "Science Fiction", Summary: "A starship crew explores a distant planet armed with lasers."},
		{Title: "Fog", Author: "C. Writer", Genres: "Mystery", Summary: "A detective solves a murder in the foggy streets of London."},
		{Title: "Dragon Crown", Author: "D. Writer", Genres: "Fantasy", Summary: "A wizard and a dragon fight for the crown of a magic kingdom."},
		{Title: "Fog", Author: "E. Writer", Genres: "Thriller", Summary: "A second book that happens to share a title."},
	}
}

func trainTestBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := NewTrainer(zerolog.Nop()).Train(context.Background(), tfidf.NewEmbedder(), testBooks())
	require.NoError(t, err)
	return b
}

func TestTrain_BuildsAlignedBundle(t *testing.T) {
	b := trainTestBundle(t)
	books := testBooks()

	require.NoError(t, b.Validate())
	assert.Equal(t, len(books), b.Catalog.Len())
	assert.Equal(t, len(books), b.Metadata.DocumentCount)
	assert.Equal(t, "tfidf", b.Metadata.Embedder)
	assert.Equal(t, b.Embedder.Dimension(), b.Metadata.Dimension)
	assert.NotEqual(t, [16]byte{}, [16]byte(b.Metadata.ID))

	for tag, book := range books {
		e, ok := b.Catalog.Entry(tag)
		require.True(t, ok)
		assert.Equal(t, book, e.Book)
		assert.Equal(t, tag, b.TrainCorpus[tag].Tag)
		assert.Equal(t, b.TrainCorpus[tag].Words, b.TestCorpus[tag])
	}
	assert.Equal(t, books[2].Author, b.Catalog.Authors()[2])
	assert.Equal(t, books[3].Genres, b.Catalog.Genres()[3])
	assert.Equal(t, books[1].Summary, b.Catalog.Summaries()[1])
	assert.Len(t, b.Catalog.Titles(), len(books))
}

func TestCatalog_DuplicateTitleResolvesToFirst(t *testing.T) {
	b := trainTestBundle(t)
	e, ok := b.Catalog.Lookup("Fog")
	require.True(t, ok)
	assert.Equal(t, 2, e.Tag)

	_, ok = b.Catalog.Lookup("fog")
	assert.False(t, ok)
}

func TestNewCatalog_RejectsBadTags(t *testing.T) {
	_, err := NewCatalog([]Entry{{Tag: 0}, {Tag: 0}})
	assert.Error(t, err)
	_, err = NewCatalog([]Entry{{Tag: 0}, {Tag: 2}})
	assert.Error(t, err)

	c, err := NewCatalog([]Entry{{Tag: 1, Book: domain.Book{Title: "b"}}, {Tag: 0, Book: domain.Book{Title: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Titles())
}

func TestTrain_Errors(t *testing.T) {
	trainer := NewTrainer(zerolog.Nop())

	_, err := trainer.Train(context.Background(), tfidf.NewEmbedder(), nil)
	var te *domain.TrainingError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)

	books := testBooks()
	books[1].Summary = "   "
	_, err = trainer.Train(context.Background(), tfidf.NewEmbedder(), books)
	require.True(t, errors.As(err, &te))
	var mf *domain.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, 1, mf.Index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.Train(ctx, tfidf.NewEmbedder(), testBooks())
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	b := trainTestBundle(t)
	path := filepath.Join(t.TempDir(), "models", "model.bundle")

	require.NoError(t, Save(b, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, b.Metadata.ID, loaded.Metadata.ID)
	assert.Equal(t, b.Metadata.DocumentCount, loaded.Metadata.DocumentCount)
	assert.True(t, b.Metadata.TrainedAt.Equal(loaded.Metadata.TrainedAt))
	assert.Equal(t, b.Catalog.Titles(), loaded.Catalog.Titles())
	assert.Equal(t, b.Vectors, loaded.Vectors)

	orig, err := b.Store()
	require.NoError(t, err)
	restored, err := loaded.Store()
	require.NoError(t, err)
	for _, doc := range b.TrainCorpus {
		v1, err := b.Embedder.Infer(doc.Words)
		require.NoError(t, err)
		v2, err := loaded.Embedder.Infer(doc.Words)
		require.NoError(t, err)
		assert.Equal(t, v1, v2)

		want, err := orig.Search(v1, 3)
		require.NoError(t, err)
		got, err := restored.Search(v2, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bundle"))
	var pe *domain.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "load", pe.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bundle")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a bundle"), 0o600))

	_, err := Load(path)
	var pe *domain.PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestLoad_VersionMismatch(t *testing.T) {
	b := trainTestBundle(t)
	env, err := encode(b)
	require.NoError(t, err)
	env.FormatVersion = FormatVersion + 1
	path := filepath.Join(t.TempDir(), "model.bundle")
	require.NoError(t, writeEnvelope(path, env))

	_, err = Load(path)
	var pe *domain.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, domain.ErrFormatVersion)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	b := trainTestBundle(t)
	env, err := encode(b)
	require.NoError(t, err)
	env.Checksum = "00"
	path := filepath.Join(t.TempDir(), "model.bundle")
	require.NoError(t, writeEnvelope(path, env))

	_, err = Load(path)
	assert.ErrorIs(t, err, domain.ErrChecksum)
}

func TestLoad_NotABundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.gob")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(f).Encode(envelope{Magic: "something-else", FormatVersion: FormatVersion}))
	require.NoError(t, f.Close())

	_, err = Load(path)
	var pe *domain.PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	b := trainTestBundle(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bundle")
	require.NoError(t, Save(b, path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	broken := *b
	broken.Embedder = tfidf.NewEmbedder()
	err = Save(&broken, path)
	var pe *domain.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "save", pe.Op)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveLoad_Word2VecRoundTrip(t *testing.T) {
	emb := word2vec.NewEmbedder(word2vec.Config{VectorSize: 8, Window: 3, Epochs: 5, MinCount: 1, Workers: 1})
	b, err := NewTrainer(zerolog.Nop()).Train(context.Background(), emb, testBooks())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "w2v.bundle")

	require.NoError(t, Save(b, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, word2vec.Name, loaded.Embedder.Name())
	assert.Equal(t, word2vec.Name, loaded.Metadata.Embedder)
	assert.Equal(t, 8, loaded.Embedder.Dimension())
	assert.Equal(t, b.Vectors, loaded.Vectors)

	orig, err := b.Store()
	require.NoError(t, err)
	restored, err := loaded.Store()
	require.NoError(t, err)
	for _, doc := range b.TrainCorpus {
		v1, err := b.Embedder.Infer(doc.Words)
		require.NoError(t, err)
		v2, err := loaded.Embedder.Infer(doc.Words)
		require.NoError(t, err)
		assert.Equal(t, v1, v2)

		want, err := orig.Search(v1, 3)
		require.NoError(t, err)
		got, err := restored.Search(v2, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
