package bundle

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"trueneutral/internal/domain"
	"trueneutral/internal/embedding"
)

const (
	magic = "trueneutral-bundle"

	// FormatVersion is bumped whenever bundleState changes shape.
	FormatVersion = 1
)

// envelope is the on-disk format. Payload is gzip(gob(bundleState)); Checksum is the
// SHA-256 of the uncompressed gob bytes.
type envelope struct {
	Magic         string
	FormatVersion int
	SavedAt       time.Time
	Checksum      string
	Payload       []byte
}

type bundleState struct {
	Metadata      Metadata
	EmbedderName  string
	EmbedderState []byte
	Entries       []Entry
	TrainCorpus   []domain.TaggedDocument
	TestCorpus    [][]string
	Vectors       [][]float64
}

// Save writes b to path as a single file. The file is written next to path and renamed
// into place, so an earlier artifact at path survives any failure.
func Save(b *Bundle, path string) error {
	if err := b.Validate(); err != nil {
		return &domain.PersistenceError{Op: "save", Path: path, Err: err}
	}
	env, err := encode(b)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := writeEnvelope(path, env); err != nil {
		return &domain.PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load reads a bundle written by Save and restores its embedder.
func Load(path string) (*Bundle, error) {
	b, err := load(path)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Path: path, Err: err}
	}
	return b, nil
}

func encode(b *Bundle) (*envelope, error) {
	embState, err := b.Embedder.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode embedder: %w", err)
	}
	st := bundleState{
		Metadata:      b.Metadata,
		EmbedderName:  b.Embedder.Name(),
		EmbedderState: embState,
		Entries:       b.Catalog.Entries(),
		TrainCorpus:   b.TrainCorpus,
		TestCorpus:    b.TestCorpus,
		Vectors:       b.Vectors,
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(st); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	return &envelope{
		Magic:         magic,
		FormatVersion: FormatVersion,
		SavedAt:       time.Now().UTC(),
		Checksum:      hex.EncodeToString(hash[:]),
		Payload:       compressed.Bytes(),
	}, nil
}

func writeEnvelope(path string, env *envelope) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := gob.NewEncoder(tmp).Encode(env); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace bundle: %w", err)
	}
	return nil
}

func load(path string) (*Bundle, error) {
	f, err := os.Open(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, fmt.Errorf("read bundle file: %w", err)
	}
	if env.Magic != magic {
		return nil, errors.New("not a bundle file")
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: file has %d, want %d", domain.ErrFormatVersion, env.FormatVersion, FormatVersion)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.Payload))
	if err != nil {
		return nil, fmt.Errorf("decompress bundle: %w", err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if sum := hex.EncodeToString(hash[:]); sum != env.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", domain.ErrChecksum, env.Checksum, sum)
	}

	var st bundleState
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	emb, err := embedding.Restore(st.EmbedderName, st.EmbedderState)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(st.Entries)
	if err != nil {
		return nil, err
	}
	b := &Bundle{
		Embedder:    emb,
		Catalog:     catalog,
		TrainCorpus: st.TrainCorpus,
		TestCorpus:  st.TestCorpus,
		Vectors:     st.Vectors,
		Metadata:    st.Metadata,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
