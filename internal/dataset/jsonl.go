// Package dataset reads and writes book collections on disk.
package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"trueneutral/internal/domain"
)

// RawRecord is one scraped book page, one per line in a JSON Lines file.
type RawRecord struct {
	ID          FlexString `json:"id"`
	Title       string     `json:"title"`
	Authors     StringList `json:"authors"`
	Genres      StringList `json:"genres"`
	Description string     `json:"description"`
	URL         string     `json:"url,omitempty"`
}

// Book converts the record to the metadata the model trains on.
func (r RawRecord) Book() domain.Book {
	return domain.Book{
		Title:   strings.TrimSpace(r.Title),
		Author:  r.Authors.String(),
		Genres:  r.Genres.String(),
		Summary: r.Description,
	}
}

// Complete reports whether the record has a description to train on.
func (r RawRecord) Complete() bool {
	return strings.TrimSpace(r.Description) != ""
}

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = list
	return nil
}

// String joins the entries with ", ".
func (l StringList) String() string {
	parts := make([]string, 0, len(l))
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// FlexString decodes from a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("id must be a string or a number, got %s", data)
		}
		*f = FlexString(data)
	}
	return nil
}

// ReadJSONL decodes one record per non-blank line.
func ReadJSONL(r io.Reader) ([]RawRecord, error) {
	var records []RawRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec RawRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read json lines: %w", err)
	}
	return records, nil
}

// WriteJSONL encodes records one per line.
func WriteJSONL(w io.Writer, records []RawRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes records to path, replacing any existing file.
func WriteJSONLFile(path string, records []RawRecord) error {
	f, err := os.Create(path) //nolint:gosec // operator supplied output path
	if err != nil {
		return err
	}
	if err := WriteJSONL(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ToBooks converts records in order. With skipIncomplete, records without a description
// are dropped and counted in skipped; otherwise they are kept and training will reject them.
func ToBooks(records []RawRecord, skipIncomplete bool) (books []domain.Book, skipped int) {
	books = make([]domain.Book, 0, len(records))
	for _, rec := range records {
		if skipIncomplete && !rec.Complete() {
			skipped++
			continue
		}
		books = append(books, rec.Book())
	}
	return books, skipped
}

// LoadJSONL reads a scraped JSON Lines file into books.
func LoadJSONL(path string, skipIncomplete bool, logger zerolog.Logger) ([]domain.Book, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied input path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	books, skipped := ToBooks(records, skipIncomplete)
	if skipped > 0 {
		logger.Warn().Str("path", path).Int("skipped", skipped).Msg("skipped records without description")
	}
	logger.Info().Str("path", path).Int("books", len(books)).Msg("dataset loaded")
	return books, nil
}
