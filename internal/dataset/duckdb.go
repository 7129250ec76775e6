package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"trueneutral/internal/domain"
)

// LoadTable reads a CSV, Parquet or JSON table with Title, Author, Genres and Summary
// columns through an in-memory DuckDB. Rows come back in file order.
func LoadTable(ctx context.Context, path string, skipIncomplete bool, logger zerolog.Logger) ([]domain.Book, error) {
	reader, err := tableReader(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf(`SELECT
		COALESCE(CAST(Title AS VARCHAR), ''),
		COALESCE(CAST(Author AS VARCHAR), ''),
		COALESCE(CAST(Genres AS VARCHAR), ''),
		COALESCE(CAST(Summary AS VARCHAR), '')
	FROM %s(%s)`, reader, quoteLiteral(path))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var books []domain.Book
	skipped := 0
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.Title, &b.Author, &b.Genres, &b.Summary); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		if skipIncomplete && strings.TrimSpace(b.Summary) == "" {
			skipped++
			continue
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if skipped > 0 {
		logger.Warn().Str("path", path).Int("skipped", skipped).Msg("skipped rows without summary")
	}
	logger.Info().Str("path", path).Int("books", len(books)).Msg("dataset loaded")
	return books, nil
}

func tableReader(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return "read_csv_auto", nil
	case ".parquet":
		return "read_parquet", nil
	case ".json":
		return "read_json_auto", nil
	default:
		return "", fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Load picks the loader by file extension: .jsonl for scraped records, anything
// else through LoadTable.
func Load(ctx context.Context, path string, skipIncomplete bool, logger zerolog.Logger) ([]domain.Book, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return LoadJSONL(path, skipIncomplete, logger)
	}
	return LoadTable(ctx, path, skipIncomplete, logger)
}
