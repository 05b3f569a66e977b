package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Recognized header aliases per canonical column, matched
// case-insensitively. Resolved once per file.
var columnAliases = map[string][]string{
	"book_id":        {"book_id", "id"},
	"title":          {"title"},
	"author":         {"author", "authors"},
	"genre":          {"genre", "category"},
	"average_rating": {"average_rating", "avg_rating", "rating"},
	"isbn":           {"isbn", "isbn13"},
	"language_code":  {"language_code", "language", "lang"},
	"rating_count":   {"rating_count", "ratings_count", "num_ratings"},
	"available":      {"available", "in_stock"},
}

// SkippedRow records a single row that failed to load.
type SkippedRow struct {
	Line   int
	Reason string
}

// LoadReport summarizes a CSV load: how many books loaded and which rows
// were skipped.
type LoadReport struct {
	Loaded  int
	Skipped []SkippedRow
}

// LoadBooksFromCSV reads books from the CSV file at path. A malformed row
// is skipped and reported, not fatal; only an unreadable file or an
// unusable header aborts the load.
func LoadBooksFromCSV(path string) ([]*Book, *LoadReport, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, storagef("open csv", err)
	}
	defer f.Close()
	return ReadBooks(f)
}

// ReadBooks reads books from tabular input. The first record must be a
// header row containing at least a title and an author column.
func ReadBooks(r io.Reader) ([]*Book, *LoadReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, Validationf("empty CSV input")
	}
	if err != nil {
		return nil, nil, Validationf("read CSV header").WithCause(err)
	}

	cols := resolveColumns(header)
	if _, ok := cols["title"]; !ok {
		return nil, nil, Validationf("CSV header has no title column")
	}
	if _, ok := cols["author"]; !ok {
		return nil, nil, Validationf("CSV header has no author column")
	}

	var (
		books  []*Book
		report = &LoadReport{}
		nextID = int64(1)
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.skip(line, fmt.Sprintf("malformed CSV record: %v", err))
			continue
		}

		b, reason := rowToBook(rec, cols, nextID)
		if b == nil {
			report.skip(line, reason)
			continue
		}
		if b.BookID >= nextID {
			nextID = b.BookID + 1
		}
		books = append(books, b)
		report.Loaded++
	}
	return books, report, nil
}

func (r *LoadReport) skip(line int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Line: line, Reason: reason})
	slog.Warn("skipping CSV row", "line", line, "reason", reason)
}

// resolveColumns maps canonical column names to record indexes.
func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for canonical, aliases := range columnAliases {
			if _, taken := cols[canonical]; taken {
				continue
			}
			for _, alias := range aliases {
				if h == alias {
					cols[canonical] = i
					break
				}
			}
		}
	}
	return cols
}

// rowToBook builds a Book from one record. Missing title or author is a
// hard row failure; every other malformed cell degrades to its default.
func rowToBook(rec []string, cols map[string]int, nextID int64) (*Book, string) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	title := field("title")
	author := field("author")
	if title == "" {
		return nil, "missing title"
	}
	if author == "" {
		return nil, "missing author"
	}

	b := &Book{
		BookID:       nextID,
		Title:        title,
		Author:       author,
		Genre:        field("genre"),
		ISBN:         field("isbn"),
		LanguageCode: field("language_code"),
		Available:    parseAvailable(field("available")),
	}
	if raw := field("book_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			b.BookID = id
		}
	}
	if raw := field("average_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			b.AverageRating = &v
		}
	}
	if raw := field("rating_count"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			b.RatingCount = &v
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err.Error()
	}
	return b, ""
}

// parseAvailable parses the enumerated availability tokens, defaulting to
// true on absence or an unrecognized token.
func parseAvailable(raw string) bool {
	switch strings.ToLower(raw) {
	case "false", "no", "0":
		return false
	case "true", "yes", "1":
		return true
	default:
		return true
	}
}
