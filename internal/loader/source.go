package loader

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/geomap/internal/database"
)

// Source yields a header row and string rows
type Source interface {
	Name() string
	Rows(ctx context.Context) (header []string, rows [][]string, err error)
}

// CSVSource reads a delimited file with a header row
type CSVSource struct {
	Path   string
	Reader io.Reader // Used instead of Path when set
	Comma  rune      // Defaults to ','
}

// Name implements Source
func (s CSVSource) Name() string {
	if s.Reader != nil && s.Path == "" {
		return "<reader>"
	}
	return s.Path
}

// Rows implements Source
func (s CSVSource) Rows(ctx context.Context) ([]string, [][]string, error) {
	r := s.Reader
	if r == nil {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	if s.Comma != 0 {
		cr.Comma = s.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: missing header row", s.Name())
		}
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", s.Name(), err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", s.Name(), err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads rows from a table or query of a SQLite database
type SQLiteSource struct {
	Path  string
	Table string // Read with SELECT * when Query is empty
	Query string
}

// Name implements Source
func (s SQLiteSource) Name() string {
	if s.Query != "" {
		return s.Path + " (query)"
	}
	return s.Path + "#" + s.Table
}

// Rows implements Source
func (s SQLiteSource) Rows(ctx context.Context) ([]string, [][]string, error) {
	query := s.Query
	if query == "" {
		if !identifierPattern.MatchString(s.Table) {
			return nil, nil, fmt.Errorf("invalid table name %q", s.Table)
		}
		query = fmt.Sprintf(`SELECT * FROM "%s"`, s.Table)
	}

	db, err := database.Open(ctx, database.Config{Path: s.Path, ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s: %w", s.Name(), err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out [][]string
	for rows.Next() {
		values := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]string, len(header))
		for i, v := range values {
			row[i] = cellString(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return header, out, nil
}

// cellString renders a scanned SQL value the way it would appear in a CSV cell
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case sql.RawBytes:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
