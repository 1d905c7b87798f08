// Package store reads the tabular dataset: a directory of CSV files, one
// per table, plus a schema metadata JSON document describing field types
// and key relationships.
package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrMetadataNotFound = errors.New("schema metadata not found")
)

const metadataFile = "schema_metadata.json"

// Row maps column name to a parsed scalar: int64, float64, string, or nil
// for an empty cell.
type Row map[string]any

type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Float returns the named column as a float64, converting integer cells.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Text returns the named column rendered as a plain string, or "" for a
// missing value.
func (r Row) Text(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

type FieldMeta struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type TableMeta struct {
	Description string               `json:"description"`
	Fields      map[string]FieldMeta `json:"fields"`
	PrimaryKey  string               `json:"primary_key"`
	ForeignKeys map[string]string    `json:"foreign_keys,omitempty"`
}

type Metadata struct {
	Description string               `json:"description,omitempty"`
	Tables      map[string]TableMeta `json:"tables"`
}

type Config struct {
	Dir string
}

// Store provides read-only access to the tabular data directory. It is
// stateless and safe for concurrent use.
type Store struct {
	dir string
}

func New(cfg Config) *Store {
	return &Store{dir: cfg.Dir}
}

// LoadTable parses <dir>/<name>.csv into an ordered row sequence.
func (s *Store) LoadTable(name string) (*Table, error) {
	path := filepath.Join(s.dir, name+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return nil, fmt.Errorf("failed to open table %s: %w", name, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table %s: %w", name, err)
	}
	if len(records) == 0 {
		return &Table{Name: name}, nil
	}

	columns := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = parseValue(record[i])
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}

	logger.Debug("table loaded", zap.String("table", name), zap.Int("rows", len(rows)))

	return &Table{Name: name, Columns: columns, Rows: rows}, nil
}

// LoadAllTables discovers every CSV file present in the data directory at
// call time; the table set is not a compiled-in list.
func (s *Store) LoadAllTables() (map[string]*Table, error) {
	names, err := s.tableNames()
	if err != nil {
		return nil, err
	}

	tables := make(map[string]*Table, len(names))
	for _, name := range names {
		table, err := s.LoadTable(name)
		if err != nil {
			return nil, err
		}
		tables[name] = table
	}
	return tables, nil
}

// LoadMetadata parses the schema metadata document.
func (s *Store) LoadMetadata() (*Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMetadataNotFound
		}
		return nil, fmt.Errorf("failed to read schema metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse schema metadata: %w", err)
	}
	return &meta, nil
}

// MetadataJSON returns the schema metadata re-serialized with 2-space
// indentation, as embedded in metadata-bearing prompts.
func (s *Store) MetadataJSON() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrMetadataNotFound
		}
		return "", fmt.Errorf("failed to read schema metadata: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("failed to parse schema metadata: %w", err)
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize schema metadata: %w", err)
	}
	return string(pretty), nil
}

// RawText returns the exact on-disk contents of one table file.
func (s *Store) RawText(name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name+".csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return "", fmt.Errorf("failed to read table %s: %w", name, err)
	}
	return string(raw), nil
}

// AllRawText concatenates every table's raw contents, each preceded by a
// "=== TABLE: <name> ===" header, tables in lexicographic order.
func (s *Store) AllRawText() (string, error) {
	names, err := s.tableNames()
	if err != nil {
		return "", err
	}

	sections := make([]string, 0, len(names))
	for _, name := range names {
		content, err := s.RawText(name)
		if err != nil {
			return "", err
		}
		sections = append(sections, fmt.Sprintf("=== TABLE: %s ===\n%s", name, content))
	}
	return strings.Join(sections, "\n\n"), nil
}

// AllStructuredText serializes every table as a JSON array of row objects,
// tables keyed by name in lexicographic order, pretty-printed.
func (s *Store) AllStructuredText() (string, error) {
	tables, err := s.LoadAllTables()
	if err != nil {
		return "", err
	}

	data := make(map[string][]Row, len(tables))
	for name, table := range tables {
		rows := table.Rows
		if rows == nil {
			rows = []Row{}
		}
		data[name] = rows
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize tables: %w", err)
	}
	return string(out), nil
}

func (s *Store) tableNames() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(names)
	return names, nil
}

func parseValue(cell string) any {
	if cell == "" {
		return nil
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
