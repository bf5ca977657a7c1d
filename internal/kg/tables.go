package kg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"digiforge-analytics/internal/config"
	"digiforge-analytics/internal/data"
)

// CSV header names of a mapping table.
const (
	columnSource       = "Source entity"
	columnRelationship = "relationship"
	columnTarget       = "target entity"
)

var ErrMissingColumn = errors.New("kg table: missing column")

// Table maps a source entity to its triple.
type Table map[string]data.Triple

// ReadTable parses a mapping table. Rows with an empty source are skipped.
func ReadTable(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.TrimSpace(name)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{columnSource, columnRelationship, columnTarget} {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		cols = append(cols, i)
	}

	table := Table{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		cell := func(i int) string {
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		source := cell(cols[0])
		if source == "" {
			continue
		}
		table[source] = data.Triple{Relationship: cell(cols[1]), TargetEntity: cell(cols[2])}
	}
}

// LoadTable reads the mapping table at path.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

// Tables holds the per-category mapping tables. It is read-only after loading.
type Tables struct {
	byCategory map[Category]Table
}

func NewTables(maintenance, normal, cyberattack Table) *Tables {
	return &Tables{byCategory: map[Category]Table{
		CategoryMaintenance: maintenance,
		CategoryNormal:      normal,
		CategoryCyberattack: cyberattack,
	}}
}

// LoadTables loads the three tables named in cfg. A missing or unreadable file
// leaves that table empty and logs a warning.
func LoadTables(cfg config.KGConfig, logger *zap.Logger) *Tables {
	load := func(category Category, path string) Table {
		if path == "" {
			return Table{}
		}
		table, err := LoadTable(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("KG file not found", zap.String("category", string(category)), zap.String("path", path))
			return Table{}
		case err != nil:
			logger.Warn("KG file unreadable", zap.String("category", string(category)), zap.String("path", path), zap.Error(err))
			return Table{}
		}
		logger.Info("KG table loaded",
			zap.String("category", string(category)),
			zap.String("path", path),
			zap.Int("entries", len(table)))
		return table
	}
	return NewTables(
		load(CategoryMaintenance, cfg.MaintenancePath),
		load(CategoryNormal, cfg.NormalPath),
		load(CategoryCyberattack, cfg.CyberattackPath),
	)
}

// Resolve looks label up in its category's table, first by the full label and
// then by the name without the category prefix. It returns nil when the
// category has no table or the label is absent.
func (t *Tables) Resolve(label string) *data.Triple {
	category, name := CategoryOf(label)
	table, ok := t.byCategory[category]
	if !ok {
		return nil
	}
	if triple, ok := table[label]; ok {
		return &triple
	}
	if triple, ok := table[name]; ok {
		return &triple
	}
	return nil
}

// Len reports the number of entries per category.
func (t *Tables) Len() map[Category]int {
	out := make(map[Category]int, len(t.byCategory))
	for c, table := range t.byCategory {
		out[c] = len(table)
	}
	return out
}
