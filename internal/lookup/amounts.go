// Package lookup loads the auxiliary spreadsheet that supplies the expected
// weekly payment per identifier.
package lookup

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hramos/chatledger/internal/model"
	"github.com/hramos/chatledger/internal/normalize"
)

// Fixed column positions in the exported sheet: A holds the individual code,
// C the group code, AC the weekly amount.
const (
	colIndividual = 0  // A
	colGroup      = 2  // C
	colAmount     = 28 // AC
	minColumns    = colAmount + 1
)

// Table holds the two identifier→amount maps. It is rebuilt wholesale on
// every load and never persisted.
type Table struct {
	group      map[string]string
	individual map[string]string
}

// Load parses the lookup file. It fails when the file is unreadable or any
// row is narrower than column AC; no partial table is returned.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open amount lookup file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := &Table{
		group:      make(map[string]string),
		individual: make(map[string]string),
	}

	lineNum := 0
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(row) < minColumns {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", lineNum, minColumns, len(row))
		}

		amount := strings.TrimSpace(row[colAmount])
		if amount == "" {
			continue
		}

		if code := strings.TrimSpace(row[colIndividual]); code != "" && isNumeric(code) {
			padded := normalize.ZeroPad(code, 6)
			if _, seen := table.individual[padded]; !seen {
				table.individual[padded] = amount
			}
		}
		if code := strings.TrimSpace(row[colGroup]); code != "" && isNumeric(code) {
			padded := normalize.ZeroPad(code, 6)
			if _, seen := table.group[padded]; !seen {
				table.group[padded] = amount
			}
		}
	}

	slog.Debug("Loaded amount lookup table",
		"groups", len(table.group),
		"individuals", len(table.individual))

	return table, nil
}

// Amount returns the expected weekly payment for an identifier, or the
// "not found" sentinel.
func (t *Table) Amount(identifier string, kind model.Kind) string {
	if t == nil {
		return model.WeeklyNotFound
	}

	var amount string
	var ok bool
	if kind == model.KindGroup {
		amount, ok = t.group[identifier]
	} else {
		amount, ok = t.individual[identifier]
	}
	if !ok {
		return model.WeeklyNotFound
	}
	return amount
}

func isNumeric(s string) bool {
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
