package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat defaults to CSV when s is empty.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", validate.Errorf("format", "must be csv or json")
	}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds e.g. "orders-20260102-150405.csv".
func Filename(base string, f Format, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.UTC().Format("20060102-150405"), f)
}

// Row is implemented by every exported record.
type Row interface {
	ExportRow() []string
}

// Write streams items as a CSV sheet (header first) or a JSON array.
func Write[T Row](w io.Writer, f Format, header []string, items []T) error {
	if f == FormatJSON {
		if items == nil {
			items = []T{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encode json export: %w", err)
		}
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, it := range items {
		row := it.ExportRow()
		for i := range row {
			row[i] = sanitizeCell(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// sanitizeCell stops spreadsheet apps from evaluating user-supplied text as a
// formula.
func sanitizeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
