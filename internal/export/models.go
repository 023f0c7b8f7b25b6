package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "mrcreams/pkg/domain-errors"
)

// Format is an export serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format query parameter. An empty value defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("unsupported format %q: use json, csv, xml or xlsx", s))
	}
}

// Ext returns the file extension used in Content-Disposition.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type for HTTP responses.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXML:
		return "application/xml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Field is one column of an exported row. Order is preserved from the source
// query so every serialization lists fields identically.
type Field struct {
	Key   string
	Value any
}

// Record is one exported row. Nested objects are not recursively expanded;
// each field holds a scalar (or its string form).
type Record struct {
	Fields []Field
}

// MarshalJSON renders the record as an object with fields in source order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(normalizeValue(f.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Category is one group of records (profile, conflicts, ...) in the bundle.
type Category struct {
	Name    string
	Records []Record
}

// Bundle is the transient, per-request aggregate of all personal data held
// for one user. It is assembled in memory and never persisted.
type Bundle struct {
	UserID      uuid.UUID
	GeneratedAt time.Time
	Categories  []Category
}

// RecordCount is the total number of records across all categories.
func (b *Bundle) RecordCount() int {
	n := 0
	for _, c := range b.Categories {
		n += len(c.Records)
	}
	return n
}

// CategoryNames lists the bundle's categories in order.
func (b *Bundle) CategoryNames() []string {
	names := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		names = append(names, c.Name)
	}
	return names
}

// normalizeValue converts database scalars into JSON-friendly values.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// stringify renders a value for the flat CSV/XML/XLSX encodings.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
