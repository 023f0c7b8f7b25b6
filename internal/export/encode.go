package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	dErrors "mrcreams/pkg/domain-errors"
)

// Encode writes the bundle to w in the given format.
func Encode(w io.Writer, bundle *Bundle, format Format) error {
	switch format {
	case FormatJSON:
		return EncodeJSON(w, bundle)
	case FormatCSV:
		return EncodeCSV(w, bundle)
	case FormatXML:
		return EncodeXML(w, bundle)
	case FormatXLSX:
		return EncodeXLSX(w, bundle)
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

// EncodeJSON writes the bundle as a single object keyed by category name.
// Field order inside each record follows the source query.
func EncodeJSON(w io.Writer, bundle *Bundle) error {
	// Categories are emitted through an ordered hand-rolled object rather
	// than a map so the output is byte-stable across runs.
	var err error
	write := func(s string) {
		if err == nil {
			_, err = io.WriteString(w, s)
		}
	}
	marshal := func(v any) {
		if err != nil {
			return
		}
		var b []byte
		b, err = json.Marshal(v)
		if err == nil {
			_, err = w.Write(b)
		}
	}

	write(`{"userId":`)
	marshal(bundle.UserID.String())
	write(`,"generatedAt":`)
	marshal(bundle.GeneratedAt.UTC().Format(time.RFC3339))
	write(`,"data":{`)
	for i, cat := range bundle.Categories {
		if i > 0 {
			write(",")
		}
		marshal(cat.Name)
		write(":")
		if cat.Records == nil {
			write("[]")
		} else {
			marshal(cat.Records)
		}
	}
	write("}}")
	return err
}

// EncodeCSV writes one row per field as Category,Field,Value triples, with a
// header row. Every (category, field) pair present in the JSON bundle appears
// exactly once here.
func EncodeCSV(w io.Writer, bundle *Bundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Field", "Value"}); err != nil {
		return err
	}
	for _, cat := range bundle.Categories {
		for _, rec := range cat.Records {
			for _, f := range rec.Fields {
				if err := cw.Write([]string{cat.Name, f.Key, stringify(f.Value)}); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlRecord struct {
	XMLName xml.Name `xml:"record"`
	Fields  []xmlField
}

type xmlCategory struct {
	XMLName xml.Name    `xml:"category"`
	Name    string      `xml:"name,attr"`
	Records []xmlRecord `xml:"record"`
}

type xmlExport struct {
	XMLName     xml.Name      `xml:"userDataExport"`
	UserID      string        `xml:"userId,attr"`
	GeneratedAt string        `xml:"generatedAt,attr"`
	Categories  []xmlCategory `xml:"category"`
}

// EncodeXML writes the bundle as nested category and record elements. Field
// keys become element names, so source column names must stay XML-safe.
func EncodeXML(w io.Writer, bundle *Bundle) error {
	doc := xmlExport{
		UserID:      bundle.UserID.String(),
		GeneratedAt: bundle.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for _, cat := range bundle.Categories {
		xc := xmlCategory{Name: cat.Name}
		for _, rec := range cat.Records {
			xr := xmlRecord{}
			for _, f := range rec.Fields {
				xr.Fields = append(xr.Fields, xmlField{
					XMLName: xml.Name{Local: f.Key},
					Value:   stringify(f.Value),
				})
			}
			xc.Records = append(xc.Records, xr)
		}
		doc.Categories = append(doc.Categories, xc)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
