package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"mrcreams/internal/audit"
)

type ExportServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	auditStore *audit.InMemoryStore
	auditor    *audit.Publisher
	svc        *Service
	userID     uuid.UUID
}

func (s *ExportServiceSuite) SetupTest() {
	s.store = NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	s.auditor = audit.NewPublisher(s.auditStore)
	s.svc = NewService(s.store, s.auditor, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.userID = uuid.New()
}

func (s *ExportServiceSuite) seedTypicalUser() {
	s.store.Put(s.userID, CategoryProfile, []Record{{Fields: []Field{
		{Key: "id", Value: s.userID.String()},
		{Key: "email", Value: "ada@example.com"},
		{Key: "created_at", Value: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}}})
	s.store.Put(s.userID, CategoryEmotionCheckins, []Record{
		{Fields: []Field{{Key: "emotion", Value: "calm"}, {Key: "intensity", Value: 3}}},
		{Fields: []Field{{Key: "emotion", Value: "anxious"}, {Key: "intensity", Value: 7}}},
	})
	s.store.Put(s.userID, CategoryConsentRecords, []Record{
		{Fields: []Field{{Key: "consent_type", Value: "analytics"}, {Key: "granted", Value: true}}},
	})
}

func (s *ExportServiceSuite) TestBundleKeepsFixedCategoryOrder() {
	s.seedTypicalUser()

	bundle, err := s.svc.ExportUserData(context.Background(), s.userID, FormatJSON)
	s.Require().NoError(err)

	s.Equal(s.userID, bundle.UserID)
	s.Equal(categoryOrder, bundle.CategoryNames())
	s.Equal(4, bundle.RecordCount())
}

func (s *ExportServiceSuite) TestEmptyCategoriesStillPresent() {
	bundle, err := s.svc.ExportUserData(context.Background(), s.userID, FormatJSON)
	s.Require().NoError(err)

	s.Len(bundle.Categories, len(categoryOrder))
	s.Equal(0, bundle.RecordCount())
}

func (s *ExportServiceSuite) TestAnyCategoryErrorAbortsExport() {
	s.seedTypicalUser()
	s.store.FailCategory(CategoryConflicts, errors.New("relation does not exist"))

	bundle, err := s.svc.ExportUserData(context.Background(), s.userID, FormatJSON)
	s.Error(err)
	s.Nil(bundle)
}

func (s *ExportServiceSuite) TestNilUserRejected() {
	_, err := s.svc.ExportUserData(context.Background(), uuid.Nil, FormatJSON)
	s.Error(err)
}

func (s *ExportServiceSuite) TestExportWritesOneAuditEntry() {
	s.seedTypicalUser()

	_, err := s.svc.ExportUserData(context.Background(), s.userID, FormatCSV)
	s.Require().NoError(err)
	s.auditor.Close()

	entries := s.auditStore.All()
	s.Require().Len(entries, 1)
	entry := entries[0]
	s.Equal(audit.ActionDataExported, entry.Action)
	s.Equal(audit.ResourceExport, entry.ResourceType)
	s.Require().NotNil(entry.UserID)
	s.Equal(s.userID, *entry.UserID)
	s.Equal("csv", entry.Details["format"])
	s.Equal(4, entry.Details["record_count"])
}

func TestExportServiceSuite(t *testing.T) {
	suite.Run(t, new(ExportServiceSuite))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	for _, want := range []Format{FormatJSON, FormatCSV, FormatXML, FormatXLSX} {
		f, err := ParseFormat(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, f)
	}

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func testBundle(userID uuid.UUID) *Bundle {
	return &Bundle{
		UserID:      userID,
		GeneratedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Categories: []Category{
			{Name: CategoryProfile, Records: []Record{
				{Fields: []Field{
					{Key: "id", Value: userID.String()},
					{Key: "email", Value: "ada@example.com"},
				}},
			}},
			{Name: CategoryEmotionCheckins, Records: []Record{
				{Fields: []Field{{Key: "emotion", Value: "calm"}, {Key: "intensity", Value: 3}}},
				{Fields: []Field{{Key: "emotion", Value: "anxious"}, {Key: "intensity", Value: 7}}},
			}},
			{Name: CategoryConflicts},
		},
	}
}

// Every (category, field) pair in the JSON encoding must appear as exactly
// one CSV row, so the two encodings carry identical data.
func TestCSVMatchesJSONFieldSet(t *testing.T) {
	userID := uuid.New()
	bundle := testBundle(userID)

	var jsonBuf bytes.Buffer
	require.NoError(t, EncodeJSON(&jsonBuf, bundle))

	var decoded struct {
		UserID string                      `json:"userId"`
		Data   map[string][]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, userID.String(), decoded.UserID)

	type pair struct{ category, field string }
	jsonPairs := make(map[pair]int)
	for category, records := range decoded.Data {
		for _, record := range records {
			for field := range record {
				jsonPairs[pair{category, field}]++
			}
		}
	}

	var csvBuf bytes.Buffer
	require.NoError(t, EncodeCSV(&csvBuf, bundle))
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)

	require.Equal(t, []string{"Category", "Field", "Value"}, rows[0])
	csvPairs := make(map[pair]int)
	for _, row := range rows[1:] {
		csvPairs[pair{row[0], row[1]}]++
	}

	assert.Equal(t, jsonPairs, csvPairs)
}

func TestEncodeJSONEmitsEmptyArrays(t *testing.T) {
	bundle := testBundle(uuid.New())

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, bundle))

	var decoded struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.JSONEq(t, "[]", string(decoded.Data[CategoryConflicts]))
}

func TestEncodeXML(t *testing.T) {
	bundle := testBundle(uuid.New())

	var buf bytes.Buffer
	require.NoError(t, EncodeXML(&buf, bundle))

	out := buf.String()
	assert.Contains(t, out, `<userDataExport userId="`+bundle.UserID.String()+`"`)
	assert.Contains(t, out, `<category name="profile">`)
	assert.Contains(t, out, "<email>ada@example.com</email>")
	assert.Contains(t, out, "<intensity>7</intensity>")
}

// Every (category, field) pair in the JSON encoding must appear as exactly
// one field element in the XML encoding, mirroring the CSV check above.
func TestXMLMatchesJSONFieldSet(t *testing.T) {
	bundle := testBundle(uuid.New())

	var jsonBuf bytes.Buffer
	require.NoError(t, EncodeJSON(&jsonBuf, bundle))

	var decoded struct {
		Data map[string][]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))

	type pair struct{ category, field string }
	jsonPairs := make(map[pair]int)
	for category, records := range decoded.Data {
		for _, record := range records {
			for field := range record {
				jsonPairs[pair{category, field}]++
			}
		}
	}

	var xmlBuf bytes.Buffer
	require.NoError(t, EncodeXML(&xmlBuf, bundle))

	// Walk userDataExport > category > record > field; every depth-4 start
	// element is a field of the enclosing category.
	dec := xml.NewDecoder(&xmlBuf)
	xmlPairs := make(map[pair]int)
	var category string
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				require.Equal(t, "category", el.Name.Local)
				for _, attr := range el.Attr {
					if attr.Name.Local == "name" {
						category = attr.Value
					}
				}
			}
			if depth == 4 {
				xmlPairs[pair{category, el.Name.Local}]++
			}
		case xml.EndElement:
			depth--
		}
	}

	assert.Equal(t, jsonPairs, xmlPairs)
}

func TestEncodeXLSXOneSheetPerCategory(t *testing.T) {
	bundle := testBundle(uuid.New())

	var buf bytes.Buffer
	require.NoError(t, EncodeXLSX(&buf, bundle))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{CategoryProfile, CategoryEmotionCheckins, CategoryConflicts}, sheets)

	rows, err := f.GetRows(CategoryEmotionCheckins)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"emotion", "intensity"}, rows[0])
	assert.Equal(t, []string{"calm", "3"}, rows[1])
}
