package export

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mrcreams/migrations"
)

var (
	createTableRe = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)
	selectFromRe  = regexp.MustCompile(`(?s)SELECT\s+(.+?)\s+FROM\s+(\w+)`)
)

// schemaColumns parses the embedded migrations into table -> column set.
func schemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()

	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)

	tables := make(map[string]map[string]bool)
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		raw, err := migrations.FS.ReadFile(entry.Name())
		require.NoError(t, err)

		for _, m := range createTableRe.FindAllStringSubmatch(string(raw), -1) {
			table, body := m[1], m[2]
			columns := tables[table]
			if columns == nil {
				columns = make(map[string]bool)
				tables[table] = columns
			}
			for _, line := range strings.Split(body, "\n") {
				fields := strings.Fields(line)
				if len(fields) == 0 || strings.HasPrefix(fields[0], "--") {
					continue
				}
				// Column names are lower_snake; constraint clauses start
				// with an uppercase keyword.
				if name := fields[0]; name == strings.ToLower(name) {
					columns[name] = true
				}
			}
		}
	}
	require.NotEmpty(t, tables, "no CREATE TABLE statements found in migrations")
	return tables
}

// Every column an export query selects must exist in the embedded schema, so
// a renamed or dropped column fails here instead of surfacing at runtime as
// a failed export.
func TestCategoryQueriesMatchSchema(t *testing.T) {
	tables := schemaColumns(t)

	for name, query := range categoryQueries {
		m := selectFromRe.FindStringSubmatch(query)
		require.NotNil(t, m, "category %q query has no SELECT ... FROM clause", name)

		columns, ok := tables[m[2]]
		require.True(t, ok, "category %q reads table %q which no migration creates", name, m[2])

		for _, col := range strings.Split(m[1], ",") {
			col = strings.TrimSpace(col)
			require.True(t, columns[col],
				"category %q selects %s.%s which no migration creates", name, m[2], col)
		}
	}
}
