package panels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/jsonutil"
)

func doc(t *testing.T, raw string) api.Document {
	t.Helper()
	var d api.Document
	require.NoError(t, jsonutil.Unmarshal([]byte(raw), &d))
	return d
}

func TestRows_Extraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
		key  string
	}{
		{"results", `{"results":[{"a":1},{"a":2}],"entries":[{"x":1}]}`, 2, "a"},
		{"entries", `{"entries":[{"level":"ERROR"}],"count":1}`, 1, "level"},
		{"scans", `{"scans":[{"id":"s1"},{"id":"s2"},{"id":"s3"}]}`, 3, "id"},
		{"reports", `{"reports":[{"title":"Q1"}]}`, 1, "title"},
		{"hosts", `{"scan_id":"x","hosts":[{"ip":"10.0.0.1"}]}`, 1, "ip"},
		{"single result", `{"result":{"domain":"example.com"}}`, 1, "domain"},
		{"bare document", `{"status":"ok","version":"1.0"}`, 1, "version"},
		{"scalar list", `{"results":["a.example.com","b.example.com"]}`, 2, "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Rows(doc(t, tt.raw))
			require.Len(t, rows, tt.want)
			assert.Contains(t, rows[0], tt.key)
		})
	}

	assert.Nil(t, Rows(nil))
}

func TestColumns_LeadKeysFirst(t *testing.T) {
	rows := []Row{
		{"zeta": 1, "severity": "high", "port": 22},
		{"alpha": true, "host": "h"},
	}
	assert.Equal(t, []string{"host", "port", "severity", "alpha", "zeta"}, Columns(rows))
}

func TestSort_SeverityAware(t *testing.T) {
	tbl := NewTable(doc(t, `{"results":[
		{"cve_id":"A","severity":"LOW"},
		{"cve_id":"B","severity":"critical"},
		{"cve_id":"C"},
		{"cve_id":"D","severity":"Medium"},
		{"cve_id":"E","severity":"high"}
	]}`))

	tbl.Sort("severity", true)
	assert.Equal(t, []string{"B", "E", "D", "A", "C"}, column(tbl.Rows, "cve_id"))

	tbl.Sort("severity", false)
	assert.Equal(t, []string{"A", "D", "E", "B", "C"}, column(tbl.Rows, "cve_id"), "missing stays last ascending too")
}

func TestSort_NumericAndText(t *testing.T) {
	tbl := NewTable(doc(t, `{"results":[
		{"port":443,"service":"https"},
		{"port":22,"service":"SSH"},
		{"port":8080,"service":"http-alt"},
		{"port":80,"service":"http"}
	]}`))

	tbl.Sort("port", false)
	assert.Equal(t, []string{"22", "80", "443", "8080"}, column(tbl.Rows, "port"))

	tbl.Sort("service", false)
	assert.Equal(t, []string{"http", "http-alt", "https", "SSH"}, column(tbl.Rows, "service"))
}

func TestSort_Stable(t *testing.T) {
	tbl := &Table{Rows: []Row{
		{"sev": "high", "n": "1"},
		{"sev": "low", "n": "2"},
		{"sev": "high", "n": "3"},
		{"sev": "high", "n": "4"},
	}}
	tbl.Sort("sev", true)
	assert.Equal(t, []string{"1", "3", "4", "2"}, column(tbl.Rows, "n"))
}

func TestPage(t *testing.T) {
	tbl := &Table{}
	for i := range 45 {
		tbl.Rows = append(tbl.Rows, Row{"i": float64(i)})
	}

	rows, info := tbl.Page(3, 20)
	assert.Len(t, rows, 5)
	assert.Equal(t, PageInfo{Page: 3, PerPage: 20, Pages: 3, Total: 45, Start: 41, End: 45}, info)
	assert.Equal(t, "41-45 of 45 (page 3/3)", info.String())

	_, info = tbl.Page(99, 20)
	assert.Equal(t, 3, info.Page, "page clamps to last")

	rows, info = tbl.Page(0, 0)
	assert.Len(t, rows, DefaultPerPage)
	assert.Equal(t, 1, info.Page)

	empty := &Table{}
	rows, info = empty.Page(1, 10)
	assert.Empty(t, rows)
	assert.Equal(t, "no results", info.String())
	assert.Equal(t, 1, info.Pages)
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "-", FormatCell(nil))
	assert.Equal(t, "443", FormatCell(float64(443)))
	assert.Equal(t, "7.5", FormatCell(7.5))
	assert.Equal(t, "yes", FormatCell(true))
	assert.Equal(t, "ns1, ns2", FormatCell([]any{"ns1", "ns2"}))
	assert.Equal(t, `{"k":"v"}`, FormatCell(map[string]any{"k": "v"}))
}

func TestNextSortColumn(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "b"}}
	assert.Equal(t, "a", tbl.NextSortColumn())
	tbl.SortBy = "a"
	assert.Equal(t, "b", tbl.NextSortColumn())
	tbl.SortBy = "b"
	assert.Equal(t, "a", tbl.NextSortColumn())
}

func column(rows []Row, key string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = FormatCell(r[key])
	}
	return out
}
