package panels

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/jsonutil"
)

// Row is one result record.
type Row map[string]any

// rowKeys are the document fields that may hold the result list, in the
// order they are tried.
var rowKeys = []string{"results", "entries", "scans", "reports", "hosts"}

// Rows extracts the records of a backend response. Lists are taken from the
// first of results, entries, scans, reports or hosts; a single "result"
// object becomes one row; otherwise the document itself is the row.
func Rows(doc api.Document) []Row {
	if len(doc) == 0 {
		return nil
	}
	for _, key := range rowKeys {
		if list, ok := doc[key].([]any); ok {
			return listRows(list)
		}
	}
	if obj, ok := doc["result"].(map[string]any); ok {
		return []Row{Row(obj)}
	}
	return []Row{Row(doc)}
}

func listRows(list []any) []Row {
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, Row(obj))
			continue
		}
		rows = append(rows, Row{"value": item})
	}
	return rows
}

// leadColumns are shown first when present, in this order.
var leadColumns = []string{
	"id", "scan_id", "name", "title", "target", "host", "ip", "hostname",
	"subdomain", "port", "state", "service", "header", "cve_id", "ioc_type",
	"ioc_value", "value", "event_type", "severity", "status",
}

// Columns lists every key that appears in rows: well-known keys first, the
// rest alphabetically.
func Columns(rows []Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, k := range leadColumns {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// Table is a client-side view over result rows.
type Table struct {
	Columns []string
	Rows    []Row
	SortBy  string
	Desc    bool
}

// NewTable builds a table from a backend response.
func NewTable(doc api.Document) *Table {
	rows := Rows(doc)
	return &Table{Columns: Columns(rows), Rows: rows}
}

// Sort orders rows by column, stably. Rows missing the column always sort
// last, whatever the direction.
func (t *Table) Sort(column string, desc bool) {
	t.SortBy, t.Desc = column, desc
	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		av, aok := present(a, column)
		bv, bok := present(b, column)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(av, bv)
		if desc {
			return -c
		}
		return c
	})
}

// NextSortColumn cycles through the columns for the sort key binding.
func (t *Table) NextSortColumn() string {
	if len(t.Columns) == 0 {
		return ""
	}
	i := slices.Index(t.Columns, t.SortBy)
	return t.Columns[(i+1)%len(t.Columns)]
}

func present(r Row, col string) (any, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

var severityRank = map[string]int{
	"none":          0,
	"info":          1,
	"informational": 1,
	"low":           2,
	"medium":        3,
	"moderate":      3,
	"high":          4,
	"critical":      5,
}

func severity(v any) (int, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	rank, ok := severityRank[strings.ToLower(strings.TrimSpace(s))]
	return rank, ok
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// compareValues orders two present values: severities by rank, numbers
// numerically, everything else as case-insensitive text.
func compareValues(a, b any) int {
	if ra, ok := severity(a); ok {
		if rb, ok := severity(b); ok {
			return cmp.Compare(ra, rb)
		}
	}
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return cmp.Compare(na, nb)
		}
	}
	return cmp.Compare(strings.ToLower(FormatCell(a)), strings.ToLower(FormatCell(b)))
}

// PageInfo describes one page of a table.
type PageInfo struct {
	Page    int
	PerPage int
	Pages   int
	Total   int
	// Start and End are 1-based row positions; both are 0 for an empty table.
	Start int
	End   int
}

func (p PageInfo) String() string {
	if p.Total == 0 {
		return "no results"
	}
	return fmt.Sprintf("%d-%d of %d (page %d/%d)", p.Start, p.End, p.Total, p.Page, p.Pages)
}

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 20

// Page returns the rows of page (1-based, clamped into range).
func (t *Table) Page(page, perPage int) ([]Row, PageInfo) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(t.Rows)
	pages := max(1, int(math.Ceil(float64(total)/float64(perPage))))
	page = min(max(page, 1), pages)

	info := PageInfo{Page: page, PerPage: perPage, Pages: pages, Total: total}
	if total == 0 {
		return nil, info
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	info.Start, info.End = start+1, end
	return t.Rows[start:end], info
}

// FormatCell renders a JSON value for a table cell.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = FormatCell(item)
		}
		return strings.Join(parts, ", ")
	default:
		raw, err := jsonutil.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}
