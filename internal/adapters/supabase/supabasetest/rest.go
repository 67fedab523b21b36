package supabasetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type filter struct {
	column string
	op     string
	value  string
}

var reservedParams = map[string]bool{"select": true, "order": true, "limit": true, "offset": true, "on_conflict": true}

func parseFilters(q url.Values) []filter {
	var out []filter
	for col, vals := range q {
		if reservedParams[col] {
			continue
		}
		for _, v := range vals {
			op, val, ok := strings.Cut(v, ".")
			if !ok {
				continue
			}
			out = append(out, filter{column: col, op: op, value: val})
		}
	}
	return out
}

func (f filter) match(row map[string]any) bool {
	c := compare(row[f.column], f.value)
	switch f.op {
	case "eq":
		return c == 0
	case "neq":
		return c != 0
	case "gt":
		return c > 0
	case "gte":
		return c >= 0
	case "lt":
		return c < 0
	case "lte":
		return c <= 0
	}
	return false
}

func matchAll(row map[string]any, filters []filter) bool {
	for _, f := range filters {
		if !f.match(row) {
			return false
		}
	}
	return true
}

// compare orders a stored value against a query literal: numerically,
// then as timestamps, then as text.
func compare(v any, lit string) int {
	s := stringify(v)
	if a, err := strconv.ParseFloat(s, 64); err == nil {
		if b, err := strconv.ParseFloat(lit, 64); err == nil {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	}
	if a, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if b, err := time.Parse(time.RFC3339Nano, lit); err == nil {
			return a.Compare(b)
		}
	}
	return strings.Compare(s, lit)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func sortRows(rows []map[string]any, order string) {
	if order == "" {
		return
	}
	col, dir, _ := strings.Cut(order, ".")
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][col], stringify(rows[j][col]))
		if dir == "desc" {
			return c > 0
		}
		return c < 0
	})
}

func project(row map[string]any, sel string) map[string]any {
	if sel == "" || sel == "*" {
		return copyRow(row)
	}
	out := map[string]any{}
	for _, col := range strings.Split(sel, ",") {
		col = strings.TrimSpace(col)
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func wantsObject(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object")
}

// respondRows writes rows as an array, or as one object when the client
// asked for a singular response.
func respondRows(w http.ResponseWriter, r *http.Request, status int, rows []map[string]any) {
	if !wantsObject(r) {
		if rows == nil {
			rows = []map[string]any{}
		}
		writeJSON(w, status, rows)
		return
	}
	if len(rows) != 1 {
		writeJSON(w, http.StatusNotAcceptable, map[string]any{
			"code":    "PGRST116",
			"message": "JSON object requested, multiple (or no) rows returned",
			"details": fmt.Sprintf("The result contains %d rows", len(rows)),
			"hint":    nil,
		})
		return
	}
	writeJSON(w, status, rows[0])
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	q := r.URL.Query()
	filters := parseFilters(q)

	s.mu.Lock()
	var rows []map[string]any
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			rows = append(rows, copyRow(row))
		}
	}
	s.mu.Unlock()

	sortRows(rows, q.Get("order"))
	if off, err := strconv.Atoi(q.Get("offset")); err == nil {
		if off >= len(rows) {
			rows = nil
		} else {
			rows = rows[off:]
		}
	}
	if lim, err := strconv.Atoi(q.Get("limit")); err == nil && lim < len(rows) {
		rows = rows[:lim]
	}
	for i := range rows {
		rows[i] = project(rows[i], q.Get("select"))
	}
	respondRows(w, r, http.StatusOK, rows)
}

func decodeRows(r *http.Request) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '[' {
		var rows []map[string]any
		err := json.Unmarshal(raw, &rows)
		return rows, err
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	rows, err := decodeRows(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": "Invalid body"})
		return
	}
	merge := strings.Contains(r.Header.Get("Prefer"), "resolution=merge-duplicates")
	onConflict := r.URL.Query().Get("on_conflict")

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, row := range rows {
		if _, ok := row["id"]; !ok {
			row["id"] = uuid.NewString()
		}
		if merge && onConflict != "" {
			if i := s.indexOf(table, onConflict, row[onConflict]); i >= 0 {
				for k, v := range row {
					if k == "id" {
						continue
					}
					s.tables[table][i][k] = v
				}
				out = append(out, copyRow(s.tables[table][i]))
				continue
			}
		}
		for _, col := range append([]string{"id"}, s.unique[table]...) {
			if s.indexOf(table, col, row[col]) >= 0 {
				writeJSON(w, http.StatusConflict, map[string]any{
					"code":    "23505",
					"message": fmt.Sprintf("duplicate key value violates unique constraint \"%s_%s_key\"", table, col),
					"details": fmt.Sprintf("Key (%s)=(%v) already exists.", col, row[col]),
				})
				return
			}
		}
		s.tables[table] = append(s.tables[table], copyRow(row))
		out = append(out, row)
	}
	respondRows(w, r, http.StatusCreated, out)
}

// indexOf finds the row whose column equals v. Callers hold s.mu.
func (s *Server) indexOf(table, column string, v any) int {
	if v == nil {
		return -1
	}
	for i, row := range s.tables[table] {
		if stringify(row[column]) == stringify(v) {
			return i
		}
	}
	return -1
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	filters := parseFilters(r.URL.Query())
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": "Invalid body"})
		return
	}

	s.mu.Lock()
	var out []map[string]any
	for i, row := range s.tables[table] {
		if !matchAll(row, filters) {
			continue
		}
		for k, v := range patch {
			s.tables[table][i][k] = v
		}
		out = append(out, copyRow(s.tables[table][i]))
	}
	s.mu.Unlock()
	respondRows(w, r, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	filters := parseFilters(r.URL.Query())

	s.mu.Lock()
	var kept, out []map[string]any
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			out = append(out, row)
		} else {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	s.mu.Unlock()

	respondRows(w, r, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
