package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query is a PostgREST request under construction. Builders mutate and
// return the same Query; do not share one between goroutines.
type Query struct {
	c      *Client
	table  string
	method string
	params url.Values
	body   any
	single bool
	prefer []string
	token  string
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, method: http.MethodGet, params: url.Values{}}
}

// Select restricts the returned columns, e.g. "amount,status".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters rows where column equals v.
func (q *Query) Eq(column string, v any) *Query {
	q.params.Add(column, "eq."+fmt.Sprint(v))
	return q
}

// Gte filters rows where column >= v.
func (q *Query) Gte(column string, v any) *Query {
	q.params.Add(column, "gte."+fmt.Sprint(v))
	return q
}

// Lte filters rows where column <= v.
func (q *Query) Lte(column string, v any) *Query {
	q.params.Add(column, "lte."+fmt.Sprint(v))
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Range limits the result to rows from..to inclusive, zero-based.
func (q *Query) Range(from, to int) *Query {
	q.params.Set("offset", strconv.Itoa(from))
	q.params.Set("limit", strconv.Itoa(to-from+1))
	return q
}

// Single expects exactly one row; zero rows yields ErrNoRows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// WithToken sends the user's access token instead of the anon key.
func (q *Query) WithToken(token string) *Query {
	q.token = token
	return q
}

// Insert adds row (a struct, map or slice of them).
func (q *Query) Insert(row any) *Query {
	q.method = http.MethodPost
	q.body = row
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Upsert inserts row or merges it into the row that conflicts on onConflict.
func (q *Query) Upsert(row any, onConflict string) *Query {
	q.method = http.MethodPost
	q.body = row
	q.params.Set("on_conflict", onConflict)
	q.prefer = append(q.prefer, "return=representation", "resolution=merge-duplicates")
	return q
}

// Update patches every row matched by the filters.
func (q *Query) Update(patch any) *Query {
	q.method = http.MethodPatch
	q.body = patch
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Delete removes every row matched by the filters.
func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	q.prefer = append(q.prefer, "return=representation")
	return q
}

// Execute runs the query and decodes the response into dest, which must be
// a pointer to a slice, or to a single struct when Single was called.
// dest may be nil.
func (q *Query) Execute(ctx context.Context, dest any) error {
	headers := map[string]string{}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}
	if len(q.prefer) > 0 {
		headers["Prefer"] = strings.Join(q.prefer, ",")
	}
	return q.c.do(ctx, request{
		service: "rest",
		method:  q.method,
		path:    "/rest/v1/" + q.table,
		query:   q.params.Encode(),
		body:    q.body,
		token:   q.token,
		headers: headers,
	}, dest)
}
