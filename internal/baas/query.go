package baas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query is a PostgREST select under construction. Build one with Client.From.
type Query struct {
	c      *Client
	table  string
	params url.Values
	order  []string
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

// Select limits the returned columns. The default is "*".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters col = v.
func (q *Query) Eq(col string, v any) *Query {
	q.params.Add(col, "eq."+FormatValue(v))
	return q
}

// Gte filters col >= v.
func (q *Query) Gte(col string, v any) *Query {
	q.params.Add(col, "gte."+FormatValue(v))
	return q
}

// Lte filters col <= v.
func (q *Query) Lte(col string, v any) *Query {
	q.params.Add(col, "lte."+FormatValue(v))
	return q
}

// Order appends a sort key.
func (q *Query) Order(col string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.order = append(q.order, col+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.params.Set("limit", strconv.Itoa(n))
	}
	return q
}

// Values returns the encoded query parameters. Used by tests and logging.
func (q *Query) Values() url.Values {
	v := url.Values{}
	for k, vals := range q.params {
		v[k] = append([]string(nil), vals...)
	}
	if v.Get("select") == "" {
		v.Set("select", "*")
	}
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	return v
}

// Do runs the select with the caller's access token and decodes the rows into out.
func (q *Query) Do(ctx context.Context, token string, out any) error {
	data, err := q.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + q.table,
		query:  q.Values(),
		token:  token,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("baas: parsing %s rows: %w", q.table, err)
	}
	return nil
}

// Insert creates a row and decodes the stored representation into out,
// which should be a pointer to a slice.
func (c *Client) Insert(ctx context.Context, token, table string, row any, out any) error {
	data, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + table,
		query:   url.Values{"select": {"*"}},
		token:   token,
		body:    row,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("baas: parsing inserted %s row: %w", table, err)
	}
	return nil
}

// Update patches the row with the given id and decodes the updated
// representation into out. It returns ErrNotFound when nothing matched.
func (c *Client) Update(ctx context.Context, token, table, id string, patch any, out any) error {
	data, err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/" + table,
		query:   url.Values{"id": {"eq." + id}, "select": {"*"}},
		token:   token,
		body:    patch,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return err
	}
	if err := requireRows(data); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("baas: parsing updated %s row: %w", table, err)
	}
	return nil
}

// Delete removes the row with the given id. It returns ErrNotFound when the
// backend confirmed no deletion, which is also what row-level security
// reports for rows owned by someone else.
func (c *Client) Delete(ctx context.Context, token, table, id string) error {
	data, err := c.do(ctx, request{
		method:  http.MethodDelete,
		path:    "/rest/v1/" + table,
		query:   url.Values{"id": {"eq." + id}, "select": {"id"}},
		token:   token,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return err
	}
	return requireRows(data)
}

func requireRows(data []byte) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("baas: parsing response rows: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// FormatValue renders a filter operand the way PostgREST expects it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
