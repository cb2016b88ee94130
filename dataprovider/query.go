// ABOUTME: Query-string construction for list endpoints.
// ABOUTME: Builds pagination, ordering, and filter parts and encodes them.

package dataprovider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Query is a set of query-string parameters before encoding.
type Query map[string]any

// PaginationQuery maps a page request onto page and page_size.
// Zero values are left out so the backend applies its defaults.
func PaginationQuery(p Pagination) Query {
	q := Query{}
	if p.Page > 0 {
		q["page"] = p.Page
	}
	if p.PerPage > 0 {
		q["page_size"] = p.PerPage
	}
	return q
}

// FilterQuery passes every filter key through except "q", which the
// backend calls "search".
func FilterQuery(f Filter) Query {
	q := Query{}
	for key, value := range f {
		if key == "q" {
			continue
		}
		q[key] = value
	}
	if search, ok := f["q"]; ok {
		q["search"] = search
	}
	return q
}

// OrderingQuery renders a sort as ordering=field or ordering=-field.
// Anything other than ASC sorts descending.
func OrderingQuery(s Sort) Query {
	if s.Field == "" {
		return Query{}
	}
	prefix := "-"
	if s.Order == SortAsc {
		prefix = ""
	}
	return Query{"ordering": prefix + s.Field}
}

// mergeQueries combines parts left to right; later keys win.
func mergeQueries(parts ...Query) Query {
	out := Query{}
	for _, part := range parts {
		for key, value := range part {
			out[key] = value
		}
	}
	return out
}

// Encode renders the query with keys sorted. Nil values are dropped,
// slices become repeated keys, and maps are sent as JSON.
func (q Query) Encode() string {
	values := url.Values{}
	for key, value := range q {
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			for _, item := range v {
				if item != nil {
					values.Add(key, formatValue(item))
				}
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		case []int:
			for _, item := range v {
				values.Add(key, strconv.Itoa(item))
			}
		default:
			values.Add(key, formatValue(v))
		}
	}
	return values.Encode()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case map[string]any, Filter:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	default:
		return fmt.Sprint(val)
	}
}
