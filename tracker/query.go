package tracker

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*Size from overflowing an int
	MaxPage = math.MaxInt / MaxPageSize
)

// ListQuery narrows a list view. Filters holds exact-match field filters keyed by their
// query parameter name.
type ListQuery struct {
	Keyword string
	Filters map[string]string
	Page    int
	Size    int
}

// Normalize clamps the page and size into range
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	return q
}

func (q ListQuery) Filter(key string) string {
	return q.Filters[key]
}

// Values encodes the query as URL parameters; empty filters are left out
func (q ListQuery) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if q.Filters[k] != "" {
			v.Set(k, q.Filters[k])
		}
	}

	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	return v
}

// ParseListQuery reads a ListQuery from URL parameters, keeping only the named filters
func ParseListQuery(v url.Values, filterKeys ...string) ListQuery {
	q := ListQuery{
		Keyword: v.Get("keyword"),
		Filters: map[string]string{},
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Size, _ = strconv.Atoi(v.Get("size"))
	for _, k := range filterKeys {
		if val := strings.TrimSpace(v.Get(k)); val != "" {
			q.Filters[k] = val
		}
	}
	return q.Normalize()
}

// Offset is the index of the first item on the query's page
func (q ListQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Size
}

// Paginate cuts the requested page out of an already filtered list
func Paginate[T any](items []T, q ListQuery) Page[T] {
	q = q.Normalize()
	page := Page[T]{Items: []T{}, Total: len(items), Page: q.Page, Size: q.Size}

	start := q.Offset()
	if start >= len(items) {
		return page
	}
	end := min(start+q.Size, len(items))
	page.Items = items[start:end]
	return page
}

// MatchKeyword reports whether any of fields contains keyword, ignoring case
func MatchKeyword(keyword string, fields ...string) bool {
	if keyword == "" {
		return true
	}
	keyword = strings.ToLower(keyword)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}
