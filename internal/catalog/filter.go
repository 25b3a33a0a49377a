package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortable whitelists the columns a listing may be ordered by
var sortable = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"price":      "price",
	"name":       "name",
	"stock":      "stock",
}

// Filter is the set of user-selected listing options. Nil pointers impose no
// constraint.
type Filter struct {
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	Search     string
	SortBy     string
	SortOrder  string
	OnSale     *bool
	Featured   *bool
	Limit      int
	Offset     int
}

// FilterError reports a query-string value that could not be parsed
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Param)
}

// ParseFilter reads listing options from a query string.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		CategoryID: strings.TrimSpace(first(q, "category", "category_id")),
		Search:     strings.TrimSpace(first(q, "search", "q")),
		SortBy:     strings.TrimSpace(q.Get("sort_by")),
		SortOrder:  strings.ToLower(strings.TrimSpace(q.Get("sort_order"))),
	}

	var err error
	if f.MinPrice, err = optFloat(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optFloat(q, "max_price"); err != nil {
		return f, err
	}
	if f.InStock, err = optBool(q, "in_stock"); err != nil {
		return f, err
	}
	if f.OnSale, err = optBool(q, "on_sale"); err != nil {
		return f, err
	}
	if f.Featured, err = optBool(q, "featured"); err != nil {
		return f, err
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n < 0 {
			return f, &FilterError{Param: "limit", Value: v}
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n < 0 {
			return f, &FilterError{Param: "offset", Value: v}
		}
		f.Offset = n
	}
	if f.SortBy != "" {
		if _, ok := sortable[f.SortBy]; !ok {
			return f, &FilterError{Param: "sort_by", Value: f.SortBy}
		}
	}
	if f.SortOrder != "" && f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		return f, &FilterError{Param: "sort_order", Value: f.SortOrder}
	}
	return f, nil
}

// SaleFilter lists on-sale products, cheapest first
func SaleFilter() Filter {
	onSale := true
	return Filter{OnSale: &onSale, SortBy: "price", SortOrder: SortAsc}
}

// FeaturedFilter lists featured products, newest first
func FeaturedFilter() Filter {
	featured := true
	return Filter{Featured: &featured, SortBy: "created_at", SortOrder: SortDesc}
}

// orderClause returns the ORDER BY for f; default is newest first.
func (f Filter) orderClause() string {
	col, ok := sortable[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if f.SortOrder == SortAsc {
		dir = "ASC"
	}
	return col + " " + dir + ", id ASC"
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func optFloat(q url.Values, key string) (*float64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, &FilterError{Param: key, Value: v}
	}
	return &n, nil
}

func optBool(q url.Values, key string) (*bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, &FilterError{Param: key, Value: v}
	}
	return &b, nil
}
