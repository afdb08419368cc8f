// Package odata builds the OData system query options understood by the
// Service Layer ($filter, $select, $expand, $orderby, $top, $skip, $count).
package odata

import (
	"net/url"
	"strconv"
	"strings"
)

// Query holds OData system query options. Zero fields are omitted.
type Query struct {
	Filter  string
	Select  []string
	Expand  []string
	OrderBy []string
	Top     int
	Skip    int
	Count   bool
	// Apply is the $apply aggregation expression (Service Layer v2).
	Apply string
}

// Values renders q as URL query values.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if len(q.Expand) > 0 {
		v.Set("$expand", strings.Join(q.Expand, ","))
	}
	if len(q.OrderBy) > 0 {
		v.Set("$orderby", strings.Join(q.OrderBy, ","))
	}
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		v.Set("$skip", strconv.Itoa(q.Skip))
	}
	if q.Count {
		v.Set("$count", "true")
	}
	if q.Apply != "" {
		v.Set("$apply", q.Apply)
	}
	return v
}

// Encode renders q as a query string. Spaces are encoded as %20, which
// the Service Layer expects inside $filter expressions.
func (q Query) Encode() string {
	return strings.ReplaceAll(q.Values().Encode(), "+", "%20")
}

// IsZero reports whether no option is set.
func (q Query) IsZero() bool {
	return len(q.Values()) == 0
}

// Quote renders s as an OData string literal, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Eq returns the comparison "field eq 'value'".
func Eq(field, value string) string {
	return field + " eq " + Quote(value)
}

// And joins non-empty expressions with "and".
func And(exprs ...string) string {
	return join(" and ", exprs)
}

// Or joins non-empty expressions with "or", parenthesized.
func Or(exprs ...string) string {
	s := join(" or ", exprs)
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

func join(sep string, exprs []string) string {
	var parts []string
	for _, e := range exprs {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, sep)
}
