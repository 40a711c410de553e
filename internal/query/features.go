// Package query translates raw request query parameters into an immutable
// fetch descriptor. Each stage is a pure function returning a new descriptor;
// the conventional application order is filter, sort, project, paginate.
package query

import (
	"sort"
	"strconv"
	"strings"
)

// Op identifies a comparison operator in a filter condition.
type Op string

const (
	OpEq  Op = "eq"
	OpGT  Op = "gt"
	OpGTE Op = "gte"
	OpLT  Op = "lt"
	OpLTE Op = "lte"
)

// Default pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// DefaultSortField orders collections by newest first when no sort is given.
const DefaultSortField = "createdAt"

// Condition is a single predicate over one document field. Values are kept
// as raw strings; the storage layer decides whether to compare numerically.
type Condition struct {
	Field string
	Op    Op
	Value string
}

// Eq builds an equality condition.
func Eq(field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// SortKey orders results by one field, applied left to right as tie-breakers.
type SortKey struct {
	Field      string
	Descending bool
}

// Descriptor is the intermediate representation of a not-yet-executed fetch.
// It is a plain value; every transformation returns a new descriptor.
type Descriptor struct {
	Conditions []Condition
	SortKeys   []SortKey
	Fields     []string
	Skip       int
	Limit      int
}

var reservedKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var rangeOps = map[string]Op{
	"gte": OpGTE,
	"gt":  OpGT,
	"lte": OpLTE,
	"lt":  OpLT,
}

// Parse runs the full pipeline over raw query parameters.
func Parse(raw map[string]string) Descriptor {
	return Descriptor{}.Filter(raw).Sort(raw).Project(raw).Paginate(raw)
}

// Filter turns non-reserved parameters into predicates. A key of the form
// field[gte|gt|lte|lt] becomes a range condition; anything else becomes an
// equality on the literal key. Value validation belongs to the storage layer.
func (d Descriptor) Filter(raw map[string]string) Descriptor {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := append([]Condition(nil), d.Conditions...)
	for _, key := range keys {
		field, op := splitFilterKey(key)
		conditions = append(conditions, Condition{Field: field, Op: op, Value: raw[key]})
	}
	d.Conditions = conditions
	return d
}

// Where appends one condition, used for nested-route scope filters.
func (d Descriptor) Where(cond Condition) Descriptor {
	d.Conditions = append(append([]Condition(nil), d.Conditions...), cond)
	return d
}

// Sort parses a comma-separated sort parameter; a leading '-' means
// descending. Without the parameter, newest documents come first.
func (d Descriptor) Sort(raw map[string]string) Descriptor {
	spec := raw["sort"]
	if spec == "" {
		d.SortKeys = []SortKey{{Field: DefaultSortField, Descending: true}}
		return d
	}

	keys := make([]SortKey, 0, 4)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			keys = append(keys, SortKey{Field: part[1:], Descending: true})
		} else {
			keys = append(keys, SortKey{Field: part})
		}
	}
	if len(keys) == 0 {
		keys = []SortKey{{Field: DefaultSortField, Descending: true}}
	}
	d.SortKeys = keys
	return d
}

// Project parses the comma-separated field allow-list. An empty list means
// the full document minus whatever the collection hides by default.
func (d Descriptor) Project(raw map[string]string) Descriptor {
	spec := raw["fields"]
	if spec == "" {
		d.Fields = nil
		return d
	}

	fields := make([]string, 0, 8)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}
	d.Fields = fields
	return d
}

// Paginate coerces page and limit to positive integers, falling back to
// defaults instead of erroring on garbage input.
func (d Descriptor) Paginate(raw map[string]string) Descriptor {
	page := positiveInt(raw["page"], DefaultPage)
	limit := positiveInt(raw["limit"], DefaultLimit)
	d.Skip = (page - 1) * limit
	d.Limit = limit
	return d
}

func splitFilterKey(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	if op, ok := rangeOps[key[open+1:len(key)-1]]; ok {
		return key[:open], op
	}
	// unknown operator: equality on the literal key
	return key, OpEq
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
