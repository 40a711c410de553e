// Package store provides generic document collections over either Postgres
// JSONB tables or process memory. A collection executes a query.Descriptor
// exactly once per call and hands back typed documents.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spec-kit/marketplace-service/internal/query"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// Document is the minimal contract a collection needs from its entities.
type Document interface {
	DocID() string
	SetDocID(id string)
	Touch(now time.Time)
	Validate() error
}

// Options configures one collection.
type Options struct {
	// Name is the collection (and table) name.
	Name string
	// SoftDelete filters documents with active=false out of every read and
	// turns DeleteByID into an active-flag flip.
	SoftDelete bool
	// HiddenFields are stripped from results unless explicitly projected
	// or requested via WithHidden.
	HiddenFields []string
	// UniqueFields are enforced as unique across the collection.
	UniqueFields []string
}

// FindOption tweaks a single read.
type FindOption func(*findSettings)

type findSettings struct {
	includeHidden bool
}

// WithHidden includes default-hidden fields in the result, the equivalent of
// forcing a normally unselected column.
func WithHidden() FindOption {
	return func(s *findSettings) { s.includeHidden = true }
}

func applyFindOptions(opts []FindOption) findSettings {
	var s findSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Collection is the storage collaborator consumed by handlers and services.
type Collection[T Document] interface {
	Find(ctx context.Context, d query.Descriptor) ([]T, error)
	FindOne(ctx context.Context, conditions []query.Condition, opts ...FindOption) (T, error)
	FindByID(ctx context.Context, id string, opts ...FindOption) (T, error)
	Create(ctx context.Context, doc T) error
	UpdateByID(ctx context.Context, id string, patch map[string]any) (T, error)
	DeleteByID(ctx context.Context, id string) error
}

// encodeDoc round-trips a document through JSON into its canonical map form.
func encodeDoc[T Document](doc T) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeDoc materializes a canonical map back into a typed document.
func decodeDoc[T Document](m map[string]any, factory func() T) (T, error) {
	doc := factory()
	raw, err := json.Marshal(m)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// matchesConditions evaluates every predicate against the canonical map.
// Missing fields never match; range bounds with gte/lte are inclusive.
func matchesConditions(m map[string]any, conditions []query.Condition) bool {
	for _, cond := range conditions {
		value, ok := m[cond.Field]
		if !ok || value == nil {
			return false
		}
		if !compareValues(value, cond.Value, cond.Op) {
			return false
		}
	}
	return true
}

func compareValues(stored any, raw string, op query.Op) bool {
	if num, isNum := stored.(float64); isNum {
		if wanted, err := strconv.ParseFloat(raw, 64); err == nil {
			switch op {
			case query.OpEq:
				return num == wanted
			case query.OpGT:
				return num > wanted
			case query.OpGTE:
				return num >= wanted
			case query.OpLT:
				return num < wanted
			case query.OpLTE:
				return num <= wanted
			}
		}
		return false
	}

	// Strings, booleans and RFC3339 timestamps all compare as text; RFC3339
	// text order is chronological order.
	text := stringify(stored)
	switch op {
	case query.OpEq:
		return text == raw
	case query.OpGT:
		return text > raw
	case query.OpGTE:
		return text >= raw
	case query.OpLT:
		return text < raw
	case query.OpLTE:
		return text <= raw
	}
	return false
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// sortDocs orders canonical maps by the descriptor's sort keys, left to right.
func sortDocs(docs []map[string]any, keys []query.SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareForSort(docs[i][key.Field], docs[j][key.Field])
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareForSort(a, b any) int {
	aNum, aIsNum := a.(float64)
	bNum, bIsNum := b.(float64)
	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		}
		return 0
	}

	aText, bText := stringify(a), stringify(b)
	switch {
	case aText < bText:
		return -1
	case aText > bText:
		return 1
	}
	return 0
}

// projectDoc applies the field allow-list, or strips hidden fields when the
// list is empty. The id always survives; an explicit allow-list can pull in
// normally hidden fields.
func projectDoc(m map[string]any, fields, hidden []string, includeHidden bool) map[string]any {
	if len(fields) > 0 {
		out := make(map[string]any, len(fields)+1)
		if id, ok := m["id"]; ok {
			out["id"] = id
		}
		for _, field := range fields {
			if value, ok := m[field]; ok {
				out[field] = value
			}
		}
		return out
	}

	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = value
	}
	if !includeHidden {
		for _, field := range hidden {
			delete(out, field)
		}
	}
	return out
}

// isSoftDeleted reports whether the canonical map carries active=false.
func isSoftDeleted(m map[string]any) bool {
	active, ok := m["active"].(bool)
	return ok && !active
}

func notFound(name string) error {
	return apperrors.NewNotFound(name, nil)
}
