package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/query"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// MemoryCollection keeps documents in process memory. It backs the service
// when no Postgres DSN is configured and doubles as the test seam.
type MemoryCollection[T Document] struct {
	mu      sync.RWMutex
	opts    Options
	factory func() T
	docs    map[string]map[string]any
	now     func() time.Time
}

// NewMemoryCollection builds an empty collection.
func NewMemoryCollection[T Document](opts Options, factory func() T) *MemoryCollection[T] {
	return &MemoryCollection[T]{
		opts:    opts,
		factory: factory,
		docs:    map[string]map[string]any{},
		now:     time.Now,
	}
}

// Find executes the descriptor: filter, soft-delete scope, sort, paginate,
// project, in that order. Matches are copied under the read lock; sorting and
// projection must never touch the live maps once the lock is released.
func (c *MemoryCollection[T]) Find(_ context.Context, d query.Descriptor) ([]T, error) {
	c.mu.RLock()
	matched := make([]map[string]any, 0, len(c.docs))
	for _, doc := range c.docs {
		if c.opts.SoftDelete && isSoftDeleted(doc) {
			continue
		}
		if matchesConditions(doc, d.Conditions) {
			copied := make(map[string]any, len(doc))
			for key, value := range doc {
				copied[key] = value
			}
			matched = append(matched, copied)
		}
	}
	c.mu.RUnlock()

	sortDocs(matched, d.SortKeys)

	if d.Skip >= len(matched) {
		matched = nil
	} else {
		matched = matched[d.Skip:]
	}
	if d.Limit > 0 && len(matched) > d.Limit {
		matched = matched[:d.Limit]
	}

	results := make([]T, 0, len(matched))
	for _, doc := range matched {
		typed, err := decodeDoc(projectDoc(doc, d.Fields, c.opts.HiddenFields, false), c.factory)
		if err != nil {
			return nil, err
		}
		results = append(results, typed)
	}
	return results, nil
}

// FindOne returns the first document matching every condition.
func (c *MemoryCollection[T]) FindOne(_ context.Context, conditions []query.Condition, opts ...FindOption) (T, error) {
	settings := applyFindOptions(opts)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, doc := range c.docs {
		if c.opts.SoftDelete && isSoftDeleted(doc) {
			continue
		}
		if matchesConditions(doc, conditions) {
			return decodeDoc(projectDoc(doc, nil, c.opts.HiddenFields, settings.includeHidden), c.factory)
		}
	}

	var zero T
	return zero, notFound(c.opts.Name)
}

// FindByID loads one document by id, post soft-delete filtering.
func (c *MemoryCollection[T]) FindByID(_ context.Context, id string, opts ...FindOption) (T, error) {
	settings := applyFindOptions(opts)

	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok || (c.opts.SoftDelete && isSoftDeleted(doc)) {
		var zero T
		return zero, notFound(c.opts.Name)
	}
	return decodeDoc(projectDoc(doc, nil, c.opts.HiddenFields, settings.includeHidden), c.factory)
}

// Create validates and stores a new document, assigning an id when absent.
func (c *MemoryCollection[T]) Create(_ context.Context, doc T) error {
	doc.Touch(c.now())
	if doc.DocID() == "" {
		doc.SetDocID(uuid.NewString())
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	encoded, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkUnique(encoded, doc.DocID()); err != nil {
		return err
	}
	c.docs[doc.DocID()] = encoded
	return nil
}

// UpdateByID merges the patch into the stored document and revalidates the
// whole document before persisting.
func (c *MemoryCollection[T]) UpdateByID(_ context.Context, id string, patch map[string]any) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.docs[id]
	if !ok || (c.opts.SoftDelete && isSoftDeleted(current)) {
		return zero, notFound(c.opts.Name)
	}

	merged := make(map[string]any, len(current)+len(patch))
	for key, value := range current {
		merged[key] = value
	}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}

	typed, err := decodeDoc(merged, c.factory)
	if err != nil {
		return zero, apperrors.NewValidationError("invalid patch", nil)
	}
	if err := typed.Validate(); err != nil {
		return zero, err
	}

	encoded, err := encodeDoc(typed)
	if err != nil {
		return zero, err
	}
	if err := c.checkUnique(encoded, id); err != nil {
		return zero, err
	}
	c.docs[id] = encoded

	return decodeDoc(projectDoc(encoded, nil, c.opts.HiddenFields, false), c.factory)
}

// DeleteByID removes a document, or flips its active flag for soft-deleting
// collections.
func (c *MemoryCollection[T]) DeleteByID(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok || (c.opts.SoftDelete && isSoftDeleted(doc)) {
		return notFound(c.opts.Name)
	}
	if c.opts.SoftDelete {
		doc["active"] = false
		return nil
	}
	delete(c.docs, id)
	return nil
}

func (c *MemoryCollection[T]) checkUnique(candidate map[string]any, selfID string) error {
	for _, field := range c.opts.UniqueFields {
		value, ok := candidate[field]
		if !ok {
			continue
		}
		for id, doc := range c.docs {
			if id == selfID {
				continue
			}
			if doc[field] == value {
				return apperrors.NewDuplicateValue(field)
			}
		}
	}
	return nil
}
