package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
	"github.com/okian/facegate/pkg/logger"
	"github.com/okian/facegate/pkg/metrics"
)

// Snapshot is an immutable view of the identity set. Readers must not
// modify the identities it hands out.
type Snapshot struct {
	identities []model.EnrolledIdentity
	byKey      map[string]int
	createdAt  time.Time
}

func newSnapshot(ids []model.EnrolledIdentity) *Snapshot {
	s := &Snapshot{
		identities: ids,
		byKey:      make(map[string]int, len(ids)),
		createdAt:  time.Now(),
	}
	for i, id := range ids {
		s.byKey[naming.Key(id.Name)] = i
	}
	return s
}

// Identities returns the enrolled identities in enrollment order.
func (s *Snapshot) Identities() []model.EnrolledIdentity { return s.identities }

// Len returns the number of identities.
func (s *Snapshot) Len() int { return len(s.identities) }

// CreatedAt returns when the snapshot was published.
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// Get looks an identity up by normalized name.
func (s *Snapshot) Get(name string) (model.EnrolledIdentity, bool) {
	i, ok := s.byKey[naming.Key(name)]
	if !ok {
		return model.EnrolledIdentity{}, false
	}
	return s.identities[i], true
}

// Catalog serves the identity set to the pipeline. Reads take the current
// snapshot without locking; writers are serialized, persist through the
// store first and then publish a new snapshot.
type Catalog struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]

	store  Store
	policy DuplicatePolicy
	logger logger.Logger
}

// NewCatalog creates an empty catalog over store. Call Load to read it.
func NewCatalog(store Store, opts ...Option) *Catalog {
	c := &Catalog{
		store:  store,
		policy: DuplicateReject,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish(nil)
	return c
}

// Load reads the store once. When the store cannot be read the catalog
// serves an empty set and the returned error wraps model.ErrStoreCorrupt.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.store.Load(ctx)
	if err != nil {
		metrics.RecordStoreError("load")
		c.logger.Warn(ctx, "identity store unreadable, serving empty set", logger.Error(err))
		c.publish(nil)
		if errors.Is(err, model.ErrStoreCorrupt) {
			return err
		}
		return fmt.Errorf("%w: %w", model.ErrStoreCorrupt, err)
	}
	c.publish(dedupeByName(ids))
	c.logger.Info(ctx, "identities loaded", logger.Int("count", len(ids)))
	return nil
}

// Snapshot returns the current immutable view.
func (c *Catalog) Snapshot() *Snapshot { return c.snapshot.Load() }

// Identities returns the current identity set.
func (c *Catalog) Identities() []model.EnrolledIdentity { return c.Snapshot().Identities() }

// Len returns the number of enrolled identities.
func (c *Catalog) Len() int { return c.Snapshot().Len() }

// Contains reports whether name is enrolled, after normalization.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.Snapshot().Get(name)
	return ok
}

// Get returns the identity enrolled under name.
func (c *Catalog) Get(name string) (model.EnrolledIdentity, bool) {
	return c.Snapshot().Get(name)
}

// Policy returns the duplicate policy.
func (c *Catalog) Policy() DuplicatePolicy { return c.policy }

// Add enrolls id. A name already present is rejected with
// model.ErrDuplicateIdentity unless the policy is replace.
func (c *Catalog) Add(ctx context.Context, id model.EnrolledIdentity) error {
	name, err := naming.Clean(id.Name)
	if err != nil {
		return err
	}
	id.Name = name

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot.Load()
	previous, exists := current.Get(name)
	if exists && c.policy != DuplicateReplace {
		return fmt.Errorf("%w: %s", model.ErrDuplicateIdentity, name)
	}
	if exists {
		if _, err := c.store.Remove(ctx, previous.Name); err != nil {
			metrics.RecordStoreError("remove")
			return fmt.Errorf("failed to replace identity: %w", err)
		}
	}
	if err := c.store.Append(ctx, id); err != nil {
		metrics.RecordStoreError("append")
		if exists {
			c.restore(ctx, previous)
		}
		return fmt.Errorf("failed to store identity: %w", err)
	}

	key := naming.Key(name)
	next := make([]model.EnrolledIdentity, 0, current.Len()+1)
	for _, existing := range current.Identities() {
		if naming.Key(existing.Name) != key {
			next = append(next, existing)
		}
	}
	next = append(next, cloneIdentity(id))
	c.publish(next)

	c.logger.Info(ctx, "identity enrolled",
		logger.String("name", name),
		logger.Bool("replaced", exists),
		logger.Bool("has_embedding", id.HasEmbedding()),
		logger.Int("references", id.ReferenceCount()),
	)
	return nil
}

// restore writes back an identity removed by a replace whose append failed,
// so the store keeps matching the published snapshot.
func (c *Catalog) restore(ctx context.Context, previous model.EnrolledIdentity) {
	if err := c.store.Append(ctx, previous); err != nil {
		metrics.RecordStoreError("restore")
		c.logger.Error(ctx, "identity lost from store after failed replace",
			logger.String("name", previous.Name), logger.Error(err))
	}
}

// Remove deletes the identity enrolled under name.
func (c *Catalog) Remove(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot.Load()
	if _, ok := current.Get(name); !ok {
		return fmt.Errorf("%w: %s", model.ErrIdentityNotFound, name)
	}
	if _, err := c.store.Remove(ctx, name); err != nil {
		metrics.RecordStoreError("remove")
		return fmt.Errorf("failed to remove identity: %w", err)
	}

	key := naming.Key(name)
	next := make([]model.EnrolledIdentity, 0, current.Len())
	for _, existing := range current.Identities() {
		if naming.Key(existing.Name) != key {
			next = append(next, existing)
		}
	}
	c.publish(next)
	c.logger.Info(ctx, "identity removed", logger.String("name", name))
	return nil
}

// ReplaceAll swaps the whole identity set.
func (c *Catalog) ReplaceAll(ctx context.Context, ids []model.EnrolledIdentity) error {
	cleaned := make([]model.EnrolledIdentity, 0, len(ids))
	for _, id := range ids {
		name, err := naming.Clean(id.Name)
		if err != nil {
			return fmt.Errorf("identity %q: %w", id.Name, err)
		}
		id.Name = name
		cleaned = append(cleaned, cloneIdentity(id))
	}
	cleaned = dedupeByName(cleaned)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ReplaceAll(ctx, cleaned); err != nil {
		metrics.RecordStoreError("replace")
		return fmt.Errorf("failed to replace identities: %w", err)
	}
	c.publish(cleaned)
	c.logger.Info(ctx, "identity set replaced", logger.Int("count", len(cleaned)))
	return nil
}

// Close closes the underlying store.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close()
}

func (c *Catalog) publish(ids []model.EnrolledIdentity) {
	c.snapshot.Store(newSnapshot(ids))
	metrics.UpdateEnrolledIdentities(len(ids))
}

// dedupeByName keeps the last entry for each normalized name, in the
// position of that last entry.
func dedupeByName(ids []model.EnrolledIdentity) []model.EnrolledIdentity {
	last := make(map[string]int, len(ids))
	for i, id := range ids {
		last[naming.Key(id.Name)] = i
	}
	if len(last) == len(ids) {
		return ids
	}
	out := make([]model.EnrolledIdentity, 0, len(last))
	for i, id := range ids {
		if last[naming.Key(id.Name)] == i {
			out = append(out, id)
		}
	}
	return out
}
