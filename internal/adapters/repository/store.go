// Package repository persists enrolled identities and serves them to the
// recognition pipeline through an immutable, atomically swapped snapshot.
package repository

import (
	"context"
	"image"

	"github.com/okian/facegate/internal/domain/model"
)

// Store is the external persistence of the identity set. The catalog is the
// only caller; it serializes writes.
type Store interface {
	// Load returns every stored identity. Unreadable data wraps
	// model.ErrStoreCorrupt.
	Load(ctx context.Context) ([]model.EnrolledIdentity, error)
	// Append adds an identity.
	Append(ctx context.Context, id model.EnrolledIdentity) error
	// Remove deletes every identity whose name normalizes to name and
	// reports whether anything was removed.
	Remove(ctx context.Context, name string) (bool, error)
	// ReplaceAll swaps the whole set.
	ReplaceAll(ctx context.Context, ids []model.EnrolledIdentity) error
	// Close releases resources.
	Close() error
}

// cloneIdentity copies the maps and slices of id so stores never share
// mutable state with callers. Images are immutable by convention.
func cloneIdentity(id model.EnrolledIdentity) model.EnrolledIdentity {
	out := id
	if id.Embedding != nil {
		emb := model.FusedEmbedding{
			Vector:   append([]float64(nil), id.Embedding.Vector...),
			Backends: append([]string(nil), id.Embedding.Backends...),
		}
		out.Embedding = &emb
	}
	if id.Poses != nil {
		out.Poses = make(map[model.Pose][]image.Image, len(id.Poses))
		for pose, refs := range id.Poses {
			out.Poses[pose] = append([]image.Image(nil), refs...)
		}
	}
	return out
}
