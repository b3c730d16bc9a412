package repository

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/internal/domain/naming"
)

const (
	manifestName    = "identities.yaml"
	imagesDir       = "images"
	manifestVersion = 1
)

type manifest struct {
	Version    int             `yaml:"version"`
	Identities []manifestEntry `yaml:"identities"`
}

type manifestEntry struct {
	Name       string              `yaml:"name"`
	Dir        string              `yaml:"dir,omitempty"`
	EnrolledAt time.Time           `yaml:"enrolled_at"`
	Embedding  *manifestEmbedding  `yaml:"embedding,omitempty"`
	Poses      map[string][]string `yaml:"poses,omitempty"`
}

type manifestEmbedding struct {
	Vector   []float64 `yaml:"vector,flow"`
	Backends []string  `yaml:"backends,flow"`
}

// FileStore keeps identities under a directory: an identities.yaml manifest
// plus one PNG per pose reference under images/<id>/.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrInvalidIdentity)
	}
	if err := os.MkdirAll(filepath.Join(dir, imagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) ([]model.EnrolledIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return nil, err
	}
	out := make([]model.EnrolledIdentity, 0, len(m.Identities))
	for _, e := range m.Identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := s.decodeEntry(e)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Append implements Store.
func (s *FileStore) Append(_ context.Context, id model.EnrolledIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return err
	}
	e, err := s.writeImages(id)
	if err != nil {
		return err
	}
	m.Identities = append(m.Identities, e)
	if err := s.writeManifest(m); err != nil {
		_ = os.RemoveAll(filepath.Join(s.dir, imagesDir, e.Dir))
		return err
	}
	return nil
}

// Remove implements Store.
func (s *FileStore) Remove(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest()
	if err != nil {
		return false, err
	}
	key := naming.Key(name)
	var (
		kept    []manifestEntry
		removed []string
	)
	for _, e := range m.Identities {
		if naming.Key(e.Name) == key {
			removed = append(removed, e.Dir)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		return false, nil
	}
	m.Identities = kept
	if err := s.writeManifest(m); err != nil {
		return false, err
	}
	s.removeDirs(removed)
	return true, nil
}

// ReplaceAll implements Store. New images are written before the manifest
// switches over; the old image directories are removed afterwards.
func (s *FileStore) ReplaceAll(_ context.Context, ids []model.EnrolledIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.readManifest()
	if err != nil && !errors.Is(err, model.ErrStoreCorrupt) {
		return err
	}
	next := manifest{Version: manifestVersion}
	var written []string
	for _, id := range ids {
		e, err := s.writeImages(id)
		if err != nil {
			s.removeDirs(written)
			return err
		}
		written = append(written, e.Dir)
		next.Identities = append(next.Identities, e)
	}
	if err := s.writeManifest(next); err != nil {
		s.removeDirs(written)
		return err
	}
	var stale []string
	for _, e := range old.Identities {
		stale = append(stale, e.Dir)
	}
	s.removeDirs(stale)
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) manifestPath() string {
	return filepath.Join(s.dir, manifestName)
}

// readManifest returns an empty manifest when the file does not exist yet.
func (s *FileStore) readManifest() (manifest, error) {
	m := manifest{Version: manifestVersion}
	data, err := os.ReadFile(s.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{Version: manifestVersion}, fmt.Errorf("%w: %s: %w", model.ErrStoreCorrupt, manifestName, err)
	}
	if m.Version != manifestVersion {
		return manifest{Version: manifestVersion}, fmt.Errorf("%w: unsupported manifest version %d", model.ErrStoreCorrupt, m.Version)
	}
	return m, nil
}

// writeManifest replaces the manifest atomically through a rename.
func (s *FileStore) writeManifest(m manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, manifestName+".*")
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.manifestPath()); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (s *FileStore) writeImages(id model.EnrolledIdentity) (manifestEntry, error) {
	if id.Name == "" {
		return manifestEntry{}, fmt.Errorf("%w: empty name", ErrInvalidIdentity)
	}
	e := manifestEntry{
		Name:       id.Name,
		Dir:        uuid.NewString(),
		EnrolledAt: id.EnrolledAt.UTC(),
	}
	if id.Embedding != nil {
		e.Embedding = &manifestEmbedding{
			Vector:   append([]float64(nil), id.Embedding.Vector...),
			Backends: append([]string(nil), id.Embedding.Backends...),
		}
	}
	if len(id.Poses) == 0 {
		e.Dir = ""
		return e, nil
	}
	root := filepath.Join(s.dir, imagesDir, e.Dir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return manifestEntry{}, fmt.Errorf("failed to create image directory: %w", err)
	}
	e.Poses = make(map[string][]string, len(id.Poses))
	for pose, refs := range id.Poses {
		for i, img := range refs {
			data, err := imaging.EncodePNG(img)
			if err != nil {
				_ = os.RemoveAll(root)
				return manifestEntry{}, err
			}
			file := fmt.Sprintf("%s-%d.png", pose, i)
			if err := os.WriteFile(filepath.Join(root, file), data, 0o644); err != nil {
				_ = os.RemoveAll(root)
				return manifestEntry{}, fmt.Errorf("failed to write pose image: %w", err)
			}
			e.Poses[string(pose)] = append(e.Poses[string(pose)], file)
		}
	}
	return e, nil
}

func (s *FileStore) decodeEntry(e manifestEntry) (model.EnrolledIdentity, error) {
	id := model.EnrolledIdentity{Name: e.Name, EnrolledAt: e.EnrolledAt}
	if e.Embedding != nil {
		id.Embedding = &model.FusedEmbedding{Vector: e.Embedding.Vector, Backends: e.Embedding.Backends}
	}
	if len(e.Poses) == 0 {
		return id, nil
	}
	id.Poses = make(map[model.Pose][]image.Image, len(e.Poses))
	for pose, files := range e.Poses {
		for _, file := range files {
			path := filepath.Join(s.dir, imagesDir, filepath.Base(e.Dir), filepath.Base(file))
			data, err := os.ReadFile(path)
			if err != nil {
				return model.EnrolledIdentity{}, fmt.Errorf("%w: identity %q: %w", model.ErrStoreCorrupt, e.Name, err)
			}
			img, err := imaging.Decode(data)
			if err != nil {
				return model.EnrolledIdentity{}, fmt.Errorf("%w: identity %q: %w", model.ErrStoreCorrupt, e.Name, err)
			}
			id.Poses[model.Pose(pose)] = append(id.Poses[model.Pose(pose)], img)
		}
	}
	return id, nil
}

func (s *FileStore) removeDirs(dirs []string) {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		_ = os.RemoveAll(filepath.Join(s.dir, imagesDir, filepath.Base(d)))
	}
}
