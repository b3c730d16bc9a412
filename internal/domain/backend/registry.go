package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/facegate/pkg/logger"
)

// Selection names the backends to use for each capability. Empty lists or
// names select every registered backend of that capability, in name order.
type Selection struct {
	Detectors []string
	Embedders []string
	Verifier  string
	Liveness  string
}

// Set is a resolved, validated selection. Every backend in it is bounded by
// the registry's call timeout. Verifier may be nil when none is registered.
type Set struct {
	Detectors []Detector
	Embedders []Embedder
	Verifier  Verifier
	Liveness  LivenessClassifier
}

// Registry keeps backends by capability and name.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
	embedders map[string]Embedder
	verifiers map[string]Verifier
	liveness  map[string]LivenessClassifier

	callTimeout time.Duration
	logger      logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		detectors:   make(map[string]Detector),
		embedders:   make(map[string]Embedder),
		verifiers:   make(map[string]Verifier),
		liveness:    make(map[string]LivenessClassifier),
		callTimeout: defaultCallTimeout,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func register[T Named](mu *sync.RWMutex, m map[string]T, capability string, b T) error {
	mu.Lock()
	defer mu.Unlock()
	name := b.Name()
	if _, exists := m[name]; exists {
		return fmt.Errorf("%s %q: %w", capability, name, ErrDuplicateBackend)
	}
	m[name] = b
	return nil
}

// RegisterDetector adds a detector.
func (r *Registry) RegisterDetector(d Detector) error {
	return register(&r.mu, r.detectors, CapabilityDetect, d)
}

// RegisterEmbedder adds an embedder.
func (r *Registry) RegisterEmbedder(e Embedder) error {
	return register(&r.mu, r.embedders, CapabilityEmbed, e)
}

// RegisterVerifier adds a verifier.
func (r *Registry) RegisterVerifier(v Verifier) error {
	return register(&r.mu, r.verifiers, CapabilityVerify, v)
}

// RegisterLiveness adds a liveness classifier.
func (r *Registry) RegisterLiveness(l LivenessClassifier) error {
	return register(&r.mu, r.liveness, CapabilityLiveness, l)
}

// Register adds b under every capability it implements and returns how many
// capabilities matched.
func (r *Registry) Register(b Named) (int, error) {
	n := 0
	if d, ok := b.(Detector); ok {
		if err := r.RegisterDetector(d); err != nil {
			return n, err
		}
		n++
	}
	if e, ok := b.(Embedder); ok {
		if err := r.RegisterEmbedder(e); err != nil {
			return n, err
		}
		n++
	}
	if v, ok := b.(Verifier); ok {
		if err := r.RegisterVerifier(v); err != nil {
			return n, err
		}
		n++
	}
	if l, ok := b.(LivenessClassifier); ok {
		if err := r.RegisterLiveness(l); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func pick[T Named](m map[string]T, capability string, names []string) ([]T, error) {
	if len(names) == 0 {
		names = make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	out := make([]T, 0, len(names))
	for _, name := range names {
		b, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("%s %q: %w", capability, name, ErrUnknownBackend)
		}
		out = append(out, b)
	}
	return out, nil
}

func pickOne[T Named](m map[string]T, capability, name string) (T, bool, error) {
	var zero T
	var names []string
	if name != "" {
		names = []string{name}
	}
	found, err := pick(m, capability, names)
	if err != nil {
		return zero, false, err
	}
	if len(found) == 0 {
		return zero, false, nil
	}
	return found[0], true, nil
}

// Resolve validates sel against the registered backends. A detector, an
// embedder and a liveness classifier are mandatory; without any of them the
// service must not answer recognition requests.
func (r *Registry) Resolve(ctx context.Context, sel Selection) (*Set, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	detectors, err := pick(r.detectors, CapabilityDetect, sel.Detectors)
	if err != nil {
		return nil, err
	}
	if len(detectors) == 0 {
		return nil, fmt.Errorf("%s: %w", CapabilityDetect, ErrNoUsableBackend)
	}
	embedders, err := pick(r.embedders, CapabilityEmbed, sel.Embedders)
	if err != nil {
		return nil, err
	}
	if len(embedders) == 0 {
		return nil, fmt.Errorf("%s: %w", CapabilityEmbed, ErrNoUsableBackend)
	}
	live, ok, err := pickOne(r.liveness, CapabilityLiveness, sel.Liveness)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", CapabilityLiveness, ErrNoUsableBackend)
	}
	verifier, hasVerifier, err := pickOne(r.verifiers, CapabilityVerify, sel.Verifier)
	if err != nil {
		return nil, err
	}

	set := &Set{
		Detectors: make([]Detector, 0, len(detectors)),
		Embedders: make([]Embedder, 0, len(embedders)),
		Liveness:  &timedLiveness{inner: live, timeout: r.callTimeout},
	}
	for _, d := range detectors {
		set.Detectors = append(set.Detectors, &timedDetector{inner: d, timeout: r.callTimeout})
	}
	for _, e := range embedders {
		set.Embedders = append(set.Embedders, &timedEmbedder{inner: e, timeout: r.callTimeout})
	}
	if hasVerifier {
		set.Verifier = &timedVerifier{inner: verifier, timeout: r.callTimeout}
	}

	r.logger.Info(ctx, "Backends resolved",
		logger.Int("detectors", len(set.Detectors)),
		logger.Int("embedders", len(set.Embedders)),
		logger.String("liveness", live.Name()),
		logger.Bool("verifier", hasVerifier),
		logger.Duration("call_timeout", r.callTimeout))
	return set, nil
}
