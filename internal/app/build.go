package service

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/facegate/internal/adapters/announce"
	"github.com/okian/facegate/internal/adapters/audit"
	"github.com/okian/facegate/internal/adapters/backend/dlib"
	"github.com/okian/facegate/internal/adapters/backend/modelserver"
	"github.com/okian/facegate/internal/adapters/repository"
	"github.com/okian/facegate/internal/config"
	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/model"
	"github.com/okian/facegate/pkg/logger"
)

// buildRegistry registers every configured backend.
func buildRegistry(cfg *config.Config, log logger.Logger) (*backend.Registry, []io.Closer, error) {
	r := backend.NewRegistry(
		backend.WithCallTimeout(cfg.Backends.CallTimeout),
		backend.WithLogger(log),
	)
	var closers []io.Closer

	for _, ms := range cfg.Backends.ModelServers {
		var opts []modelserver.Option
		if ms.Timeout > 0 {
			opts = append(opts, modelserver.WithTimeout(ms.Timeout))
		}
		client, err := modelserver.New(ms.Name, ms.URL, ms.Model, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("model server %q: %w", ms.Name, err)
		}
		if err := registerCapabilities(r, client, ms.Capabilities); err != nil {
			return nil, nil, fmt.Errorf("model server %q: %w", ms.Name, err)
		}
	}

	if cfg.Backends.Dlib.Enabled {
		b, err := dlib.New(cfg.Backends.Dlib.Name, cfg.Backends.Dlib.ModelsDir, dlib.WithCNN(cfg.Backends.Dlib.CNN))
		if err != nil {
			return nil, nil, fmt.Errorf("dlib backend: %w", err)
		}
		closers = append(closers, b)
		if _, err := r.Register(b); err != nil {
			return nil, nil, fmt.Errorf("dlib backend: %w", err)
		}
	}
	return r, closers, nil
}

// registerCapabilities registers c for the listed capabilities, or for all
// of them when the list is empty.
func registerCapabilities(r *backend.Registry, c *modelserver.Client, caps []string) error {
	if len(caps) == 0 {
		_, err := r.Register(c)
		return err
	}
	for _, capability := range caps {
		var err error
		switch capability {
		case backend.CapabilityDetect:
			err = r.RegisterDetector(c)
		case backend.CapabilityEmbed:
			err = r.RegisterEmbedder(c)
		case backend.CapabilityVerify:
			err = r.RegisterVerifier(c)
		case backend.CapabilityLiveness:
			err = r.RegisterLiveness(c)
		default:
			err = fmt.Errorf("%w: capability %q", backend.ErrUnknownBackend, capability)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// OpenCatalog opens the configured identity store and loads it into a
// catalog, for tools that manage identities without running recognition.
func OpenCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) (*repository.Catalog, error) {
	store, err := openStore(ctx, cfg.Identities)
	if err != nil {
		return nil, err
	}
	policy, err := repository.ParseDuplicatePolicy(cfg.Identities.DuplicatePolicy)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	catalog := repository.NewCatalog(store,
		repository.WithDuplicatePolicy(policy),
		repository.WithLogger(log),
	)
	if err := catalog.Load(ctx); err != nil {
		_ = catalog.Close()
		return nil, err
	}
	return catalog, nil
}

func openStore(ctx context.Context, cfg config.IdentitiesConfig) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreFile:
		return repository.NewFileStore(cfg.Path)
	case config.StorePostgres:
		return repository.NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: identity store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// openAudit returns the configured sink and, when it can be queried, its
// reader. The returned close func is nil unless the sink holds connections.
func openAudit(ctx context.Context, cfg config.AuditConfig, log logger.Logger) (audit.Sink, audit.Reader, func(), error) {
	switch cfg.Sink {
	case config.SinkLog:
		return audit.NewLogSink(log), nil, nil, nil
	case config.SinkMemory:
		sink := audit.NewMemorySink(cfg.MemoryCapacity)
		return audit.Tee(audit.NewLogSink(log), sink), sink, nil, nil
	case config.SinkPostgres:
		sink, err := audit.NewPostgresSink(ctx, cfg.DSN, audit.WithLogger(log))
		if err != nil {
			return nil, nil, nil, err
		}
		return audit.Tee(audit.NewLogSink(log), sink), sink, sink.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: audit sink %q", config.ErrInvalidConfig, cfg.Sink)
	}
}

func openSpeaker(cfg config.AnnounceConfig, log logger.Logger) (announce.Sink, error) {
	switch cfg.Sink {
	case config.SinkLog:
		return announce.NewLogSink(log), nil
	case config.SinkCommand:
		return announce.NewCommandSink(cfg.Command, cfg.Args...)
	case config.SinkNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: announce sink %q", config.ErrInvalidConfig, cfg.Sink)
	}
}

func poses(names []string) []model.Pose {
	out := make([]model.Pose, 0, len(names))
	for _, n := range names {
		out = append(out, model.Pose(n))
	}
	return out
}
