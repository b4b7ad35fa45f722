package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/pkg/adapters/file"
	"github.com/aretw0/guidebook/pkg/adapters/memory"
	"github.com/aretw0/guidebook/pkg/adapters/process"
	"github.com/aretw0/guidebook/pkg/adapters/redis"
	"github.com/aretw0/guidebook/pkg/adapters/sqlite"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/observability"
	"github.com/aretw0/guidebook/pkg/persistence/middleware"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// Profile store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Environment variables holding the profile encryption keys. Fallback keys
// are comma separated and only used to decrypt.
const (
	EncryptionKeyEnv          = "GUIDEBOOK_ENCRYPTION_KEY"
	EncryptionFallbackKeysEnv = "GUIDEBOOK_ENCRYPTION_FALLBACK_KEYS"
)

// DefaultRedisURL is used by the redis store when no URL is given.
const DefaultRedisURL = "redis://localhost:6379/0"

// StoreOptions selects where profiles live.
type StoreOptions struct {
	Kind       string
	Dir        string
	RedisURL   string
	SQLitePath string
	// Redact lists regexps of answer keys never written to the store.
	Redact []string
}

// OpenProfiles builds the profile manager described by opts. The returned
// function releases the store connection.
func OpenProfiles(opts StoreOptions, logger *slog.Logger) (*session.Manager, func() error, error) {
	var (
		store       ports.ProfileStore
		closeStore  = func() error { return nil }
		managerOpts = []session.Option{session.WithLogger(logger)}
	)

	switch opts.Kind {
	case "", StoreFile:
		store = file.NewStore(opts.Dir, file.WithLogger(logger))
	case StoreMemory:
		store = memory.NewStore()
	case StoreRedis:
		url := opts.RedisURL
		if url == "" {
			url = DefaultRedisURL
		}
		redisOpts, err := backend.ParseURL(url)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(redisOpts)
		rs := redis.NewFromClient(client, redis.WithLogger(logger))
		store, closeStore = rs, rs.Close
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(client, "guidebook:")))
	case StoreSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(".guidebook", "profiles.db")
		}
		ss, err := sqlite.Open(path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		store, closeStore = ss, ss.Close
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file, memory, redis or sqlite)", opts.Kind)
	}

	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		mws = append(mws, middleware.NewRedactMiddleware(opts.Redact))
	}
	if enc, ok := encryptionFromEnv(); ok {
		logger.Debug("profile encryption enabled", "fallback_keys", len(enc.FallbackKeys))
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}

	return session.NewManager(middleware.Chain(store, mws...), managerOpts...), closeStore, nil
}

func encryptionFromEnv() (middleware.EncryptionConfig, bool) {
	key := os.Getenv(EncryptionKeyEnv)
	if key == "" {
		return middleware.EncryptionConfig{}, false
	}
	cfg := middleware.EncryptionConfig{ActiveKey: middleware.ParseKey(key)}
	for _, k := range strings.Split(os.Getenv(EncryptionFallbackKeysEnv), ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.FallbackKeys = append(cfg.FallbackKeys, middleware.ParseKey(k))
		}
	}
	return cfg, true
}

// createEngineOptions prepares the engine options for opts: logger, debug
// hooks, validation vetoes and the subprocess executor. out mirrors the
// output of leaves and may be nil.
func createEngineOptions(opts RunOptions, logger *slog.Logger, out io.Writer, hooks ...domain.LifecycleHooks) ([]guidebook.Option, error) {
	vetoes, err := CompileVetoes(opts.NoValidate)
	if err != nil {
		return nil, err
	}

	runtimes := process.DefaultRuntimes()
	if opts.RuntimesPath != "" {
		runtimes, err = process.LoadRuntimes(opts.RuntimesPath)
		if err != nil {
			return nil, err
		}
	}

	var stderr io.Writer
	if out != nil {
		stderr = os.Stderr
	}
	exec := process.NewRunner(
		process.WithRuntimes(runtimes),
		process.WithBaseDir(leavesDir(opts.LeavesPath)),
		process.WithOutput(out, stderr),
		process.WithLogger(logger),
	)

	if opts.Debug {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}

	return []guidebook.Option{
		guidebook.WithLogger(logger),
		guidebook.WithExecutor(exec),
		guidebook.WithVeto(vetoes...),
		guidebook.WithLifecycleHooks(domain.MergeHooks(hooks...)),
	}, nil
}

// Workspace is a guidebook bound to a stored profile, for commands that
// inspect or answer it without running it. Every answer is saved as it is
// recorded.
type Workspace struct {
	Engine   *guidebook.Engine
	Profiles *session.Manager
	Profile  string

	logger     *slog.Logger
	closeStore func() error
}

// OpenWorkspace loads the profile of opts and builds an engine on it.
func OpenWorkspace(ctx context.Context, opts RunOptions, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*Workspace, error) {
	opts = withDefaults(opts)

	assertions, err := ParseAssertions(opts.Assertions)
	if err != nil {
		return nil, err
	}

	profiles, closeStore, err := OpenProfiles(opts.Store, logger)
	if err != nil {
		return nil, err
	}

	state, err := profiles.LoadOrCreate(ctx, opts.Profile)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to load profile %s: %w", opts.Profile, err)
	}
	for k, v := range assertions {
		state.Set(k, v, false)
	}

	engineOpts, err := createEngineOptions(opts, logger, nil, hooks...)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	engineOpts = append(engineOpts, guidebook.WithState(state))

	eng, err := guidebook.New(opts.LeavesPath, engineOpts...)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("error initializing guidebook: %w", err)
	}

	ws := &Workspace{
		Engine:     eng,
		Profiles:   profiles,
		Profile:    opts.Profile,
		logger:     logger,
		closeStore: closeStore,
	}
	state.OnChange(func(key, _ string) {
		if err := profiles.Save(context.WithoutCancel(ctx), opts.Profile, state); err != nil {
			logger.Warn("failed to save profile", "profile", opts.Profile, "key", key, "err", err)
		}
	})
	return ws, nil
}

// Close runs pending cleanup tasks, saves the profile and releases the store.
func (w *Workspace) Close(ctx context.Context) error {
	err := w.Engine.Close(ctx)
	if serr := w.Profiles.Save(ctx, w.Profile, w.Engine.State()); serr != nil {
		err = errors.Join(err, fmt.Errorf("failed to save profile %s: %w", w.Profile, serr))
	}
	return errors.Join(err, w.closeStore())
}
