// Package datasource owns the application's two connection pools.
//
// Both pools are opened eagerly by Open, each from its own configuration
// namespace, and live until Close. A pool is never built from another
// namespace's settings.
package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/database/mysql"
	"github.com/koustreak/multidatasource/internal/database/postgres"
	"github.com/koustreak/multidatasource/internal/database/sqlserver"
	"github.com/koustreak/multidatasource/internal/errs"
	"github.com/koustreak/multidatasource/internal/logger"
)

// Datasource names.
const (
	First  = "first"
	Second = "second"
)

// names lists the datasources in opening order.
var names = []string{First, Second}

// Settings carries one configuration per datasource plus the name of the
// default one. An empty Default means First.
type Settings struct {
	First   *database.Config
	Second  *database.Config
	Default string
}

func (s Settings) config(name string) *database.Config {
	switch name {
	case First:
		return s.First
	case Second:
		return s.Second
	}
	return nil
}

// Opener builds a pool for one engine.
type Opener func(ctx context.Context, cfg *database.Config) (database.DB, error)

// DefaultOpeners returns the opener for every supported driver.
func DefaultOpeners() map[database.Driver]Opener {
	return map[database.Driver]Opener{
		database.DriverPostgres: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return postgres.New(ctx, cfg)
		},
		database.DriverMySQL: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return mysql.New(ctx, cfg)
		},
		database.DriverSQLServer: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return sqlserver.New(ctx, cfg)
		},
	}
}

// Option customises Open.
type Option func(*Registry)

// WithOpener replaces the opener used for driver.
func WithOpener(driver database.Driver, o Opener) Option {
	return func(r *Registry) { r.openers[driver] = o }
}

// WithLogger sets the logger used for pool lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithObserver attaches o to every executor handed out by the registry.
func WithObserver(o database.Observer) Option {
	return func(r *Registry) { r.observer = o }
}

const defaultReachTimeout = 5 * time.Second

type entry struct {
	db     database.DB
	config *database.Config
}

// Registry holds the opened pools. It is safe for concurrent use.
type Registry struct {
	openers  map[database.Driver]Opener
	log      *logger.Logger
	observer database.Observer

	pools       map[string]entry
	defaultName string
	closeOnce   sync.Once
}

// Open validates both namespaces, then opens the first and second pools.
// A missing or malformed configuration is a configuration error and closes
// pools already opened. A database that is merely unreachable is logged and
// left to recover; requests against it fail until it does.
func Open(ctx context.Context, s Settings, opts ...Option) (*Registry, error) {
	r := &Registry{
		openers: DefaultOpeners(),
		log:     logger.Nop(),
		pools:   make(map[string]entry, len(names)),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.defaultName = s.Default
	if r.defaultName == "" {
		r.defaultName = First
	}
	if r.defaultName != First && r.defaultName != Second {
		return nil, errs.Newf(errs.ErrKindConfiguration, "default datasource %q is not defined", r.defaultName)
	}

	for _, name := range names {
		if err := s.config(name).Validate(); err != nil {
			return nil, errs.Configuration(fmt.Sprintf("datasource %q", name), err)
		}
		if _, ok := r.openers[s.config(name).Driver]; !ok {
			return nil, errs.Newf(errs.ErrKindConfiguration, "datasource %q: no opener for driver %q", name, s.config(name).Driver)
		}
	}

	for _, name := range names {
		cfg := s.config(name)
		log := r.log.With().Str("datasource", name).Str("driver", string(cfg.Driver)).Logger()

		db, err := r.openers[cfg.Driver](ctx, cfg)
		if err != nil {
			log.ErrorWith("failed to open pool", err, nil)
			r.Close()
			return nil, errs.Configuration(fmt.Sprintf("datasource %q: cannot open pool", name), err)
		}
		r.pools[name] = entry{db: db, config: cfg}
		log.Info("pool opened")
	}

	r.warnUnreachable(ctx)
	return r, nil
}

// warnUnreachable pings every pool once and logs the ones that cannot be reached.
// An unreachable database does not stop the registry: the other pool keeps
// serving and /healthz reports the failure.
func (r *Registry) warnUnreachable(ctx context.Context) {
	var wg sync.WaitGroup
	for name, e := range r.pools {
		wg.Add(1)
		go func(name string, e entry) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, database.WithDefault(e.config.ConnectTimeout, defaultReachTimeout))
			defer cancel()

			if err := e.db.Ping(pingCtx); err != nil {
				r.log.With().Str("datasource", name).Err(err).Logger().
					Warn("datasource unreachable at startup")
			}
		}(name, e)
	}
	wg.Wait()
}

// Pool returns the pool registered under name.
func (r *Registry) Pool(name string) (database.DB, error) {
	e, ok := r.pools[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindConfiguration, "unknown datasource %q", name)
	}
	return e.db, nil
}

// Default returns the pool designated as default.
func (r *Registry) Default() database.DB {
	return r.pools[r.defaultName].db
}

// DefaultName is the name of the default datasource.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Executor returns an executor bound to the named pool, carrying that
// pool's query timeout and the registry's observer.
func (r *Registry) Executor(name string) (*database.Executor, error) {
	e, ok := r.pools[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindConfiguration, "unknown datasource %q", name)
	}

	opts := []database.ExecutorOption{database.WithQueryTimeout(e.config.QueryTimeout)}
	if r.observer != nil {
		opts = append(opts, database.WithObserver(r.observer))
	}
	return database.NewExecutor(name, e.db, e.config.Driver.Dialect(), opts...), nil
}

// Names returns the datasource names, default first.
func (r *Registry) Names() []string {
	out := []string{r.defaultName}
	for _, n := range names {
		if n != r.defaultName {
			out = append(out, n)
		}
	}
	return out
}

// Ping checks every pool concurrently and returns the failures keyed by
// datasource name. An empty map means all pools are reachable.
func (r *Registry) Ping(ctx context.Context) map[string]error {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures = make(map[string]error)
	)

	for name, e := range r.pools {
		wg.Add(1)
		go func(name string, db database.DB) {
			defer wg.Done()
			if err := db.Ping(ctx); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
		}(name, e.db)
	}
	wg.Wait()

	return failures
}

// Close closes every opened pool. It is safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		for _, name := range names {
			e, ok := r.pools[name]
			if !ok {
				continue
			}
			e.db.Close()
			r.log.With().Str("datasource", name).Logger().Info("pool closed")
		}
	})
}
