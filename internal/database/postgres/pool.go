package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/multidatasource/internal/database"
)

const (
	defaultMaxConns    = 10
	defaultMinConns    = 2
	defaultPort        = 5432
	defaultConnTimeout = 5 * time.Second
	defaultIdleTime    = 5 * time.Minute
	defaultLifetime    = 30 * time.Minute
)

// buildPoolConfig turns cfg into a pgxpool config with defaults applied.
func buildPoolConfig(cfg *database.Config) (*pgxpool.Config, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolCfg.MaxConns = database.WithDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = database.WithDefault(cfg.MinConns, defaultMinConns)
	if poolCfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}
	poolCfg.MaxConnLifetime = database.WithDefault(cfg.MaxConnLifetime, defaultLifetime)
	poolCfg.MaxConnIdleTime = database.WithDefault(cfg.MaxConnIdleTime, defaultIdleTime)
	poolCfg.ConnConfig.ConnectTimeout = database.WithDefault(cfg.ConnectTimeout, defaultConnTimeout)

	return poolCfg, nil
}

// buildDSN constructs the keyword/value postgres connection string
func buildDSN(cfg *database.Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteValue(cfg.Host),
		database.WithDefault(cfg.Port, defaultPort),
		quoteValue(cfg.User),
		quoteValue(cfg.Password),
		quoteValue(cfg.Database),
		quoteValue(sslMode),
	)
}

// quoteValue single-quotes a keyword/value parameter, escaping \ and '.
func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
