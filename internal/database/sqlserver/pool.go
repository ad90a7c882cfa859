package sqlserver

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/koustreak/multidatasource/internal/database"
)

const (
	defaultPort         = 1433
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultLifetime     = 30 * time.Minute
	defaultIdleTime     = 5 * time.Minute
	defaultConnTimeout  = 30 * time.Second
)

// buildDSN builds a sqlserver:// URL for SQL authentication.
// SSLMode maps onto the encrypt parameter: "disable" turns encryption off,
// "trust" keeps it on but skips certificate validation.
func buildDSN(cfg *database.Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)

	switch cfg.SSLMode {
	case "disable":
		query.Add("encrypt", "disable")
	case "trust":
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", "true")
	default:
		query.Add("encrypt", "true")
	}

	timeout := database.WithDefault(cfg.ConnectTimeout, defaultConnTimeout)
	query.Add("connection timeout", strconv.Itoa(int(timeout/time.Second)))

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, database.WithDefault(cfg.Port, defaultPort)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func applyPoolSettings(db *sql.DB, cfg *database.Config) {
	maxOpen := int(database.WithDefault(cfg.MaxConns, defaultMaxOpenConns))
	maxIdle := int(database.WithDefault(cfg.MinConns, defaultMaxIdleConns))
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(database.WithDefault(cfg.MaxConnLifetime, defaultLifetime))
	db.SetConnMaxIdleTime(database.WithDefault(cfg.MaxConnIdleTime, defaultIdleTime))
}
