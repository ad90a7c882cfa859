package mysql

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/multidatasource/internal/database"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultConnTimeout     = 5 * time.Second
	defaultPort            = 3306
)

// applyPoolSettings sizes the database/sql pool.
func applyPoolSettings(db *sql.DB, cfg *database.Config) {
	maxOpen := int(database.WithDefault(cfg.MaxConns, defaultMaxOpenConns))
	maxIdle := int(database.WithDefault(cfg.MinConns, defaultMaxIdleConns))
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(database.WithDefault(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(database.WithDefault(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))
}

// buildDSN returns the go-sql-driver DSN for cfg. A configured DSN is parsed
// and re-emitted so that parseTime and the dial timeout are always set.
func buildDSN(cfg *database.Config) (string, error) {
	var mc *gomysql.Config
	if cfg.DSN != "" {
		parsed, err := gomysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = gomysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(database.WithDefault(cfg.Port, defaultPort)))
		mc.DBName = cfg.Database
	}

	mc.ParseTime = true
	if mc.Timeout == 0 {
		mc.Timeout = database.WithDefault(cfg.ConnectTimeout, defaultConnTimeout)
	}
	return mc.FormatDSN(), nil
}
