package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/multidatasource/internal/database"
	"github.com/koustreak/multidatasource/internal/datasource"
	"github.com/koustreak/multidatasource/internal/errs"
)

const sampleYAML = `
datasources:
  first:
    driver: sqlserver
    host: mssql.internal
    port: 1433
    user: sa
    database: first_db
    ssl_mode: trust
    query_timeout: 5s
  second:
    driver: postgres
    dsn: postgres://reader@pg.internal:5432/second_db
    max_conns: 4
    min_conns: 1
server:
  addr: ":9090"
  shutdown_timeout: 3s
log:
  level: debug
  format: console
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	first := cfg.Datasources.First
	assert.Equal(t, "sqlserver", first.Driver)
	assert.Equal(t, "mssql.internal", first.Host)
	assert.Equal(t, 1433, first.Port)
	assert.Equal(t, 5*time.Second, first.QueryTimeout)

	second := cfg.Datasources.Second
	assert.Equal(t, "postgres://reader@pg.internal:5432/second_db", second.DSN)
	assert.Equal(t, int32(4), second.MaxConns)

	assert.Equal(t, datasource.First, cfg.Datasources.Default)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverridesStayInTheirNamespace(t *testing.T) {
	t.Setenv("FIRST_DB_PASSWORD", "first-secret")
	t.Setenv("SECOND_DB_PASSWORD", "second-secret")
	t.Setenv("SECOND_DB_MAX_CONNS", "8")
	t.Setenv("DEFAULT_DATASOURCE", "second")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "first-secret", cfg.Datasources.First.Password)
	assert.Equal(t, "second-secret", cfg.Datasources.Second.Password)
	assert.Equal(t, int32(8), cfg.Datasources.Second.MaxConns)
	assert.Equal(t, int32(0), cfg.Datasources.First.MaxConns)
	assert.Equal(t, datasource.Second, cfg.Datasources.Default)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("FIRST_DB_DRIVER", "mysql")
	t.Setenv("FIRST_DB_DSN", "reader:pw@tcp(mysql:3306)/first_db")
	t.Setenv("SECOND_DB_DRIVER", "postgres")
	t.Setenv("SECOND_DB_HOST", "pg")
	t.Setenv("SECOND_DB_USER", "reader")
	t.Setenv("SECOND_DB_DATABASE", "second_db")
	t.Setenv("SECOND_DB_CONNECT_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	s := cfg.Settings()
	assert.Equal(t, database.DriverMySQL, s.First.Driver)
	assert.Equal(t, "pg", s.Second.Host)
	assert.Equal(t, 2*time.Second, s.Second.ConnectTimeout)
	assert.Equal(t, datasource.First, s.Default)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"second missing", `
datasources:
  first: {driver: postgres, dsn: "postgres://a@b/c"}
`},
		{"unknown driver", `
datasources:
  first: {driver: oracle, dsn: "x"}
  second: {driver: postgres, dsn: "postgres://a@b/c"}
`},
		{"host without database", `
datasources:
  first: {driver: postgres, host: pg, user: reader}
  second: {driver: postgres, dsn: "postgres://a@b/c"}
`},
		{"bad default", `
datasources:
  default: third
  first: {driver: postgres, dsn: "postgres://a@b/c"}
  second: {driver: postgres, dsn: "postgres://a@b/c"}
`},
		{"misspelled namespace", `
datasources:
  first: {driver: postgres, dsn: "postgres://a@b/c"}
  secnod: {driver: postgres, dsn: "postgres://a@b/c"}
`},
		{"malformed yaml", "datasources: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSettings_KeepsNamespacesApart(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	s := cfg.Settings()
	assert.Equal(t, database.DriverSQLServer, s.First.Driver)
	assert.Equal(t, "first_db", s.First.Database)
	assert.Empty(t, s.First.DSN)
	assert.Equal(t, database.DriverPostgres, s.Second.Driver)
	assert.Empty(t, s.Second.Host)
	assert.Equal(t, 5*time.Second, s.First.QueryTimeout)
	assert.Zero(t, s.Second.QueryTimeout)
}

func TestLogger(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	lc := cfg.Logger()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.NotNil(t, lc.Output)
}

func TestPoolConfig_CopiesEveryField(t *testing.T) {
	ds := DatasourceConfig{
		Driver:          "mysql",
		Host:            "mysql.internal",
		Port:            3307,
		User:            "reader",
		Password:        "pw",
		Database:        "second_db",
		SSLMode:         "disable",
		MaxConns:        6,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  3 * time.Second,
		QueryTimeout:    4 * time.Second,
	}

	assert.Equal(t, &database.Config{
		Driver:          database.DriverMySQL,
		Host:            "mysql.internal",
		Port:            3307,
		User:            "reader",
		Password:        "pw",
		Database:        "second_db",
		SSLMode:         "disable",
		MaxConns:        6,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  3 * time.Second,
		QueryTimeout:    4 * time.Second,
	}, ds.PoolConfig())
	assert.NoError(t, ds.PoolConfig().Validate())
}
