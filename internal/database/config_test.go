package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/multidatasource/internal/errs"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"nil", nil, true},
		{"dsn only", DefaultConfig(DriverPostgres, "postgres://u:p@h/db"), false},
		{"missing driver", &Config{DSN: "x"}, true},
		{"unknown driver", &Config{Driver: "oracle", DSN: "x"}, true},
		{"discrete fields", &Config{Driver: DriverMySQL, Host: "h", User: "u", Database: "d"}, false},
		{"missing host", &Config{Driver: DriverMySQL, User: "u", Database: "d"}, true},
		{"missing user", &Config{Driver: DriverSQLServer, Host: "h", Database: "d"}, true},
		{"missing database", &Config{Driver: DriverSQLServer, Host: "h", User: "u"}, true},
		{"bad port", &Config{Driver: DriverPostgres, Host: "h", User: "u", Database: "d", Port: 70000}, true},
		{"min above max", &Config{Driver: DriverPostgres, DSN: "x", MaxConns: 2, MinConns: 5}, true},
		{"negative pool", &Config{Driver: DriverPostgres, DSN: "x", MaxConns: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errs.IsConfiguration(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDriver_Dialect(t *testing.T) {
	assert.Equal(t, DialectPostgres, DriverPostgres.Dialect())
	assert.Equal(t, DialectMySQL, DriverMySQL.Dialect())
	assert.Equal(t, DialectSQLServer, DriverSQLServer.Dialect())
}

func TestWithDefault(t *testing.T) {
	assert.Equal(t, int32(10), WithDefault(int32(0), 10))
	assert.Equal(t, int32(3), WithDefault(int32(3), 10))
	assert.Equal(t, time.Second, WithDefault(time.Duration(0), time.Second))
}
