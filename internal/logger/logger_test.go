package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "default config",
			config: nil,
		},
		{
			name: "custom json config",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: io.Discard,
			},
		},
		{
			name: "console config",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: io.Discard,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.config)
			assert.NotNil(t, logger)
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	logger.Info("test message")

	var logEntry map[string]any
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "test message", logEntry["message"])
	assert.NotEmpty(t, logEntry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	childLogger := logger.With().
		Str("datasource", "second").
		Int("max_conns", 10).
		Logger()

	childLogger.Info("pool opened")

	var logEntry map[string]any
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "second", logEntry["datasource"])
	assert.Equal(t, float64(10), logEntry["max_conns"])
	assert.Equal(t, "pool opened", logEntry["message"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "error",
		Format: "json",
		Output: buf,
	})

	testErr := errors.New("database connection failed")
	logger.ErrorWith("query failed", testErr, map[string]any{
		"datasource": "first",
		"route":      "/one",
	})

	var logEntry map[string]any
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "query failed", logEntry["message"])
	assert.Equal(t, "database connection failed", logEntry["error"])
	assert.Equal(t, "first", logEntry["datasource"])
	assert.Equal(t, "/one", logEntry["route"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	ctx := logger.WithContext(context.Background())
	retrievedLogger := FromContext(ctx, nil)

	retrievedLogger.Info("from context")

	var logEntry map[string]any
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "from context", logEntry["message"])
}

func TestFromContext_Fallback(t *testing.T) {
	buf := &bytes.Buffer{}
	fallback := New(&Config{Level: "info", Format: "json", Output: buf})

	FromContext(context.Background(), fallback).Info("fallback used")
	assert.Contains(t, buf.String(), "fallback used")

	assert.NotPanics(t, func() {
		FromContext(context.Background(), nil).Info("dropped")
	})
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool // should log or not
	}{
		{
			name:  "debug level logs debug",
			level: "debug",
			logFunc: func(l *Logger) {
				l.Debug("debug message")
			},
			expected: true,
		},
		{
			name:  "info level skips debug",
			level: "info",
			logFunc: func(l *Logger) {
				l.Debug("debug message")
			},
			expected: false,
		},
		{
			name:  "error level logs error",
			level: "error",
			logFunc: func(l *Logger) {
				l.Error("error message")
			},
			expected: true,
		},
		{
			name:  "error level skips info",
			level: "error",
			logFunc: func(l *Logger) {
				l.Info("info message")
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(&Config{
				Level:  tt.level,
				Format: "json",
				Output: buf,
			})

			tt.logFunc(logger)

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func BenchmarkLogger_Info(b *testing.B) {
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: io.Discard,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message")
	}
}

func BenchmarkLogger_WithFields(b *testing.B) {
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: io.Discard,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.With().
			Str("datasource", "first").
			Int("request_id", i).
			Logger().
			Info("benchmark message")
	}
}
