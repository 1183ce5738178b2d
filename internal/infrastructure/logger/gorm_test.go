package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_LogMode(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(time.Second))

	newLogger, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, gormlogger.Warn, newLogger.logLevel)
	assert.Equal(t, time.Second, newLogger.slowThreshold)
}

func TestGormLogger_Trace(t *testing.T) {
	query := func(sql string) func() (string, int64) {
		return func() (string, int64) { return sql, 4 }
	}

	t.Run("error carries identifiers", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Info)
		ctx := WithBusinessID(WithRequestID(context.Background(), "req-1"), "biz-1")

		gormLog.Trace(ctx, time.Now(), query("SELECT 1"), errors.New("syntax"))

		require.Len(t, recorded.All(), 1)
		entry := recorded.All()[0]
		assert.Equal(t, "SQL Error", entry.Message)
		assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
		assert.Equal(t, "biz-1", entry.ContextMap()["business_id"])
	})

	t.Run("record not found ignored", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Warn)

		gormLog.Trace(context.Background(), time.Now(), query("SELECT 1"), gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())
	})

	t.Run("slow query warns", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), query("SELECT 1"), nil)

		require.Len(t, recorded.All(), 1)
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	})

	t.Run("long sql truncated", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

		gormLog.Trace(context.Background(), time.Now(), query(strings.Repeat("x", 5000)), nil)

		require.Len(t, recorded.All(), 1)
		sql, _ := recorded.All()[0].ContextMap()["sql"].(string)
		assert.Len(t, sql, DefaultMaxSQLLength+3)
	})

	t.Run("truncation can be disabled", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Info, WithMaxSQLLength(0))

		gormLog.Trace(context.Background(), time.Now(), query(strings.Repeat("x", 5000)), nil)

		require.Len(t, recorded.All(), 1)
		assert.Len(t, recorded.All()[0].ContextMap()["sql"], 5000)
	})

	t.Run("statement not rendered when zap drops the entry", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

		rendered := false
		gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
			rendered = true
			return "SELECT 1", 1
		}, nil)

		assert.False(t, rendered)
		assert.Empty(t, recorded.All())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Silent)

		gormLog.Trace(context.Background(), time.Now(), query("SELECT 1"), errors.New("x"))
		gormLog.Info(context.Background(), "hidden %s", "msg")
		assert.Empty(t, recorded.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
