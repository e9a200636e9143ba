package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)

	_, err = New(Config{Level: "info", Encoding: "xml"})
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestWithContextAddsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Get()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	ctx := NewContext(context.Background(), JobIDKey, "job-7")
	ctx = NewContext(ctx, CodecKey, "csv")
	ctx = NewContext(ctx, BinaryFileKey, "train.tbin")

	WithContext(ctx).Info("converted")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "job-7", fields["job_id"])
	assert.Equal(t, "csv", fields["codec"])
	assert.Equal(t, "train.tbin", fields["binary_file"])
}
