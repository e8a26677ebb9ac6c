package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{URL: "redis://" + mr.Addr() + "/0", ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	require.True(t, cfg.Enabled())

	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestNew_Disabled(t *testing.T) {
	cfg := &Config{}
	require.False(t, cfg.Enabled())
	_, err := cfg.New(context.Background())
	require.Error(t, err)
}

func TestNew_BadURL(t *testing.T) {
	cfg := &Config{URL: "http://nope"}
	_, err := cfg.New(context.Background())
	require.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &Config{URL: "redis://" + addr, DialTimeout: 1, ReadTimeout: 1, WriteTimeout: 1}
	_, err := cfg.New(context.Background())
	require.Error(t, err)
}
