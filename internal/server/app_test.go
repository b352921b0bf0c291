package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = ":memory:"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func TestNewApp_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	// the store is closed on the way out
	assert.Error(t, app.store.Ping(context.Background()))
}

func TestNewApp_BadDriver(t *testing.T) {
	c := testConfig()
	c.DatabaseDriver = "oracle"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db init error")
}

func TestRun_StopsWhenEndpointFails(t *testing.T) {
	c := testConfig()
	c.EndpointAddrHTTP = "127.0.0.1:99999"
	c.EndpointAddrGRPC = ""

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after listen failure")
	}
}
