package main

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestAwaitShutdownOnSignalStopsServerOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shutdowns atomic.Int32
	serverDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdowns.Add(1)
		serverDone <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt

	require.NoError(t, awaitShutdown(sigChan, serverDone, cancel, quietLogger()))
	assert.Equal(t, int32(1), shutdowns.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestAwaitShutdownReturnsServerError(t *testing.T) {
	serverDone := make(chan error, 1)
	serverDone <- errors.New("address already in use")

	err := awaitShutdown(make(chan os.Signal), serverDone, func() {}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestAwaitShutdownWaitsForServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		serverDone <- errors.New("shutdown timed out")
	}()

	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt

	start := time.Now()
	require.NoError(t, awaitShutdown(sigChan, serverDone, cancel, quietLogger()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
