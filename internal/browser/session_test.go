// File: internal/browser/session_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
)

func sessionTestConfig() *config.Config {
	return &config.Config{
		Network: config.NetworkConfig{
			OperationTimeout: 200 * time.Millisecond,
			ReadyTimeout:     50 * time.Millisecond,
		},
	}
}

func TestWaitReady_DeadSessionTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSession("test", ctx, func() {}, sessionTestConfig(), zaptest.NewLogger(t))

	assert.Equal(t, harness.TimedOut, s.WaitReady(context.Background()))
}

func TestWaitReady_ExpiryTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newSession("test", ctx, cancel, sessionTestConfig(), zaptest.NewLogger(t))

	start := time.Now()
	state := s.WaitReady(context.Background())

	assert.Equal(t, harness.TimedOut, state)
	assert.Less(t, time.Since(start), 2*time.Second, "the wait must respect the ready timeout")
}

func TestWaitFramesReady_DeadSessionIsSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSession("test", ctx, func() {}, sessionTestConfig(), zaptest.NewLogger(t))

	assert.Empty(t, s.WaitFramesReady(context.Background()))
}
