//go:build !windows

package runner

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_Parent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManagerFrom(parent, syscall.SIGUSR1)
	defer sm.Stop()

	cancel()
	assert.ErrorIs(t, sm.Context().Err(), context.Canceled)
	assert.False(t, sm.Interrupted(), "parent cancellation is not a signal")
}

func TestSignalManager_Signal(t *testing.T) {
	sm := NewSignalManagerFrom(context.Background(), syscall.SIGUSR1)
	defer sm.Stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, sm.Interrupted, time.Second, 10*time.Millisecond)
}
