package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// SignalManager handles OS signals and context cancellation, including the
// race where Ctrl+C surfaces as an input error slightly before the signal.
type SignalManager struct {
	mu      sync.Mutex
	parent  context.Context
	signals []os.Signal
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSignalManager creates a new manager and immediately starts listening for
// SIGINT and SIGTERM.
func NewSignalManager() *SignalManager {
	return NewSignalManagerFrom(context.Background())
}

// NewSignalManagerFrom listens for signals on top of parent: the context is
// also cancelled when parent is.
func NewSignalManagerFrom(parent context.Context, signals ...os.Signal) *SignalManager {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sm := &SignalManager{parent: parent, signals: signals}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.ctx
}

// Interrupted reports whether a signal arrived.
func (sm *SignalManager) Interrupted() bool {
	return sm.Context().Err() != nil && sm.parent.Err() == nil
}

// Reset re-arms the signal listener.
// Should be called after a signal has been handled to capture later ones.
func (sm *SignalManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(sm.parent, sm.signals...)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly to see if a context cancellation follows an error.
// On Windows/PowerShell Ctrl+C causes an EOF on stdin slightly before the
// signal context is cancelled.
func (sm *SignalManager) CheckRace() {
	ctx := sm.Context()
	if ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
}
