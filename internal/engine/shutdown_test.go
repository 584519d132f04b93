package engine

import (
	"context"
	"testing"
	"time"
)

func TestShutdownContextCancelsWithParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := ShutdownContext(parent)
	defer cancel()

	cancelParent()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for derived context to cancel with its parent")
	}
}

func TestShutdownContextCancelFuncStopsWatcher(t *testing.T) {
	ctx, cancel := ShutdownContext(context.Background())
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for context to cancel after calling cancel")
	}
}
