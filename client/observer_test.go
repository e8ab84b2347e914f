package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNotifier_Synchronous(t *testing.T) {
	n := NewStatusNotifier(0)

	var got []Status
	n.Subscribe(func(status Status, detail string) {
		got = append(got, status)
	})

	n.Notify(StatusConnected, "")
	n.Notify(StatusPreparing, "")
	n.Notify(StatusConfirmed, "sig")

	assert.Equal(t, []Status{StatusConnected, StatusPreparing, StatusConfirmed}, got)
}

func TestStatusNotifier_DebouncesRapidTransitions(t *testing.T) {
	n := NewStatusNotifier(30 * time.Millisecond)

	var (
		mu  sync.Mutex
		got []Status
	)
	done := make(chan struct{}, 4)
	n.Subscribe(func(status Status, detail string) {
		mu.Lock()
		got = append(got, status)
		mu.Unlock()
		done <- struct{}{}
	})

	// Rapid-fire transitions within the settle window collapse to the last.
	n.Notify(StatusPreparing, "")
	n.Notify(StatusAwaitingSignature, "")
	n.Notify(StatusSubmitted, "sig")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, StatusSubmitted, got[0])
}

func TestStatusNotifier_SeparatedTransitionsAllDeliver(t *testing.T) {
	n := NewStatusNotifier(10 * time.Millisecond)

	var (
		mu  sync.Mutex
		got []Status
	)
	done := make(chan struct{}, 4)
	n.Subscribe(func(status Status, detail string) {
		mu.Lock()
		got = append(got, status)
		mu.Unlock()
		done <- struct{}{}
	})

	n.Notify(StatusPreparing, "")
	<-done
	n.Notify(StatusConfirmed, "sig")
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusPreparing, StatusConfirmed}, got)
}

func TestStatusNotifier_NoListeners(t *testing.T) {
	n := NewStatusNotifier(0)
	assert.NotPanics(t, func() {
		n.Notify(StatusFailed, "boom")
	})
}

func TestStatusNotifier_DetailPassedThrough(t *testing.T) {
	n := NewStatusNotifier(0)

	var gotDetail string
	n.Subscribe(func(status Status, detail string) {
		gotDetail = detail
	})

	n.Notify(StatusSubmitted, "abc123")
	assert.Equal(t, "abc123", gotDetail)
}
