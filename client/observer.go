package client

import (
	"sync"
	"time"
)

// Status is a coarse purchase-flow state, suitable for driving UI copy.
type Status string

const (
	StatusDisconnected      Status = "disconnected"
	StatusConnected         Status = "connected"
	StatusPreparing         Status = "preparing"
	StatusAwaitingSignature Status = "awaiting_signature"
	StatusSubmitted         Status = "submitted"
	StatusConfirmed         Status = "confirmed"
	StatusFailed            Status = "failed"
)

// StatusListener receives state transitions. The detail string carries
// context for the state, e.g. a wallet address or transaction signature.
type StatusListener func(status Status, detail string)

// StatusNotifier fans state transitions out to listeners with debouncing:
// rapid successive transitions within the settle delay collapse to the most
// recent one, so listeners see where the flow settled rather than every
// intermediate hop. A zero settle delay delivers synchronously.
type StatusNotifier struct {
	mu        sync.Mutex
	listeners []StatusListener
	settle    time.Duration
	timer     *time.Timer
	pending   Status
	detail    string
}

// NewStatusNotifier creates a notifier with the given settle delay.
func NewStatusNotifier(settle time.Duration) *StatusNotifier {
	return &StatusNotifier{settle: settle}
}

// Subscribe registers a listener for subsequent transitions.
func (n *StatusNotifier) Subscribe(l StatusListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify records a transition. Delivery happens after the settle delay
// unless a newer transition supersedes it first.
func (n *StatusNotifier) Notify(status Status, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.settle <= 0 {
		for _, l := range n.listeners {
			l(status, detail)
		}
		return
	}

	n.pending = status
	n.detail = detail
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.settle, n.flush)
}

func (n *StatusNotifier) flush() {
	n.mu.Lock()
	status, detail := n.pending, n.detail
	listeners := make([]StatusListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, l := range listeners {
		l(status, detail)
	}
}
