package protocol

import "sync"

// Inbound is one raw frame as delivered by a transport callback, or a
// departure notice when Left is set.
type Inbound struct {
	Peer string
	Data []byte
	Left bool
}

// Inbox collects frames from transport goroutines so the tick loop can act on
// them at the next tick boundary. It is the only structure in the core touched
// from more than one goroutine.
type Inbox struct {
	mu      sync.Mutex
	pending []Inbound
	limit   int
	dropped int
}

// NewInbox returns an inbox holding at most limit undrained frames; further
// frames are dropped until the next Drain. limit <= 0 means unbounded.
func NewInbox(limit int) *Inbox {
	return &Inbox{limit: limit}
}

// Push queues a frame. It reports false when the frame was dropped.
func (in *Inbox) Push(peer string, data []byte) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.limit > 0 && len(in.pending) >= in.limit {
		in.dropped++
		return false
	}
	in.pending = append(in.pending, Inbound{Peer: peer, Data: data})
	return true
}

// Leave queues a departure notice for peer. Notices ignore the limit.
func (in *Inbox) Leave(peer string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending = append(in.pending, Inbound{Peer: peer, Left: true})
}

// Drain returns every queued frame in arrival order and empties the inbox.
// dst is reused as the next receive buffer when it has capacity.
func (in *Inbox) Drain(dst []Inbound) []Inbound {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.pending
	in.pending = dst[:0]
	return out
}

// Dropped returns the number of frames rejected for exceeding the limit.
func (in *Inbox) Dropped() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.dropped
}
