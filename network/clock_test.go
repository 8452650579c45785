package network

import (
	"math"
	"testing"

	"github.com/automoto/kringsringen-sync/shared/messages"
)

func TestClockSync(t *testing.T) {
	var c ClockSync
	if c.Synced() {
		t.Fatalf("zero clock reports synced")
	}

	// Sent at 1000, host stamped 5050, received at 1100: rtt 100, offset 4000.
	c.OnPong(messages.Pong{ClientTime: 1000, ServerTime: 5050}, 1100)
	if !c.Synced() || c.Offset() != 4000 || c.RTT() != 100 {
		t.Fatalf("first pong: offset=%v rtt=%v", c.Offset(), c.RTT())
	}
	if got := c.HostTime(2000); got != 6000 {
		t.Fatalf("HostTime(2000) = %v, want 6000", got)
	}

	// A later sample at offset 5000 moves the estimate a fifth of the way.
	c.OnPong(messages.Pong{ClientTime: 2000, ServerTime: 7050}, 2100)
	if math.Abs(c.Offset()-4200) > 1e-9 {
		t.Fatalf("smoothed offset = %v, want 4200", c.Offset())
	}

	c.OnPong(messages.Pong{ClientTime: 3000, ServerTime: 0}, 2000)
	if math.Abs(c.Offset()-4200) > 1e-9 {
		t.Fatalf("pong from the future changed the offset to %v", c.Offset())
	}
}
