package network

import (
	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

// ClockSync estimates the host clock from ping/pong pairs, smoothing the
// offset with an exponential moving average.
type ClockSync struct {
	offset float64
	rtt    float64
	synced bool
}

// OnPong folds one reply into the estimate. now is the local receive time.
func (c *ClockSync) OnPong(p messages.Pong, now float64) {
	rtt := now - p.ClientTime
	if rtt < 0 {
		return
	}
	sample := p.ServerTime - (p.ClientTime + rtt/2)
	if !c.synced {
		c.offset, c.rtt, c.synced = sample, rtt, true
		return
	}
	a := netconfig.ClockSmoothing
	c.offset = c.offset*(1-a) + sample*a
	c.rtt = c.rtt*(1-a) + rtt*a
}

// HostTime converts local time to estimated host time.
func (c *ClockSync) HostTime(now float64) float64 { return now + c.offset }

func (c *ClockSync) Offset() float64 { return c.offset }

func (c *ClockSync) RTT() float64 { return c.rtt }

func (c *ClockSync) Synced() bool { return c.synced }
