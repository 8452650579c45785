// Package lagcomp rewinds host entities to where they were when a client
// claims to have hit them.
package lagcomp

import (
	"sort"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

// Sample is one recorded position. TS is host time in milliseconds.
type Sample struct {
	TS   float64
	X, Y float64
}

// Ring is the short position log of one entity, ordered by timestamp.
type Ring struct {
	samples   []Sample
	retention float64
}

// NewRing returns a ring that keeps retentionMs of history on each Trim.
func NewRing(retentionMs float64) *Ring {
	return &Ring{retention: retentionMs}
}

// Record appends a sample. Out-of-order samples are inserted in place.
func (r *Ring) Record(ts, x, y float64) {
	s := Sample{TS: ts, X: x, Y: y}
	n := len(r.samples)
	if n == 0 || r.samples[n-1].TS <= ts {
		r.samples = append(r.samples, s)
		return
	}
	i := sort.Search(n, func(i int) bool { return r.samples[i].TS > ts })
	r.samples = append(r.samples, Sample{})
	copy(r.samples[i+1:], r.samples[i:])
	r.samples[i] = s
}

// Trim drops samples older than now minus the retention horizon.
func (r *Ring) Trim(now float64) {
	cutoff := now - r.retention
	i := sort.Search(len(r.samples), func(i int) bool { return r.samples[i].TS >= cutoff })
	if i == 0 {
		return
	}
	r.samples = append(r.samples[:0], r.samples[i:]...)
}

// At returns the position at target, clamped to the oldest and newest samples
// and linearly interpolated in between.
func (r *Ring) At(target float64) (x, y float64, ok bool) {
	n := len(r.samples)
	if n == 0 {
		return 0, 0, false
	}
	first, last := r.samples[0], r.samples[n-1]
	if target <= first.TS {
		return first.X, first.Y, true
	}
	if target >= last.TS {
		return last.X, last.Y, true
	}

	i := sort.Search(n, func(i int) bool { return r.samples[i].TS > target })
	prev, next := r.samples[i-1], r.samples[i]
	span := next.TS - prev.TS
	if span <= 0 {
		return prev.X, prev.Y, true
	}
	p := netcomponents.LerpNetPosition(
		netcomponents.NetPositionData{X: prev.X, Y: prev.Y},
		netcomponents.NetPositionData{X: next.X, Y: next.Y},
		(target-prev.TS)/span,
	)
	return p.X, p.Y, true
}

func (r *Ring) Len() int { return len(r.samples) }

// Samples returns a copy of the stored samples, oldest first.
func (r *Ring) Samples() []Sample {
	return append([]Sample(nil), r.samples...)
}

// Tracker keeps one Ring per entity id.
type Tracker struct {
	rings     map[string]*Ring
	retention float64
}

func NewTracker(retentionMs float64) *Tracker {
	if retentionMs <= 0 {
		retentionMs = netconfig.Millis(netconfig.HistoryRetention)
	}
	return &Tracker{rings: make(map[string]*Ring), retention: retentionMs}
}

// Record appends a sample to id's ring, creating it on first use.
func (t *Tracker) Record(id string, ts, x, y float64) {
	r, ok := t.rings[id]
	if !ok {
		r = NewRing(t.retention)
		t.rings[id] = r
	}
	r.Record(ts, x, y)
}

// TrimAll trims every ring and forgets entities left with no samples.
func (t *Tracker) TrimAll(now float64) {
	for id, r := range t.rings {
		r.Trim(now)
		if r.Len() == 0 {
			delete(t.rings, id)
		}
	}
}

// Forget drops id's history, e.g. on despawn.
func (t *Tracker) Forget(id string) {
	delete(t.rings, id)
}

// HistoricalPosition returns where id was at ts.
func (t *Tracker) HistoricalPosition(id string, ts float64) (x, y float64, ok bool) {
	r, found := t.rings[id]
	if !found {
		return 0, 0, false
	}
	return r.At(ts)
}

func (t *Tracker) Len() int { return len(t.rings) }
