package lagcomp

import (
	"log"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

// TargetStore is the slice of the authoritative store the validator needs.
type TargetStore interface {
	// Alive reports whether id exists and has health left.
	Alive(id string) bool
	// ApplyDamage subtracts dmg from id's health and returns what remains.
	ApplyDamage(id string, dmg int, source string) (remaining int, ok bool)
}

// HistoryProvider rewinds an entity to an earlier host time.
type HistoryProvider interface {
	HistoricalPosition(id string, ts float64) (x, y float64, ok bool)
}

// SpatialIndex answers proximity queries. The validator owns a scratch index
// holding only rewound positions; it must not be the live world grid.
type SpatialIndex interface {
	Upsert(id string, x, y float64)
	Remove(id string)
	Within(id string, x, y, radius float64) bool
}

// DelayProvider returns the estimated one-way delay, in milliseconds, of
// frames from peer. It is subtracted from claim timestamps before rewinding.
type DelayProvider interface {
	OneWayDelay(peer string) float64
}

// NoDelay rewinds to the claimed timestamp unchanged.
type NoDelay struct{}

func (NoDelay) OneWayDelay(string) float64 { return 0 }

type Verdict int

const (
	Accepted Verdict = iota
	RejectedUnknownTarget
	RejectedNoHistory
	RejectedOutOfRange
	RejectedDuplicate
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedUnknownTarget:
		return "unknown-target"
	case RejectedNoHistory:
		return "no-history"
	case RejectedOutOfRange:
		return "out-of-range"
	case RejectedDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Result describes one validated claim. Remaining is the target's health
// after damage and is only meaningful when Verdict is Accepted.
type Result struct {
	Verdict    Verdict
	RewindX    float64
	RewindY    float64
	Remaining  int
	RewoundAt  float64
	Projectile bool
}

// Validator accepts or rejects client hit-claims against rewound positions.
type Validator struct {
	store   TargetStore
	history HistoryProvider
	index   SpatialIndex
	delay   DelayProvider

	MeleeRadius      float64
	ProjectileRadius float64

	windowSize int
	seen       map[string]*claimWindow
}

// NewValidator wires a validator. A nil delay means NoDelay.
func NewValidator(store TargetStore, history HistoryProvider, index SpatialIndex, delay DelayProvider) *Validator {
	if delay == nil {
		delay = NoDelay{}
	}
	return &Validator{
		store:            store,
		history:          history,
		index:            index,
		delay:            delay,
		MeleeRadius:      netconfig.MeleeAcceptRadius,
		ProjectileRadius: netconfig.ProjectileAcceptRadius,
		windowSize:       netconfig.ClaimWindow,
		seen:             make(map[string]*claimWindow),
	}
}

// Validate judges claim from peer and applies damage when it is accepted.
// Rejections are logged here and never reported back to the sender.
func (v *Validator) Validate(peer string, claim messages.HitClaim) Result {
	res := Result{Projectile: claim.Projectile != ""}

	if claim.ClaimID != 0 {
		w := v.window(peer)
		if w.contains(claim.ClaimID) {
			res.Verdict = RejectedDuplicate
			return v.reject(peer, claim, res)
		}
		w.add(claim.ClaimID)
	}

	if !v.store.Alive(claim.TargetID) {
		res.Verdict = RejectedUnknownTarget
		return v.reject(peer, claim, res)
	}

	res.RewoundAt = claim.Timestamp - v.delay.OneWayDelay(peer)
	x, y, ok := v.history.HistoricalPosition(claim.TargetID, res.RewoundAt)
	if !ok {
		res.Verdict = RejectedNoHistory
		return v.reject(peer, claim, res)
	}
	res.RewindX, res.RewindY = x, y

	radius := v.MeleeRadius
	if res.Projectile {
		radius = v.ProjectileRadius
	}
	v.index.Upsert(claim.TargetID, x, y)
	hit := v.index.Within(claim.TargetID, claim.HitX, claim.HitY, radius)
	v.index.Remove(claim.TargetID)
	if !hit {
		res.Verdict = RejectedOutOfRange
		return v.reject(peer, claim, res)
	}

	remaining, ok := v.store.ApplyDamage(claim.TargetID, claim.Damage, peer)
	if !ok {
		res.Verdict = RejectedUnknownTarget
		return v.reject(peer, claim, res)
	}
	res.Verdict = Accepted
	res.Remaining = remaining
	return res
}

// ForgetPeer drops the duplicate window of a disconnected peer.
func (v *Validator) ForgetPeer(peer string) {
	delete(v.seen, peer)
}

func (v *Validator) reject(peer string, claim messages.HitClaim, res Result) Result {
	log.Printf("[lagcomp] %s claim %d from %s on %q rejected: %s (hit %.0f,%.0f rewind %.0f,%.0f @%.0f)",
		claim.Kind(), claim.ClaimID, peer, claim.TargetID, res.Verdict,
		claim.HitX, claim.HitY, res.RewindX, res.RewindY, res.RewoundAt)
	return res
}

func (v *Validator) window(peer string) *claimWindow {
	w, ok := v.seen[peer]
	if !ok {
		w = newClaimWindow(v.windowSize)
		v.seen[peer] = w
	}
	return w
}

// claimWindow remembers the most recent claim ids of one peer.
type claimWindow struct {
	ids  []uint32
	next int
	set  map[uint32]struct{}
}

func newClaimWindow(size int) *claimWindow {
	if size < 1 {
		size = 1
	}
	return &claimWindow{ids: make([]uint32, 0, size), set: make(map[uint32]struct{}, size)}
}

func (w *claimWindow) contains(id uint32) bool {
	_, ok := w.set[id]
	return ok
}

func (w *claimWindow) add(id uint32) {
	if len(w.ids) < cap(w.ids) {
		w.ids = append(w.ids, id)
	} else {
		delete(w.set, w.ids[w.next])
		w.ids[w.next] = id
		w.next = (w.next + 1) % len(w.ids)
	}
	w.set[id] = struct{}{}
}
