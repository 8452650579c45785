package netcomponents

// EnemySnapshot is the per-broadcast visible state of one enemy.
type EnemySnapshot struct {
	ID     string
	X, Y   int
	Health int
	Anim   string
	FlipX  bool
}

// PlayerSnapshot is the per-broadcast visible state of one player.
type PlayerSnapshot struct {
	ID     string
	X, Y   int
	Health int
	Anim   string
	FlipX  bool
	Weapon string
	Name   string
}

// Snapshot is implemented by both snapshot kinds so buffering and smoothing
// code can stay generic.
type Snapshot interface {
	EntityID() string
	Position() (x, y float64)
	HP() int
}

func (s EnemySnapshot) EntityID() string { return s.ID }

func (s EnemySnapshot) Position() (float64, float64) { return float64(s.X), float64(s.Y) }

func (s EnemySnapshot) HP() int { return s.Health }

func (s PlayerSnapshot) EntityID() string { return s.ID }

func (s PlayerSnapshot) Position() (float64, float64) { return float64(s.X), float64(s.Y) }

func (s PlayerSnapshot) HP() int { return s.Health }

// SameState reports whether two player snapshots carry identical visible state.
// The host uses it to skip unchanged players between full syncs.
func (s PlayerSnapshot) SameState(o PlayerSnapshot) bool {
	return s == o
}
