package network

import (
	"log"
	"math"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
)

// Placement is where to draw an entity this frame. State supplies the discrete
// fields (animation, facing, health) from the nearer endpoint.
type Placement[T netcomponents.Snapshot] struct {
	X, Y    float64
	State   T
	Snapped bool
}

// Interpolate places an entity between the sampled endpoints. A jump larger
// than threshold on either axis is a teleport or desync and snaps to Next.
func Interpolate[T netcomponents.Snapshot](s Sample[T], threshold float64) Placement[T] {
	px, py := s.Prev.State.Position()
	nx, ny := s.Next.State.Position()

	if math.Abs(nx-px) > threshold || math.Abs(ny-py) > threshold {
		log.Printf("[client] %s jumped (%.0f,%.0f) -> (%.0f,%.0f), snapping",
			s.Next.State.EntityID(), px, py, nx, ny)
		return Placement[T]{X: nx, Y: ny, State: s.Next.State, Snapped: true}
	}

	pos := netcomponents.LerpNetPosition(
		netcomponents.NetPositionData{X: px, Y: py},
		netcomponents.NetPositionData{X: nx, Y: ny},
		s.Factor,
	)
	state := s.Prev.State
	if s.Factor > 0.5 {
		state = s.Next.State
	}
	return Placement[T]{X: pos.X, Y: pos.Y, State: state}
}
