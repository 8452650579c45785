package sim

import (
	"testing"

	"github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/server/core"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/protocol"
)

type discard struct{}

func (discard) Send(string, []byte, bool) error { return nil }

func (discard) Broadcast([]byte, bool) error { return nil }

func newServer() *core.Server {
	return core.NewServer(config.Defaults(), discard{}, protocol.NewInbox(0))
}

func TestPatrolWalksLeg(t *testing.T) {
	s := newServer()
	p := NewPatrol(s.Store(), 2, 200, 200)

	p.Step(s, 1000)
	p.Step(s, 2500) // halfway through a 3 s in/out quad leg

	x, y, _ := s.Store().Position("enemy-1")
	if x != 280 || y != 200 {
		t.Errorf("enemy-1 at (%v, %v), want (280, 200)", x, y)
	}
	if x, _, _ := s.Store().Position("enemy-2"); x != 480 {
		t.Errorf("enemy-2 x = %v, want 480", x)
	}
}

func TestPatrolChasesNearbyPlayer(t *testing.T) {
	s := newServer()
	p := NewPatrol(s.Store(), 1, 200, 200)
	s.Store().Spawn("p1", netcomponents.KindPlayer, "p1", 300, 200, 100)
	s.Tick(1000)

	p.Step(s, 1000)
	p.Step(s, 1500)

	x, y, _ := s.Store().Position("enemy-1")
	if x != 245 || y != 200 {
		t.Errorf("enemy-1 at (%v, %v), want (245, 200)", x, y)
	}
	if a, _ := s.Store().Appearance("enemy-1"); a.Anim != "run" || a.FlipX {
		t.Errorf("appearance = %+v", a)
	}
}

func TestPatrolIgnoresDeadPlayers(t *testing.T) {
	s := newServer()
	p := NewPatrol(s.Store(), 1, 200, 200)
	s.Store().Spawn("p1", netcomponents.KindPlayer, "p1", 300, 200, 0)
	s.Tick(1000)

	p.Step(s, 1000)
	if a, _ := s.Store().Appearance("enemy-1"); a.Anim != "walk" {
		t.Errorf("anim = %q, want walk", a.Anim)
	}
}

func TestPatrolForgetsDespawnedEnemies(t *testing.T) {
	s := newServer()
	p := NewPatrol(s.Store(), 3, 200, 200)
	s.Store().Despawn("enemy-2")

	p.Step(s, 1000)
	if len(p.enemies) != 2 {
		t.Errorf("tracking %d enemies, want 2", len(p.enemies))
	}
	if s.Store().Has("enemy-2") {
		t.Error("despawned enemy came back")
	}
}
