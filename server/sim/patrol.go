// Package sim holds a minimal host-side enemy simulation: enemies walk a
// patrol leg and chase players that come close. It exists so a bare host has
// something to synchronise.
package sim

import (
	"fmt"
	"math"

	"github.com/automoto/kringsringen-sync/server/core"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	patrolLength  = 160.0
	patrolSeconds = 3.0
	aggroRadius   = 220.0
	chaseSpeed    = 90.0 // units per second
	enemyHealth   = 30
)

type enemy struct {
	id     string
	homeX  float64
	homeY  float64
	leg    *gween.Tween
	out    bool
	facing bool
	chased bool
}

// Patrol moves a fixed set of enemies. Dead enemies are not respawned.
type Patrol struct {
	enemies []*enemy
	last    float64
}

// NewPatrol spawns count enemies in a row starting at (x, y).
func NewPatrol(store *core.Store, count int, x, y float64) *Patrol {
	p := &Patrol{}
	for i := 0; i < count; i++ {
		e := &enemy{
			id:    fmt.Sprintf("enemy-%d", i+1),
			homeX: x + float64(i)*(patrolLength+40),
			homeY: y,
			out:   true,
		}
		e.leg = gween.New(float32(e.homeX), float32(e.homeX+patrolLength), patrolSeconds, ease.InOutQuad)
		store.Spawn(e.id, netcomponents.KindEnemy, "", e.homeX, e.homeY, enemyHealth)
		store.SetAppearance(e.id, netcomponents.NetAppearanceData{Anim: "walk"})
		p.enemies = append(p.enemies, e)
	}
	return p
}

// Step implements core.Simulation.
func (p *Patrol) Step(s *core.Server, now float64) {
	dt := 0.0
	if p.last > 0 {
		dt = (now - p.last) / 1000
	}
	p.last = now

	store := s.Store()
	alive := p.enemies[:0]
	for _, e := range p.enemies {
		x, y, ok := store.Position(e.id)
		if !ok {
			continue
		}
		alive = append(alive, e)

		anim := "walk"
		if tx, ty, found := nearestPlayer(s, store, x, y); found {
			e.facing = tx < x
			x, y = stepToward(x, y, tx, ty, chaseSpeed*dt)
			e.chased = true
			anim = "run"
		} else {
			if e.chased {
				// Walk back home from wherever the chase ended.
				e.chased, e.out = false, false
				e.leg = gween.New(float32(x), float32(e.homeX), patrolSeconds, ease.InOutQuad)
			}
			next, done := e.leg.Update(float32(dt))
			e.facing = float64(next) < x
			x = float64(next)
			if done {
				e.turn()
			}
		}

		store.SetPosition(e.id, x, y)
		store.SetAppearance(e.id, netcomponents.NetAppearanceData{Anim: anim, FlipX: e.facing})
	}
	p.enemies = alive
}

func (e *enemy) turn() {
	e.out = !e.out
	from, to := e.homeX+patrolLength, e.homeX
	if e.out {
		from, to = to, from
	}
	e.leg = gween.New(float32(from), float32(to), patrolSeconds, ease.InOutQuad)
}

func nearestPlayer(s *core.Server, store *core.Store, x, y float64) (float64, float64, bool) {
	best := math.Inf(1)
	var bx, by float64
	for _, id := range s.Nearby(x, y, aggroRadius) {
		if kind, _ := store.Kind(id); kind != netcomponents.KindPlayer || !store.Alive(id) {
			continue
		}
		px, py, _ := store.Position(id)
		if d := math.Hypot(px-x, py-y); d < best {
			best, bx, by = d, px, py
		}
	}
	return bx, by, !math.IsInf(best, 1)
}

func stepToward(x, y, tx, ty, dist float64) (float64, float64) {
	dx, dy := tx-x, ty-y
	d := math.Hypot(dx, dy)
	if d <= dist || d == 0 {
		return tx, ty
	}
	return x + dx/d*dist, y + dy/d*dist
}
