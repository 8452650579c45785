// Package bot drives a headless client through the sync session: it chases
// the nearest visible enemy and claims hits once in range. Bots are useful
// for load testing a host and for exercising lag compensation end to end.
package bot

import (
	"log"
	"math"
	"math/rand"

	cfg "github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/network"
	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

type State int

const (
	StateIdle State = iota
	StateChase
	StateAttack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChase:
		return "chase"
	case StateAttack:
		return "attack"
	}
	return "unknown"
}

const (
	weapon    = "sword"
	maxHealth = 100
)

type Bot struct {
	session *network.Session
	tuning  cfg.BotDifficultyConfig
	name    string
	rng     *rand.Rand

	x, y   float64
	facing bool
	state  State
	target string

	inRangeSince float64
	last         float64

	claims int
	kills  int
}

// New creates a bot standing at (x, y). seed fixes its aim jitter so runs
// can be replayed.
func New(session *network.Session, name string, difficulty cfg.BotDifficulty, x, y float64, seed int64) *Bot {
	tuning, ok := cfg.Bot.Difficulties[difficulty]
	if !ok {
		tuning = cfg.Bot.Difficulties[cfg.BotDifficultyNormal]
	}
	return &Bot{
		session: session,
		tuning:  tuning,
		name:    name,
		rng:     rand.New(rand.NewSource(seed)),
		x:       x,
		y:       y,
	}
}

// Step runs one client frame at local time now (milliseconds).
func (b *Bot) Step(now float64) {
	b.session.Tick(now)

	dt := 0.0
	if b.last > 0 {
		dt = (now - b.last) / 1000
	}
	b.last = now

	b.readEvents()

	id, view, dist := b.nearestEnemy(now)
	switch {
	case id == "" || dist > b.tuning.ChaseRange:
		b.state, b.target = StateIdle, ""
	case dist <= b.tuning.AttackRange:
		b.state, b.target = StateAttack, id
	default:
		b.state, b.target = StateChase, id
	}

	if b.state != StateAttack {
		b.inRangeSince = 0
	}

	switch b.state {
	case StateChase:
		b.moveToward(view.X, view.Y, b.tuning.Speed*dt)
	case StateAttack:
		b.attack(now, view)
	}

	b.session.SendLocalPlayer(now, netcomponents.PlayerSnapshot{
		X:      netcomponents.ClampCoord(b.x),
		Y:      netcomponents.ClampCoord(b.y),
		Health: maxHealth,
		Anim:   b.anim(),
		FlipX:  b.facing,
		Weapon: weapon,
		Name:   b.name,
	})
}

func (b *Bot) readEvents() {
	for _, ev := range b.session.DrainEvents() {
		if ev.Kind != messages.EventDeath || ev.Death == nil {
			continue
		}
		if ev.Death.KillerID == b.session.Self() {
			b.kills++
			log.Printf("[bot] %s killed %s", b.name, ev.Death.EntityID)
		}
		if ev.Death.EntityID == b.target {
			b.target = ""
		}
	}
}

// nearestEnemy returns the closest enemy that is drawn and still collidable.
func (b *Bot) nearestEnemy(now float64) (string, network.EnemyView, float64) {
	var (
		bestID   string
		bestView network.EnemyView
	)
	best := math.Inf(1)
	for _, id := range b.session.EnemyIDs() {
		view, ok := b.session.Enemy(id, now)
		if !ok || view.Hidden || !view.Collidable {
			continue
		}
		d := math.Hypot(view.X-b.x, view.Y-b.y)
		if d < best || (d == best && id < bestID) {
			best, bestID, bestView = d, id, view
		}
	}
	return bestID, bestView, best
}

func (b *Bot) moveToward(tx, ty, step float64) {
	dx, dy := tx-b.x, ty-b.y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return
	}
	b.facing = dx < 0
	if d <= step {
		b.x, b.y = tx, ty
		return
	}
	b.x += dx / d * step
	b.y += dy / d * step
}

func (b *Bot) attack(now float64, view network.EnemyView) {
	b.facing = view.X < b.x
	if b.inRangeSince == 0 {
		b.inRangeSince = now
	}
	if now-b.inRangeSince < netconfig.Millis(b.tuning.ReactionDelay) {
		return
	}

	claim := messages.HitClaim{
		TargetID: b.target,
		HitX:     view.X + b.aimOffset(),
		HitY:     view.Y + b.aimOffset(),
		Damage:   b.tuning.Damage,
	}
	if !b.session.ClaimHit(now, claim) {
		return
	}
	b.claims++
	b.session.SendEvent(now, messages.GameEvent{
		Kind: messages.EventAttack,
		Attack: &messages.AttackEvent{
			PlayerID: b.session.Self(),
			Weapon:   weapon,
			Angle:    math.Atan2(view.Y-b.y, view.X-b.x),
			Anim:     "attack",
		},
	})
}

func (b *Bot) aimOffset() float64 {
	if b.tuning.AimError == 0 {
		return 0
	}
	return (b.rng.Float64()*2 - 1) * b.tuning.AimError
}

func (b *Bot) anim() string {
	switch b.state {
	case StateChase:
		return "run"
	case StateAttack:
		return "attack"
	}
	return "idle"
}

func (b *Bot) State() State { return b.state }

func (b *Bot) Position() (float64, float64) { return b.x, b.y }

// Claims returns the number of hit claims sent.
func (b *Bot) Claims() int { return b.claims }

// Kills returns the number of host-confirmed kills credited to this bot.
func (b *Bot) Kills() int { return b.kills }
