package network

import (
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type Phase int

const (
	Confirmed Phase = iota
	PredictedPending
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Confirmed:
		return "confirmed"
	case PredictedPending:
		return "pending"
	case RolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// Transition reports a phase change. From == To means nothing happened.
type Transition struct {
	From, To Phase
}

func (t Transition) Changed() bool { return t.From != t.To }

// Prediction tracks the locally predicted health of one remote entity until
// the host confirms it or the deadline passes. Times are milliseconds.
type Prediction struct {
	phase     Phase
	confirmed int // last authoritative health
	displayed int
	deadline  float64
	deadUntil float64 // 0 when not predicted dead

	flash      *gween.Tween
	flashLevel float32
	lastUpdate float64
}

func NewPrediction(health int) *Prediction {
	return &Prediction{confirmed: health, displayed: health}
}

// PredictDamage applies dmg to the displayed health right away. Lethal damage
// hides the entity and disables its collider until confirmed or rolled back.
// Every call re-arms the deadline.
func (p *Prediction) PredictDamage(now float64, dmg int) {
	p.phase = PredictedPending
	p.displayed -= dmg
	p.deadline = now + netconfig.Millis(netconfig.PredictionDeadline)
	if p.displayed <= 0 {
		p.deadUntil = p.deadline
	}
}

// Observe records an authoritative health value. While pending, a value at or
// below the prediction confirms it.
func (p *Prediction) Observe(health int) Transition {
	p.confirmed = health
	from := p.phase

	switch p.phase {
	case PredictedPending:
		if health > p.displayed {
			return Transition{from, from}
		}
		p.settle()
		return Transition{from, Confirmed}
	default:
		p.displayed = health
	}
	return Transition{from, from}
}

// Update checks the deadline and advances the denied flash. A rollback lasts
// one update; the following update returns to Confirmed.
func (p *Prediction) Update(now float64) Transition {
	if p.flash != nil && p.lastUpdate > 0 {
		level, done := p.flash.Update(float32((now - p.lastUpdate) / 1000))
		p.flashLevel = level
		if done {
			p.flash = nil
			p.flashLevel = 0
		}
	}
	p.lastUpdate = now

	from := p.phase
	switch p.phase {
	case PredictedPending:
		if now < p.deadline {
			break
		}
		p.settle()
		p.phase = RolledBack
		p.flash = gween.New(1, 0, float32(netconfig.DeniedFlashDuration.Seconds()), ease.Linear)
		p.flashLevel = 1
	case RolledBack:
		p.phase = Confirmed
	}
	return Transition{from, p.phase}
}

// settle discards the prediction in favour of the last authoritative health.
func (p *Prediction) settle() {
	p.phase = Confirmed
	p.displayed = p.confirmed
	p.deadline = 0
	p.deadUntil = 0
}

func (p *Prediction) Phase() Phase { return p.phase }

// Health is the value to display: predicted while pending, else authoritative.
func (p *Prediction) Health() int { return p.displayed }

func (p *Prediction) ConfirmedHealth() int { return p.confirmed }

// Hidden reports whether the entity is predicted dead and should not be drawn.
func (p *Prediction) Hidden() bool { return p.deadUntil != 0 }

func (p *Prediction) ColliderEnabled() bool { return p.deadUntil == 0 }

// DeadUntil is the locally-dead deadline, 0 when not predicted dead.
func (p *Prediction) DeadUntil() float64 { return p.deadUntil }

// DeniedFlash is the strength of the rollback cue, fading from 1 to 0.
func (p *Prediction) DeniedFlash() float32 { return p.flashLevel }
