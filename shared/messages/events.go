package messages

// EventKind names a game event carried in a game-event frame.
type EventKind string

const (
	EventHitRequest           EventKind = "hit_request"
	EventProjectileHitRequest EventKind = "projectile_hit_request"
	EventAttack               EventKind = "attack"
	EventDeath                EventKind = "death"
	EventPartyDead            EventKind = "party_dead"
	EventReviveRequest        EventKind = "revive_request"
	EventPlayerRevived        EventKind = "player_revived"
	EventRestartGame          EventKind = "restart_game"
	EventPlayerLeft           EventKind = "player_left"
)

// IsHitClaim reports whether events of this kind carry a client hit-claim that
// only the host may act on.
func (k EventKind) IsHitClaim() bool {
	return k == EventHitRequest || k == EventProjectileHitRequest
}

// GameEvent is the payload of a game-event frame. Exactly one of the optional
// fields is set, matching Kind; party_dead and restart_game carry none.
// Revive and player_left events carry Target.
type GameEvent struct {
	Kind   EventKind    `codec:"k"`
	Claim  *HitClaim    `codec:"hc,omitempty"`
	Attack *AttackEvent `codec:"at,omitempty"`
	Death  *DeathEvent  `codec:"de,omitempty"`
	Target *TargetRef   `codec:"tg,omitempty"`
}

// HitClaim is sent by a client that believes its attack landed on TargetID.
// Timestamp is in host time as estimated by the client clock sync.
type HitClaim struct {
	ClaimID    uint32  `codec:"id"` // Per-client sequence, 0 = untracked
	TargetID   string  `codec:"t"`
	HitX       float64 `codec:"x"`
	HitY       float64 `codec:"y"`
	Timestamp  float64 `codec:"ts"`
	Damage     int     `codec:"d"`
	Projectile string  `codec:"p,omitempty"` // Empty for melee, else the projectile kind
}

// AttackEvent lets peers replay a remote player's attack animation/projectile.
type AttackEvent struct {
	PlayerID string  `codec:"id"`
	Weapon   string  `codec:"w"`
	Angle    float64 `codec:"a"`
	Anim     string  `codec:"an"`
}

// DeathEvent is broadcast by the host when an entity's health reaches zero.
type DeathEvent struct {
	EntityID string `codec:"id"`
	KillerID string `codec:"k,omitempty"`
}

// TargetRef names the player a revive or leave event refers to.
type TargetRef struct {
	TargetID string `codec:"t"`
}

// Kind returns "projectile" or "melee" for logging.
func (c HitClaim) Kind() string {
	if c.Projectile != "" {
		return "projectile"
	}
	return "melee"
}
