// Package netconfig defines lightweight constants shared between host and client
// for network serialization and timing. It must have zero dependencies on any
// rendering library so the headless host binary stays small.
package netconfig

import "time"

// PacketType is the one-byte tag leading every frame on the wire.
type PacketType uint8

const (
	PacketPlayerSync PacketType = iota // Player snapshots (binary)
	PacketEnemySync                    // Enemy snapshots (binary)
	PacketGameEvent                    // Game event (structured)
	PacketCoinSync                     // Coin positions (structured)
	PacketBossSync                     // Boss state (structured)
	PacketGameState                    // Coarse game state summary (structured)
	PacketPing                         // Clock probe, client -> host
	PacketPong                         // Clock probe reply, host -> client
	packetTypeCount                    // Must be last
)

var packetNames = [packetTypeCount]string{
	PacketPlayerSync: "player-sync",
	PacketEnemySync:  "enemy-sync",
	PacketGameEvent:  "game-event",
	PacketCoinSync:   "coin-sync",
	PacketBossSync:   "boss-sync",
	PacketGameState:  "game-state",
	PacketPing:       "ping",
	PacketPong:       "pong",
}

func (t PacketType) String() string {
	if t.Valid() {
		return packetNames[t]
	}
	return "unknown"
}

// Valid reports whether t is one of the defined packet tags.
func (t PacketType) Valid() bool {
	return t < packetTypeCount
}

// Binary reports whether frames of this type use the compact snapshot codec.
func (t PacketType) Binary() bool {
	return t == PacketPlayerSync || t == PacketEnemySync
}

// Reliable reports whether frames of this type belong on an ordered, reliable
// channel when the transport offers one. High-frequency snapshots do not.
func (t PacketType) Reliable() bool {
	return t == PacketGameEvent || t == PacketGameState
}

// ProtocolVersion is written after the packet tag of every binary snapshot
// frame. Bump it whenever a field width or order changes.
const ProtocolVersion uint8 = 1

// Wire limits
const (
	MaxStringBytes = 255   // length prefixes are one byte
	MaxEntities    = 65535 // count prefix is two bytes
	MinCoord       = -32767
	MaxCoord       = 32767
)

// Interpolation and prediction
const (
	JitterCapacity      = 30
	SnapThreshold       = 200.0
	RenderDelay         = 100 * time.Millisecond
	PredictionDeadline  = 500 * time.Millisecond
	DeniedFlashDuration = 300 * time.Millisecond
	HitClaimInterval    = 250 * time.Millisecond
	PingInterval        = time.Second
	ClockSmoothing      = 0.2 // weight of the newest offset sample
)

// Host-side lag compensation and broadcast cadence
const (
	HistoryRetention       = time.Second
	MeleeAcceptRadius      = 70.0
	ProjectileAcceptRadius = 100.0
	FullSyncEvery          = 20 // broadcast ticks between forced full player syncs
	GameStateInterval      = time.Second
	ClaimWindow            = 64 // remembered claim ids per peer
)

// Millis converts a duration to the float64 millisecond timestamps used on the wire.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Now returns the wall clock as float64 milliseconds since the Unix epoch.
func Now() float64 {
	return float64(time.Now().UnixMicro()) / 1000
}
