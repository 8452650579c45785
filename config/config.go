package config

import (
	"fmt"
	"time"

	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

// NetConfig contains the host's tunable sync settings. Wire-format constants
// live in shared/netconfig; everything here may differ between hosts.
type NetConfig struct {
	Port          uint `json:"port"`
	TickRate      int  `json:"tickRate"`      // Host simulation ticks per second
	BroadcastRate int  `json:"broadcastRate"` // Snapshot broadcasts per second

	// World extent covered by the spatial grids
	WorldMinX float64 `json:"worldMinX"`
	WorldMinY float64 `json:"worldMinY"`
	WorldMaxX float64 `json:"worldMaxX"`
	WorldMaxY float64 `json:"worldMaxY"`
	CellSize  int     `json:"cellSize"`

	// Lag compensation
	MeleeRadius      float64       `json:"meleeRadius"`
	ProjectileRadius float64       `json:"projectileRadius"`
	HistoryRetention time.Duration `json:"historyRetention"`

	FullSyncEvery int `json:"fullSyncEvery"` // Broadcasts between forced full player syncs
	InboxLimit    int `json:"inboxLimit"`    // Undrained frames kept per tick, 0 = unbounded
	FanOut        int `json:"fanOut"`        // Concurrent peer writes per broadcast

	StatsInterval time.Duration `json:"statsInterval"`
}

// Net is the active host configuration
var Net NetConfig

func init() {
	Net = Defaults()
}

// Defaults returns the stock configuration.
func Defaults() NetConfig {
	return NetConfig{
		Port:          7373,
		TickRate:      60,
		BroadcastRate: 20,

		WorldMinX: 0,
		WorldMinY: 0,
		WorldMaxX: 4096,
		WorldMaxY: 4096,
		CellSize:  128,

		MeleeRadius:      netconfig.MeleeAcceptRadius,
		ProjectileRadius: netconfig.ProjectileAcceptRadius,
		HistoryRetention: netconfig.HistoryRetention,

		FullSyncEvery: netconfig.FullSyncEvery,
		InboxLimit:    4096,
		FanOut:        8,

		StatsInterval: 30 * time.Second,
	}
}

// Validate reports the first setting the host cannot run with.
func (c NetConfig) Validate() error {
	switch {
	case c.TickRate <= 0:
		return fmt.Errorf("tick rate %d must be positive", c.TickRate)
	case c.BroadcastRate <= 0 || c.BroadcastRate > c.TickRate:
		return fmt.Errorf("broadcast rate %d must be between 1 and the tick rate %d", c.BroadcastRate, c.TickRate)
	case c.WorldMaxX <= c.WorldMinX || c.WorldMaxY <= c.WorldMinY:
		return fmt.Errorf("world bounds (%g,%g)-(%g,%g) are empty", c.WorldMinX, c.WorldMinY, c.WorldMaxX, c.WorldMaxY)
	case c.WorldMinX < netconfig.MinCoord || c.WorldMinY < netconfig.MinCoord ||
		c.WorldMaxX > netconfig.MaxCoord || c.WorldMaxY > netconfig.MaxCoord:
		return fmt.Errorf("world bounds exceed the wire coordinate range ±%d", netconfig.MaxCoord)
	case c.CellSize <= 0:
		return fmt.Errorf("cell size %d must be positive", c.CellSize)
	case c.MeleeRadius < 0 || c.ProjectileRadius < 0:
		return fmt.Errorf("acceptance radii must not be negative")
	case c.HistoryRetention <= 0:
		return fmt.Errorf("history retention %s must be positive", c.HistoryRetention)
	case c.FullSyncEvery <= 0:
		return fmt.Errorf("full sync interval %d must be positive", c.FullSyncEvery)
	case c.FanOut <= 0:
		return fmt.Errorf("fan-out %d must be positive", c.FanOut)
	}
	return nil
}

// TickInterval is the wall-clock time between host ticks.
func (c NetConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// BroadcastEvery is the number of ticks between snapshot broadcasts.
func (c NetConfig) BroadcastEvery() int {
	n := c.TickRate / c.BroadcastRate
	if n < 1 {
		return 1
	}
	return n
}
