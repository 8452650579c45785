package core

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

// Simulation advances host-owned game state by one tick, writing through the
// server's Store. The sync core calls it before Server.Tick.
type Simulation interface {
	Step(s *Server, now float64)
}

type GameLoop struct {
	server        *Server
	sim           Simulation
	tickRate      int
	statsInterval time.Duration
	running       atomic.Bool
	stopChan      chan struct{}
}

func NewGameLoop(server *Server, sim Simulation, tickRate int, statsInterval time.Duration) *GameLoop {
	return &GameLoop{
		server:        server,
		sim:           sim,
		tickRate:      tickRate,
		statsInterval: statsInterval,
		stopChan:      make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	g.running.Store(true)
	defer g.running.Store(false)

	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	var statsC <-chan time.Time
	if g.statsInterval > 0 {
		statsTicker := time.NewTicker(g.statsInterval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}
	started := time.Now()

	log.Printf("[host] game loop started at %d ticks/second", g.tickRate)

	for {
		select {
		case <-g.stopChan:
			log.Println("[host] game loop stopped")
			return
		case <-ticker.C:
			g.tick(netconfig.Now())
		case <-statsC:
			store := g.server.Store()
			log.Printf("[host] %s", g.server.Stats().Summary(time.Since(started),
				len(store.IDs(netcomponents.KindPlayer)), store.Len()))
		}
	}
}

// Running reports whether Run is currently ticking.
func (g *GameLoop) Running() bool {
	return g.running.Load()
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

func (g *GameLoop) tick(now float64) {
	if g.sim != nil {
		g.sim.Step(g.server, now)
	}
	g.server.Tick(now)
}
