package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/server/core"
	"github.com/automoto/kringsringen-sync/server/sim"
	"github.com/automoto/kringsringen-sync/shared/protocol"
)

func main() {
	// Both log their own failures; the host runs on defaults without them.
	if err := config.InitPersistence("kringsringen-host"); err == nil {
		_ = config.LoadOverrides()
	}

	cfg := &config.Net
	flag.UintVar(&cfg.Port, "port", cfg.Port, "Listen port")
	flag.IntVar(&cfg.TickRate, "tickrate", cfg.TickRate, "Host ticks per second")
	flag.IntVar(&cfg.BroadcastRate, "broadcastrate", cfg.BroadcastRate, "Snapshot broadcasts per second")
	flag.Float64Var(&cfg.MeleeRadius, "melee-radius", cfg.MeleeRadius, "Melee hit acceptance radius")
	flag.Float64Var(&cfg.ProjectileRadius, "projectile-radius", cfg.ProjectileRadius, "Projectile hit acceptance radius")
	flag.DurationVar(&cfg.HistoryRetention, "history", cfg.HistoryRetention, "Position history kept for lag compensation")
	flag.DurationVar(&cfg.StatsInterval, "stats", cfg.StatsInterval, "Traffic summary interval (0 disables)")
	enemies := flag.Int("enemies", 4, "Patrolling enemies to spawn")
	save := flag.Bool("save", false, "Save the effective settings as overrides and exit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[config] %v", err)
	}

	if *save {
		if err := config.SaveOverrides(); err != nil {
			log.Fatalf("[config] save: %v", err)
		}
		log.Println("[config] overrides saved")
		return
	}

	inbox := protocol.NewInbox(cfg.InboxLimit)
	transport := core.NewWsTransport(inbox, cfg.FanOut)
	server := core.NewServer(*cfg, transport, inbox)
	patrol := sim.NewPatrol(server.Store(), *enemies, cfg.WorldMinX+200, cfg.WorldMinY+200)
	loop := core.NewGameLoop(server, patrol, cfg.TickRate, cfg.StatsInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down host...")
		loop.Stop()
		os.Exit(0)
	}()

	go loop.Run()

	log.Printf("Starting Kringsringen host on port %d (tick rate: %d/s, broadcast: %d/s)",
		cfg.Port, cfg.TickRate, cfg.BroadcastRate)
	if err := transport.Start(cfg.Port); err != nil {
		log.Fatalf("Host error: %v", err)
	}
}
