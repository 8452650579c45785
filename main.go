package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/kringsringen-sync/bot"
	"github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/network"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/automoto/kringsringen-sync/shared/protocol"
)

// A headless client: one bot per process, since the websocket router keeps
// its handlers globally.
func main() {
	host := flag.String("host", "localhost:7373", "Host address")
	name := flag.String("name", "Bot", "Player name")
	difficulty := flag.String("difficulty", "normal", "Bot difficulty: easy, normal or hard")
	fps := flag.Int("fps", 60, "Client frames per second")
	seed := flag.Int64("seed", 42, "Aim jitter seed")
	flag.Parse()

	inbox := protocol.NewInbox(config.Defaults().InboxLimit)
	client := network.NewClient(inbox)
	session := network.NewSession(*name, client, inbox)
	b := bot.New(session, *name, config.ParseBotDifficulty(*difficulty), 300, 300, *seed)

	client.Connect(*host)
	defer client.Disconnect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()

	log.Printf("Bot %q (%s) connecting to %s", *name, *difficulty, *host)
	for {
		select {
		case <-sigChan:
			log.Printf("Bot %q leaving: %d claims, %d kills", *name, b.Claims(), b.Kills())
			return
		case <-ticker.C:
			switch client.State() {
			case network.StateConnected:
				b.Step(netconfig.Now())
			case network.StateError:
				log.Fatalf("Connection error: %v", client.LastError())
			}
		}
	}
}
