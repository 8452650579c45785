package core

import (
	"log"

	"github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/server/lagcomp"
	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/automoto/kringsringen-sync/shared/protocol"
	"github.com/automoto/kringsringen-sync/shared/spatial"
)

// Transport delivers encoded frames to connected peers.
type Transport interface {
	Send(peer string, data []byte, reliable bool) error
	Broadcast(data []byte, reliable bool) error
}

// Server is the host half of the sync core. Transport callbacks only touch
// the inbox; Tick and every other method run on the game loop goroutine.
type Server struct {
	cfg       config.NetConfig
	store     *Store
	history   *lagcomp.Tracker
	live      *spatial.Grid
	validator *lagcomp.Validator
	inbox     *protocol.Inbox
	transport Transport
	bcast     *broadcaster

	batch          []protocol.Inbound
	now            float64
	ticks          int
	broadcastEvery int
	stats          Stats
}

// NewServer wires the host core. cfg must already be valid.
func NewServer(cfg config.NetConfig, transport Transport, inbox *protocol.Inbox) *Server {
	bounds := spatial.Bounds{MinX: cfg.WorldMinX, MinY: cfg.WorldMinY, MaxX: cfg.WorldMaxX, MaxY: cfg.WorldMaxY}
	store := NewStore()
	history := lagcomp.NewTracker(netconfig.Millis(cfg.HistoryRetention))

	s := &Server{
		cfg:            cfg,
		store:          store,
		history:        history,
		live:           spatial.NewGrid(bounds, cfg.CellSize),
		inbox:          inbox,
		transport:      transport,
		bcast:          newBroadcaster(store, cfg.FullSyncEvery),
		broadcastEvery: cfg.BroadcastEvery(),
	}
	s.validator = lagcomp.NewValidator(store, history, spatial.NewGrid(bounds, cfg.CellSize), nil)
	s.validator.MeleeRadius = cfg.MeleeRadius
	s.validator.ProjectileRadius = cfg.ProjectileRadius

	store.OnHealthChanged(s.onHealthChanged)
	store.OnDespawned(s.onDespawned)
	return s
}

// Store returns the authoritative registry the host simulation writes to.
func (s *Server) Store() *Store { return s.store }

// Validator exposes the hit-claim validator, e.g. to install a delay provider.
func (s *Server) Validator() *lagcomp.Validator { return s.validator }

// Tick runs one host step at host time now (milliseconds).
func (s *Server) Tick(now float64) {
	s.now = now
	s.recordHistory(now)

	s.batch = s.inbox.Drain(s.batch)
	for _, in := range s.batch {
		if in.Left {
			s.DropPeer(in.Peer)
			continue
		}
		s.stats.FramesIn++
		s.stats.BytesIn += uint64(len(in.Data))
		f, err := protocol.Unmarshal(in.Data)
		if err != nil {
			s.stats.Malformed++
			log.Printf("[host] dropping frame from %s: %v", in.Peer, err)
			continue
		}
		s.handle(in.Peer, f, now)
	}

	s.store.Flush()

	if s.ticks%s.broadcastEvery == 0 {
		for _, f := range s.bcast.frames(now) {
			s.broadcast(f)
		}
	}
	s.ticks++
}

// recordHistory samples every entity before any same-tick claim is checked,
// then refreshes the live proximity grid.
func (s *Server) recordHistory(now float64) {
	for _, kind := range []netcomponents.EntityKind{netcomponents.KindPlayer, netcomponents.KindEnemy, netcomponents.KindBoss} {
		for _, id := range s.store.IDs(kind) {
			x, y, _ := s.store.Position(id)
			s.history.Record(id, now, x, y)
			s.live.Upsert(id, x, y)
		}
	}
	s.history.TrimAll(now)
}

func (s *Server) handle(peer string, f protocol.Frame, now float64) {
	switch f.Type {
	case netconfig.PacketPlayerSync:
		if len(f.Players) != 1 {
			log.Printf("[host] player frame from %s carries %d players", peer, len(f.Players))
			return
		}
		s.onPlayerSync(peer, f.Players[0])
	case netconfig.PacketGameEvent:
		s.onEvent(peer, *f.Event, now)
	case netconfig.PacketPing:
		pong := protocol.PongFrame(now, *f.Ping)
		pong.Pong.Peer = peer
		s.send(peer, pong)
	default:
		log.Printf("[host] unexpected %s frame from %s", f.Type, peer)
	}
}

// onPlayerSync applies a client's report of its own player. The entity id is
// always the peer id, whatever the frame claims.
func (s *Server) onPlayerSync(peer string, p netcomponents.PlayerSnapshot) {
	if !s.store.Has(peer) {
		s.store.Spawn(peer, netcomponents.KindPlayer, peer, float64(p.X), float64(p.Y), p.Health)
		log.Printf("[host] player %s (%q) joined", peer, p.Name)
	}
	s.store.SetPosition(peer, float64(p.X), float64(p.Y))
	s.store.SetHealth(peer, p.Health, peer)
	s.store.SetAppearance(peer, netcomponents.NetAppearanceData{
		Anim:   p.Anim,
		FlipX:  p.FlipX,
		Weapon: p.Weapon,
		Name:   p.Name,
	})
}

func (s *Server) onEvent(peer string, ev messages.GameEvent, now float64) {
	if ev.Kind.IsHitClaim() {
		if ev.Claim == nil {
			log.Printf("[host] %s from %s without a claim", ev.Kind, peer)
			return
		}
		if res := s.validator.Validate(peer, *ev.Claim); res.Verdict == lagcomp.Accepted {
			s.stats.ClaimsAccepted++
		} else {
			s.stats.ClaimsRejected++
		}
		return
	}

	switch ev.Kind {
	case messages.EventReviveRequest:
		s.onRevive(peer, ev, now)
	case messages.EventRestartGame, messages.EventPartyDead, messages.EventDeath, messages.EventPlayerLeft, messages.EventPlayerRevived:
		log.Printf("[host] ignoring host-only %s event from %s", ev.Kind, peer)
	default:
		s.broadcast(protocol.EventFrame(now, ev))
	}
}

func (s *Server) onRevive(peer string, ev messages.GameEvent, now float64) {
	if ev.Target == nil {
		return
	}
	id := ev.Target.TargetID
	h, ok := s.store.Health(id)
	if kind, _ := s.store.Kind(id); !ok || kind != netcomponents.KindPlayer || h.Current > 0 {
		return
	}
	s.store.SetHealth(id, h.Max, peer)
	s.broadcast(protocol.EventFrame(now, messages.GameEvent{
		Kind:   messages.EventPlayerRevived,
		Target: &messages.TargetRef{TargetID: id},
	}))
}

// onHealthChanged announces and removes host-simulated entities that died.
func (s *Server) onHealthChanged(e HealthChange) {
	if e.Kind == netcomponents.KindPlayer || e.Old <= 0 || e.New > 0 {
		return
	}
	s.broadcast(protocol.EventFrame(s.now, messages.GameEvent{
		Kind:  messages.EventDeath,
		Death: &messages.DeathEvent{EntityID: e.ID, KillerID: e.Source},
	}))
	s.store.Despawn(e.ID)
}

func (s *Server) onDespawned(e Despawn) {
	s.history.Forget(e.ID)
	s.live.Remove(e.ID)
	s.bcast.forget(e.ID)
	if e.Kind == netcomponents.KindPlayer {
		s.broadcast(protocol.EventFrame(s.now, messages.GameEvent{
			Kind:   messages.EventPlayerLeft,
			Target: &messages.TargetRef{TargetID: e.ID},
		}))
	}
}

// DropPeer removes every entity owned by peer. Transports report departures
// through Inbox.Leave so this runs on the tick.
func (s *Server) DropPeer(peer string) {
	for _, id := range s.store.PeerEntities(peer) {
		s.store.Despawn(id)
	}
	s.validator.ForgetPeer(peer)
	log.Printf("[host] peer %s dropped", peer)
}

// Nearby returns the entities within radius of (x, y) as of this tick, for
// AI and other host systems.
func (s *Server) Nearby(x, y, radius float64) []string {
	return s.live.Nearby(x, y, radius)
}

// SetGameState replaces the coarse state broadcast about once a second.
func (s *Server) SetGameState(gs messages.GameState) { s.bcast.setState(gs) }

// SetCoins replaces the coin list; it is sent on the next broadcast.
func (s *Server) SetCoins(coins []messages.Coin) { s.bcast.setCoins(coins) }

func (s *Server) Stats() Stats { return s.stats }

func (s *Server) broadcast(f protocol.Frame) {
	data, err := protocol.Marshal(f)
	if err != nil {
		log.Printf("[host] encode %s: %v", f.Type, err)
		return
	}
	if err := s.transport.Broadcast(data, f.Type.Reliable()); err != nil {
		log.Printf("[host] broadcast %s: %v", f.Type, err)
		return
	}
	s.stats.FramesOut++
	s.stats.BytesOut += uint64(len(data))
}

func (s *Server) send(peer string, f protocol.Frame) {
	data, err := protocol.Marshal(f)
	if err != nil {
		log.Printf("[host] encode %s: %v", f.Type, err)
		return
	}
	if err := s.transport.Send(peer, data, f.Type.Reliable()); err != nil {
		log.Printf("[host] send %s to %s: %v", f.Type, peer, err)
		return
	}
	s.stats.FramesOut++
	s.stats.BytesOut += uint64(len(data))
}
