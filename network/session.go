package network

import (
	"log"
	"time"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/automoto/kringsringen-sync/shared/protocol"
	"golang.org/x/time/rate"
)

// Sender delivers encoded frames to the host.
type Sender interface {
	Send(data []byte, reliable bool) error
}

// HostPeer is the peer id the session files inbound host frames under.
const HostPeer = "host"

type remoteEnemy struct {
	buffer     *JitterBuffer[netcomponents.EnemySnapshot]
	prediction *Prediction
}

// Session is the client half of the sync core. Transport callbacks only push
// into Inbox; everything else happens in Tick and the render-side getters,
// all of which must be called from the game loop goroutine.
type Session struct {
	self   string
	sender Sender
	inbox  *protocol.Inbox
	clock  ClockSync

	players map[string]*JitterBuffer[netcomponents.PlayerSnapshot]
	enemies map[string]*remoteEnemy

	newestEnemyTS float64
	batch         []protocol.Inbound

	limiters    map[string]*rate.Limiter
	nextClaimID uint32

	lastSent netcomponents.PlayerSnapshot
	sentOnce bool
	nextPing float64

	events []messages.GameEvent
	state  messages.GameState
	boss   *messages.BossState
	coins  []messages.Coin
}

// NewSession creates a session for the local player self.
func NewSession(self string, sender Sender, inbox *protocol.Inbox) *Session {
	return &Session{
		self:     self,
		sender:   sender,
		inbox:    inbox,
		players:  make(map[string]*JitterBuffer[netcomponents.PlayerSnapshot]),
		enemies:  make(map[string]*remoteEnemy),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Tick applies every queued host frame, advances predictions and sends a ping
// when one is due. now is the local clock in milliseconds.
func (s *Session) Tick(now float64) {
	s.batch = s.inbox.Drain(s.batch)
	for _, in := range s.batch {
		f, err := protocol.Unmarshal(in.Data)
		if err != nil {
			log.Printf("[client] dropping frame from %s: %v", in.Peer, err)
			continue
		}
		s.apply(f, now)
	}

	for id, e := range s.enemies {
		if tr := e.prediction.Update(now); tr.To == RolledBack {
			log.Printf("[client] hit on %s denied, health back to %d", id, e.prediction.Health())
		}
	}

	if now >= s.nextPing {
		s.nextPing = now + netconfig.Millis(netconfig.PingInterval)
		s.send(protocol.PingFrame(now))
	}
}

func (s *Session) apply(f protocol.Frame, now float64) {
	switch f.Type {
	case netconfig.PacketPlayerSync:
		s.applyPlayers(f.TS, f.Players)
	case netconfig.PacketEnemySync:
		s.applyEnemies(f.TS, f.Enemies)
	case netconfig.PacketGameEvent:
		s.applyEvent(*f.Event)
	case netconfig.PacketCoinSync:
		s.coins = f.Coins
	case netconfig.PacketBossSync:
		s.boss = f.Boss
	case netconfig.PacketGameState:
		s.state = *f.State
	case netconfig.PacketPong:
		s.clock.OnPong(*f.Pong, now)
		s.adoptSelf(f.Pong.Peer)
	case netconfig.PacketPing:
		log.Printf("[client] unexpected ping from host")
	}
}

// adoptSelf switches the local player id to the one the host assigned, so
// our own echoed player is skipped from then on.
func (s *Session) adoptSelf(peer string) {
	if peer == "" || peer == s.self {
		return
	}
	log.Printf("[client] host knows us as %s", peer)
	s.self = peer
	delete(s.players, peer)
}

// Self returns the local player id.
func (s *Session) Self() string { return s.self }

// applyPlayers buffers host player frames. They may be deltas, so players
// absent from a frame are kept; departures arrive as player_left events.
func (s *Session) applyPlayers(ts float64, players []netcomponents.PlayerSnapshot) {
	for _, p := range players {
		if p.ID == s.self {
			continue
		}
		buf, ok := s.players[p.ID]
		if !ok {
			buf = NewJitterBuffer[netcomponents.PlayerSnapshot](netconfig.JitterCapacity)
			s.players[p.ID] = buf
		}
		buf.Push(ts, p)
	}
}

// applyEnemies buffers an enemy frame. Only a frame at least as new as every
// frame seen so far may spawn new enemies or despawn absent ones.
func (s *Session) applyEnemies(ts float64, enemies []netcomponents.EnemySnapshot) {
	current := ts >= s.newestEnemyTS
	if current {
		s.newestEnemyTS = ts
	}

	seen := make(map[string]struct{}, len(enemies))
	for _, e := range enemies {
		seen[e.ID] = struct{}{}
		re, ok := s.enemies[e.ID]
		if !ok {
			if !current {
				continue
			}
			re = &remoteEnemy{
				buffer:     NewJitterBuffer[netcomponents.EnemySnapshot](netconfig.JitterCapacity),
				prediction: NewPrediction(e.Health),
			}
			s.enemies[e.ID] = re
		}
		re.buffer.Push(ts, e)
		if newest, ok := re.buffer.Newest(); ok {
			re.prediction.Observe(newest.State.Health)
		}
	}

	if !current {
		return
	}
	for id := range s.enemies {
		if _, ok := seen[id]; !ok {
			s.forgetEnemy(id)
		}
	}
}

func (s *Session) applyEvent(ev messages.GameEvent) {
	switch ev.Kind {
	case messages.EventDeath:
		if ev.Death != nil {
			s.forgetEnemy(ev.Death.EntityID)
		}
	case messages.EventPlayerLeft:
		if ev.Target != nil {
			delete(s.players, ev.Target.TargetID)
		}
	case messages.EventAttack:
		if ev.Attack != nil && ev.Attack.PlayerID == s.self {
			return // our own attack relayed back
		}
	}
	s.events = append(s.events, ev)
}

func (s *Session) forgetEnemy(id string) {
	delete(s.enemies, id)
	delete(s.limiters, id)
}

// ClaimHit predicts damage on an enemy locally and asks the host to confirm
// it. At most one claim per target is sent per throttle interval; it reports
// whether the claim went out.
func (s *Session) ClaimHit(now float64, claim messages.HitClaim) bool {
	e, ok := s.enemies[claim.TargetID]
	if !ok || e.prediction.Hidden() {
		return false
	}

	lim, ok := s.limiters[claim.TargetID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(netconfig.HitClaimInterval), 1)
		s.limiters[claim.TargetID] = lim
	}
	if !lim.AllowN(msTime(now), 1) {
		return false
	}

	s.nextClaimID++
	if s.nextClaimID == 0 {
		s.nextClaimID = 1
	}
	claim.ClaimID = s.nextClaimID
	claim.Timestamp = s.clock.HostTime(now)

	kind := messages.EventHitRequest
	if claim.Projectile != "" {
		kind = messages.EventProjectileHitRequest
	}

	e.prediction.PredictDamage(now, claim.Damage)
	s.send(protocol.EventFrame(claim.Timestamp, messages.GameEvent{Kind: kind, Claim: &claim}))
	return true
}

// SendEvent forwards a non-claim game event (attack, revive request...) to the host.
func (s *Session) SendEvent(now float64, ev messages.GameEvent) {
	if ev.Kind.IsHitClaim() {
		log.Printf("[client] hit claims must go through ClaimHit")
		return
	}
	s.send(protocol.EventFrame(s.clock.HostTime(now), ev))
}

// SendLocalPlayer sends the local player's snapshot if it changed since the
// last one sent.
func (s *Session) SendLocalPlayer(now float64, p netcomponents.PlayerSnapshot) {
	p.ID = s.self
	p.Name = protocol.TruncateUTF8(p.Name, netconfig.MaxStringBytes)
	if s.sentOnce && p.SameState(s.lastSent) {
		return
	}
	if s.send(protocol.PlayerFrame(now, p)) {
		s.lastSent, s.sentOnce = p, true
	}
}

func (s *Session) send(f protocol.Frame) bool {
	data, err := protocol.Marshal(f)
	if err != nil {
		log.Printf("[client] encode %s: %v", f.Type, err)
		return false
	}
	if err := s.sender.Send(data, f.Type.Reliable()); err != nil {
		log.Printf("[client] send %s: %v", f.Type, err)
		return false
	}
	return true
}

// RenderTime is the host time remote entities are drawn at.
func (s *Session) RenderTime(now float64) float64 {
	return s.clock.HostTime(now) - netconfig.Millis(netconfig.RenderDelay)
}

// EnemyView is what the renderer needs for one enemy this frame.
type EnemyView struct {
	Placement[netcomponents.EnemySnapshot]
	Health      int
	Hidden      bool
	Collidable  bool
	DeniedFlash float32
}

// Enemy places an enemy at the render time, with predicted health applied.
func (s *Session) Enemy(id string, now float64) (EnemyView, bool) {
	e, ok := s.enemies[id]
	if !ok {
		return EnemyView{}, false
	}
	sample, ok := e.buffer.Sample(s.RenderTime(now))
	if !ok {
		return EnemyView{}, false
	}
	return EnemyView{
		Placement:   Interpolate(sample, netconfig.SnapThreshold),
		Health:      e.prediction.Health(),
		Hidden:      e.prediction.Hidden(),
		Collidable:  e.prediction.ColliderEnabled(),
		DeniedFlash: e.prediction.DeniedFlash(),
	}, true
}

// Player places a remote player at the render time.
func (s *Session) Player(id string, now float64) (Placement[netcomponents.PlayerSnapshot], bool) {
	buf, ok := s.players[id]
	if !ok {
		return Placement[netcomponents.PlayerSnapshot]{}, false
	}
	sample, ok := buf.Sample(s.RenderTime(now))
	if !ok {
		return Placement[netcomponents.PlayerSnapshot]{}, false
	}
	return Interpolate(sample, netconfig.SnapThreshold), true
}

// EnemyIDs lists the enemies currently tracked.
func (s *Session) EnemyIDs() []string {
	ids := make([]string, 0, len(s.enemies))
	for id := range s.enemies {
		ids = append(ids, id)
	}
	return ids
}

// PlayerIDs lists the remote players currently tracked.
func (s *Session) PlayerIDs() []string {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	return ids
}

// Prediction exposes the prediction state of an enemy.
func (s *Session) Prediction(id string) (*Prediction, bool) {
	e, ok := s.enemies[id]
	if !ok {
		return nil, false
	}
	return e.prediction, true
}

// DrainEvents returns game events received since the last call.
func (s *Session) DrainEvents() []messages.GameEvent {
	out := s.events
	s.events = nil
	return out
}

func (s *Session) GameState() messages.GameState { return s.state }

func (s *Session) Boss() (messages.BossState, bool) {
	if s.boss == nil {
		return messages.BossState{}, false
	}
	return *s.boss, true
}

func (s *Session) Coins() []messages.Coin { return s.coins }

func (s *Session) Clock() *ClockSync { return &s.clock }

func msTime(ms float64) time.Time {
	return time.UnixMicro(int64(ms * 1000))
}
