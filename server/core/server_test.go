package core

import (
	"strings"
	"testing"
	"time"

	"github.com/automoto/kringsringen-sync/config"
	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/automoto/kringsringen-sync/shared/protocol"
)

type fakeTransport struct {
	broadcasts []protocol.Frame
	sent       map[string][]protocol.Frame
}

func (t *fakeTransport) Send(peer string, data []byte, _ bool) error {
	f, err := protocol.Unmarshal(data)
	if err != nil {
		return err
	}
	if t.sent == nil {
		t.sent = make(map[string][]protocol.Frame)
	}
	t.sent[peer] = append(t.sent[peer], f)
	return nil
}

func (t *fakeTransport) Broadcast(data []byte, _ bool) error {
	f, err := protocol.Unmarshal(data)
	if err != nil {
		return err
	}
	t.broadcasts = append(t.broadcasts, f)
	return nil
}

func (t *fakeTransport) reset() { t.broadcasts = nil }

func (t *fakeTransport) ofType(pt netconfig.PacketType) []protocol.Frame {
	var out []protocol.Frame
	for _, f := range t.broadcasts {
		if f.Type == pt {
			out = append(out, f)
		}
	}
	return out
}

func (t *fakeTransport) events(kind messages.EventKind) []messages.GameEvent {
	var out []messages.GameEvent
	for _, f := range t.ofType(netconfig.PacketGameEvent) {
		if f.Event.Kind == kind {
			out = append(out, *f.Event)
		}
	}
	return out
}

type harness struct {
	t         *testing.T
	server    *Server
	inbox     *protocol.Inbox
	transport *fakeTransport
}

// newHarness broadcasts on every tick unless cfg says otherwise.
func newHarness(t *testing.T, edit func(*config.NetConfig)) *harness {
	t.Helper()
	cfg := config.Defaults()
	cfg.TickRate = 20
	cfg.BroadcastRate = 20
	if edit != nil {
		edit(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	inbox := protocol.NewInbox(0)
	transport := &fakeTransport{}
	return &harness{t: t, server: NewServer(cfg, transport, inbox), inbox: inbox, transport: transport}
}

func (h *harness) push(peer string, f protocol.Frame) {
	h.t.Helper()
	data, err := protocol.Marshal(f)
	if err != nil {
		h.t.Fatalf("Marshal: %v", err)
	}
	h.inbox.Push(peer, data)
}

func (h *harness) join(peer string, x, y, health int) {
	h.push(peer, protocol.PlayerFrame(0, netcomponents.PlayerSnapshot{ID: "ignored", X: x, Y: y, Health: health, Name: peer}))
}

func (h *harness) claim(peer string, c messages.HitClaim) {
	h.push(peer, protocol.EventFrame(c.Timestamp, messages.GameEvent{Kind: messages.EventHitRequest, Claim: &c}))
}

func TestAcceptedClaimKillsAndDespawns(t *testing.T) {
	h := newHarness(t, nil)
	store := h.server.Store()
	store.Spawn("enemy-1", netcomponents.KindEnemy, "", 100, 100, 30)
	h.server.Tick(1000)

	// The enemy has moved on by the time the claim arrives.
	store.SetPosition("enemy-1", 600, 600)
	h.claim("p1", messages.HitClaim{ClaimID: 1, TargetID: "enemy-1", HitX: 110, HitY: 100, Timestamp: 1000, Damage: 30})
	h.transport.reset()
	h.server.Tick(1050)

	if store.Has("enemy-1") {
		t.Fatal("enemy-1 should be despawned")
	}
	deaths := h.transport.events(messages.EventDeath)
	if len(deaths) != 1 || deaths[0].Death.EntityID != "enemy-1" || deaths[0].Death.KillerID != "p1" {
		t.Fatalf("death events = %+v", deaths)
	}
	if len(h.transport.events(messages.EventHitRequest)) != 0 {
		t.Error("hit claim was relayed")
	}
	enemies := h.transport.ofType(netconfig.PacketEnemySync)
	if len(enemies) != 1 || len(enemies[0].Enemies) != 0 {
		t.Errorf("enemy frames = %+v", enemies)
	}
	if got := h.server.Nearby(600, 600, 10); len(got) != 0 {
		t.Errorf("Nearby after despawn = %v", got)
	}
	if st := h.server.Stats(); st.ClaimsAccepted != 1 || st.ClaimsRejected != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRejectedClaimLeavesHealth(t *testing.T) {
	h := newHarness(t, nil)
	store := h.server.Store()
	store.Spawn("enemy-1", netcomponents.KindEnemy, "", 100, 100, 30)
	h.server.Tick(1000)

	h.claim("p1", messages.HitClaim{ClaimID: 1, TargetID: "enemy-1", HitX: 900, HitY: 900, Timestamp: 1000, Damage: 30})
	h.claim("p1", messages.HitClaim{ClaimID: 2, TargetID: "nobody", HitX: 100, HitY: 100, Timestamp: 1000, Damage: 30})
	h.server.Tick(1050)

	if hp, _ := store.Health("enemy-1"); hp.Current != 30 {
		t.Errorf("health = %d, want 30", hp.Current)
	}
	if st := h.server.Stats(); st.ClaimsRejected != 2 || st.ClaimsAccepted != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPingGetsPong(t *testing.T) {
	h := newHarness(t, nil)
	h.push("p1", protocol.PingFrame(400))
	h.server.Tick(1000)

	sent := h.transport.sent["p1"]
	if len(sent) != 1 || sent[0].Type != netconfig.PacketPong {
		t.Fatalf("sent = %+v", sent)
	}
	if sent[0].Pong.ClientTime != 400 || sent[0].Pong.ServerTime != 1000 || sent[0].Pong.Peer != "p1" {
		t.Errorf("pong = %+v", *sent[0].Pong)
	}
}

func TestPlayerSyncSpawnsUnderPeerID(t *testing.T) {
	h := newHarness(t, nil)
	h.push("p1", protocol.PlayerFrame(0, netcomponents.PlayerSnapshot{
		ID: "spoofed", X: 10, Y: 20, Health: 80, Anim: "run", Weapon: "axe", Name: "Sigrid",
	}))
	h.server.Tick(1000)

	store := h.server.Store()
	if store.Has("spoofed") || !store.Has("p1") {
		t.Fatal("player should be stored under its peer id")
	}
	frames := h.transport.ofType(netconfig.PacketPlayerSync)
	if len(frames) != 1 || len(frames[0].Players) != 1 {
		t.Fatalf("player frames = %+v", frames)
	}
	want := netcomponents.PlayerSnapshot{ID: "p1", X: 10, Y: 20, Health: 80, Anim: "run", Weapon: "axe", Name: "Sigrid"}
	if got := frames[0].Players[0]; got != want {
		t.Errorf("broadcast player = %+v, want %+v", got, want)
	}
}

func TestEmptyPlayerFrameIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.push("p1", protocol.PlayersFrame(0, nil))
	h.server.Tick(1000)
	if h.server.Store().Len() != 0 {
		t.Error("empty player frame spawned an entity")
	}
}

func TestPlayerDeltaAndFullSync(t *testing.T) {
	h := newHarness(t, func(c *config.NetConfig) { c.FullSyncEvery = 3 })
	h.join("p1", 10, 10, 100)
	h.join("p2", 50, 50, 100)

	var perTick []int
	for i := 0; i < 5; i++ {
		if i == 1 {
			h.join("p2", 60, 50, 100)
		}
		h.transport.reset()
		h.server.Tick(1000 + float64(i)*50)
		n := 0
		for _, f := range h.transport.ofType(netconfig.PacketPlayerSync) {
			n += len(f.Players)
		}
		perTick = append(perTick, n)
	}

	// Full, moved p2 only, nothing, full, nothing.
	want := []int{2, 1, 0, 2, 0}
	for i := range want {
		if perTick[i] != want[i] {
			t.Fatalf("players per broadcast = %v, want %v", perTick, want)
		}
	}
}

func TestBroadcastCadence(t *testing.T) {
	h := newHarness(t, func(c *config.NetConfig) {
		c.TickRate = 60
		c.BroadcastRate = 20
	})
	h.server.SetGameState(messages.GameState{Level: 2, Wave: 4})

	for i := 0; i < 120; i++ {
		h.server.Tick(1000 + float64(i)*1000/60)
	}

	if got := len(h.transport.ofType(netconfig.PacketEnemySync)); got != 40 {
		t.Errorf("enemy broadcasts = %d, want 40", got)
	}
	states := h.transport.ofType(netconfig.PacketGameState)
	if len(states) != 2 {
		t.Fatalf("state broadcasts = %d, want 2", len(states))
	}
	if *states[0].State != (messages.GameState{Level: 2, Wave: 4}) {
		t.Errorf("state = %+v", *states[0].State)
	}
}

func TestCoinsSentOncePerChange(t *testing.T) {
	h := newHarness(t, nil)
	h.server.SetCoins([]messages.Coin{{ID: "c1", X: 1, Y: 2}})
	h.server.Tick(1000)
	h.server.Tick(1050)
	h.server.SetCoins(nil)
	h.server.Tick(1100)

	coins := h.transport.ofType(netconfig.PacketCoinSync)
	if len(coins) != 2 {
		t.Fatalf("coin frames = %d, want 2", len(coins))
	}
	if len(coins[0].Coins) != 1 || len(coins[1].Coins) != 0 {
		t.Errorf("coin frames = %+v", coins)
	}
}

func TestBossFrames(t *testing.T) {
	h := newHarness(t, nil)
	store := h.server.Store()
	store.Spawn("boss", netcomponents.KindBoss, "", 300, 400, 1000)
	store.SetAppearance("boss", netcomponents.NetAppearanceData{Anim: "roar", Phase: 2})
	store.ApplyDamage("boss", 100, "p1")
	h.server.Tick(1000)

	bosses := h.transport.ofType(netconfig.PacketBossSync)
	if len(bosses) != 1 {
		t.Fatalf("boss frames = %d", len(bosses))
	}
	want := messages.BossState{ID: "boss", X: 300, Y: 400, Health: 900, MaxHealth: 1000, Phase: 2, Anim: "roar"}
	if *bosses[0].Boss != want {
		t.Errorf("boss = %+v, want %+v", *bosses[0].Boss, want)
	}
}

func TestPartyDeadAnnouncedOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.join("p1", 0, 0, 100)
	h.server.Tick(1000)

	h.join("p1", 0, 0, 0)
	h.server.Tick(1050)
	h.server.Tick(1100)
	if got := len(h.transport.events(messages.EventPartyDead)); got != 1 {
		t.Fatalf("party_dead events = %d, want 1", got)
	}
	if !h.server.Store().Has("p1") {
		t.Error("dead players stay in the store")
	}

	h.join("p1", 0, 0, 50)
	h.server.Tick(1150)
	h.join("p1", 0, 0, 0)
	h.server.Tick(1200)
	if got := len(h.transport.events(messages.EventPartyDead)); got != 2 {
		t.Errorf("party_dead events = %d, want 2 after a second wipe", got)
	}
}

func TestReviveRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.join("p1", 0, 0, 100)
	h.join("p2", 0, 0, 100)
	h.server.Tick(1000)
	h.join("p2", 0, 0, 0)
	h.server.Tick(1050)

	revive := messages.GameEvent{Kind: messages.EventReviveRequest, Target: &messages.TargetRef{TargetID: "p2"}}
	h.push("p1", protocol.EventFrame(1060, revive))
	h.server.Tick(1100)

	if hp, _ := h.server.Store().Health("p2"); hp.Current != 100 {
		t.Errorf("p2 health = %d, want 100", hp.Current)
	}
	revived := h.transport.events(messages.EventPlayerRevived)
	if len(revived) != 1 || revived[0].Target.TargetID != "p2" {
		t.Fatalf("revived events = %+v", revived)
	}

	// Reviving a living player does nothing.
	h.push("p1", protocol.EventFrame(1110, revive))
	h.server.Tick(1150)
	if got := len(h.transport.events(messages.EventPlayerRevived)); got != 1 {
		t.Errorf("revived events = %d, want 1", got)
	}
}

func TestEventRelay(t *testing.T) {
	h := newHarness(t, nil)
	h.push("p1", protocol.EventFrame(990, messages.GameEvent{
		Kind:   messages.EventAttack,
		Attack: &messages.AttackEvent{PlayerID: "p1", Weapon: "bow", Angle: 1.5},
	}))
	h.push("p1", protocol.EventFrame(991, messages.GameEvent{
		Kind:  messages.EventDeath,
		Death: &messages.DeathEvent{EntityID: "enemy-1"},
	}))
	h.push("p1", protocol.EventFrame(992, messages.GameEvent{Kind: messages.EventRestartGame}))
	h.server.Tick(1000)

	attacks := h.transport.events(messages.EventAttack)
	if len(attacks) != 1 || attacks[0].Attack.Weapon != "bow" {
		t.Errorf("attack relays = %+v", attacks)
	}
	if n := len(h.transport.events(messages.EventDeath)) + len(h.transport.events(messages.EventRestartGame)); n != 0 {
		t.Errorf("host-only events relayed %d times", n)
	}
}

func TestPeerLeave(t *testing.T) {
	h := newHarness(t, nil)
	h.join("p1", 10, 10, 100)
	h.join("p2", 20, 20, 100)
	h.server.Tick(1000)

	h.inbox.Leave("p1")
	h.transport.reset()
	h.server.Tick(1050)

	if h.server.Store().Has("p1") {
		t.Fatal("p1 still in store")
	}
	left := h.transport.events(messages.EventPlayerLeft)
	if len(left) != 1 || left[0].Target.TargetID != "p1" {
		t.Fatalf("player_left events = %+v", left)
	}

	// p1 rejoining is treated as a new player and gets sent in full.
	h.join("p1", 10, 10, 100)
	h.transport.reset()
	h.server.Tick(1100)
	frames := h.transport.ofType(netconfig.PacketPlayerSync)
	if len(frames) != 1 || len(frames[0].Players) != 1 || frames[0].Players[0].ID != "p1" {
		t.Errorf("player frames after rejoin = %+v", frames)
	}
}

func TestMalformedFramesCounted(t *testing.T) {
	h := newHarness(t, nil)
	h.inbox.Push("p1", []byte{0xff, 1, 2})
	h.inbox.Push("p1", []byte{byte(netconfig.PacketEnemySync), netconfig.ProtocolVersion})
	h.push("p1", protocol.PingFrame(1))
	h.server.Tick(1000)

	st := h.server.Stats()
	if st.Malformed != 2 || st.FramesIn != 3 {
		t.Errorf("stats = %+v", st)
	}
	if len(h.transport.sent["p1"]) != 1 {
		t.Error("valid frame after malformed ones was not handled")
	}
}

func TestNearbyTracksTick(t *testing.T) {
	h := newHarness(t, nil)
	store := h.server.Store()
	store.Spawn("a", netcomponents.KindEnemy, "", 100, 100, 10)
	store.Spawn("b", netcomponents.KindEnemy, "", 150, 100, 10)
	store.Spawn("c", netcomponents.KindEnemy, "", 900, 900, 10)
	h.server.Tick(1000)

	got := h.server.Nearby(100, 100, 60)
	if len(got) != 2 {
		t.Errorf("Nearby = %v, want a and b", got)
	}
}

func TestStatsSummary(t *testing.T) {
	st := Stats{FramesIn: 10, BytesIn: 2048, FramesOut: 4, BytesOut: 3_000_000, ClaimsAccepted: 3, ClaimsRejected: 1}
	got := st.Summary(90*time.Minute+5*time.Second, 2, 14)
	for _, want := range []string{"1 h 30 m", "2 players / 14 entities", "2.0 kB", "3.0 MB", "claims 3 ok / 1 rejected"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary = %q, missing %q", got, want)
		}
	}
}
