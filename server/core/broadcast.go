package core

import (
	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/automoto/kringsringen-sync/shared/protocol"
)

// broadcaster turns store state into the frames sent on a broadcast tick.
type broadcaster struct {
	store     *Store
	fullEvery int
	count     int

	sentPlayers map[string]netcomponents.PlayerSnapshot
	partyDead   bool

	state      messages.GameState
	nextState  float64
	coins      []messages.Coin
	coinsDirty bool
}

func newBroadcaster(store *Store, fullEvery int) *broadcaster {
	if fullEvery < 1 {
		fullEvery = netconfig.FullSyncEvery
	}
	return &broadcaster{
		store:       store,
		fullEvery:   fullEvery,
		sentPlayers: make(map[string]netcomponents.PlayerSnapshot),
	}
}

// frames builds this broadcast's frames. Enemies go out every time; players
// only when changed, except on every fullEvery-th broadcast.
func (b *broadcaster) frames(now float64) []protocol.Frame {
	full := b.count%b.fullEvery == 0
	b.count++

	var out []protocol.Frame
	if players := b.players(full); len(players) > 0 {
		out = append(out, protocol.PlayersFrame(now, players))
	}
	out = append(out, protocol.EnemiesFrame(now, b.enemies()))

	for _, id := range b.store.IDs(netcomponents.KindBoss) {
		out = append(out, protocol.BossFrame(now, b.boss(id)))
	}
	if b.coinsDirty {
		out = append(out, protocol.CoinsFrame(now, b.coins))
		b.coinsDirty = false
	}
	if now >= b.nextState {
		b.nextState = now + netconfig.Millis(netconfig.GameStateInterval)
		out = append(out, protocol.StateFrame(now, b.state))
	}
	if b.checkPartyDead() {
		out = append(out, protocol.EventFrame(now, messages.GameEvent{Kind: messages.EventPartyDead}))
	}
	return out
}

func (b *broadcaster) players(full bool) []netcomponents.PlayerSnapshot {
	var out []netcomponents.PlayerSnapshot
	for _, id := range b.store.IDs(netcomponents.KindPlayer) {
		snap := b.playerSnapshot(id)
		if prev, ok := b.sentPlayers[id]; ok && !full && prev.SameState(snap) {
			continue
		}
		b.sentPlayers[id] = snap
		out = append(out, snap)
	}
	return out
}

func (b *broadcaster) playerSnapshot(id string) netcomponents.PlayerSnapshot {
	x, y, _ := b.store.Position(id)
	h, _ := b.store.Health(id)
	a, _ := b.store.Appearance(id)
	return netcomponents.PlayerSnapshot{
		ID:     id,
		X:      netcomponents.ClampCoord(x),
		Y:      netcomponents.ClampCoord(y),
		Health: netcomponents.ClampCoord(float64(h.Current)),
		Anim:   a.Anim,
		FlipX:  a.FlipX,
		Weapon: a.Weapon,
		Name:   protocol.TruncateUTF8(a.Name, netconfig.MaxStringBytes),
	}
}

func (b *broadcaster) enemies() []netcomponents.EnemySnapshot {
	ids := b.store.IDs(netcomponents.KindEnemy)
	out := make([]netcomponents.EnemySnapshot, 0, len(ids))
	for _, id := range ids {
		x, y, _ := b.store.Position(id)
		h, _ := b.store.Health(id)
		a, _ := b.store.Appearance(id)
		out = append(out, netcomponents.EnemySnapshot{
			ID:     id,
			X:      netcomponents.ClampCoord(x),
			Y:      netcomponents.ClampCoord(y),
			Health: netcomponents.ClampCoord(float64(h.Current)),
			Anim:   a.Anim,
			FlipX:  a.FlipX,
		})
	}
	return out
}

func (b *broadcaster) boss(id string) messages.BossState {
	x, y, _ := b.store.Position(id)
	h, _ := b.store.Health(id)
	a, _ := b.store.Appearance(id)
	return messages.BossState{
		ID:        id,
		X:         netcomponents.ClampCoord(x),
		Y:         netcomponents.ClampCoord(y),
		Health:    h.Current,
		MaxHealth: h.Max,
		Phase:     a.Phase,
		Anim:      a.Anim,
		FlipX:     a.FlipX,
	}
}

// checkPartyDead reports true once each time every player has fallen.
func (b *broadcaster) checkPartyDead() bool {
	ids := b.store.IDs(netcomponents.KindPlayer)
	if len(ids) == 0 {
		b.partyDead = false
		return false
	}
	for _, id := range ids {
		if b.store.Alive(id) {
			b.partyDead = false
			return false
		}
	}
	if b.partyDead {
		return false
	}
	b.partyDead = true
	return true
}

func (b *broadcaster) setState(gs messages.GameState) {
	b.state = gs
}

func (b *broadcaster) setCoins(coins []messages.Coin) {
	b.coins = append(b.coins[:0], coins...)
	b.coinsDirty = true
}

func (b *broadcaster) forget(id string) {
	delete(b.sentPlayers, id)
}
