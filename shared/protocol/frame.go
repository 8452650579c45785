package protocol

import (
	"fmt"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
	"github.com/hashicorp/go-msgpack/v2/codec"
)

// Frame is the tagged union every peer sends. Exactly one payload field is
// populated and it must match Type. Player and enemy arrays travel in the
// binary snapshot layout; everything else is a msgpack body after the tag.
type Frame struct {
	Type netconfig.PacketType
	TS   float64

	Players []netcomponents.PlayerSnapshot // One element for client -> host
	Enemies []netcomponents.EnemySnapshot
	Event   *messages.GameEvent
	Coins   []messages.Coin
	Boss    *messages.BossState
	State   *messages.GameState
	Ping    *messages.Ping
	Pong    *messages.Pong
}

func PlayerFrame(ts float64, p netcomponents.PlayerSnapshot) Frame {
	return Frame{Type: netconfig.PacketPlayerSync, TS: ts, Players: []netcomponents.PlayerSnapshot{p}}
}

func PlayersFrame(ts float64, ps []netcomponents.PlayerSnapshot) Frame {
	if ps == nil {
		ps = []netcomponents.PlayerSnapshot{}
	}
	return Frame{Type: netconfig.PacketPlayerSync, TS: ts, Players: ps}
}

func EnemiesFrame(ts float64, es []netcomponents.EnemySnapshot) Frame {
	if es == nil {
		es = []netcomponents.EnemySnapshot{}
	}
	return Frame{Type: netconfig.PacketEnemySync, TS: ts, Enemies: es}
}

func EventFrame(ts float64, ev messages.GameEvent) Frame {
	return Frame{Type: netconfig.PacketGameEvent, TS: ts, Event: &ev}
}

func CoinsFrame(ts float64, coins []messages.Coin) Frame {
	if coins == nil {
		coins = []messages.Coin{}
	}
	return Frame{Type: netconfig.PacketCoinSync, TS: ts, Coins: coins}
}

func BossFrame(ts float64, b messages.BossState) Frame {
	return Frame{Type: netconfig.PacketBossSync, TS: ts, Boss: &b}
}

func StateFrame(ts float64, gs messages.GameState) Frame {
	return Frame{Type: netconfig.PacketGameState, TS: ts, State: &gs}
}

func PingFrame(ts float64) Frame {
	return Frame{Type: netconfig.PacketPing, TS: ts, Ping: &messages.Ping{ClientTime: ts}}
}

func PongFrame(ts float64, ping messages.Ping) Frame {
	return Frame{Type: netconfig.PacketPong, TS: ts, Pong: &messages.Pong{ClientTime: ping.ClientTime, ServerTime: ts}}
}

// Validate checks the exactly-one-payload invariant.
func (f *Frame) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("tag %d: %w", uint8(f.Type), ErrPacketType)
	}

	populated := 0
	matches := false
	check := func(set bool, t netconfig.PacketType) {
		if set {
			populated++
			matches = matches || t == f.Type
		}
	}
	check(f.Players != nil, netconfig.PacketPlayerSync)
	check(f.Enemies != nil, netconfig.PacketEnemySync)
	check(f.Event != nil, netconfig.PacketGameEvent)
	check(f.Coins != nil, netconfig.PacketCoinSync)
	check(f.Boss != nil, netconfig.PacketBossSync)
	check(f.State != nil, netconfig.PacketGameState)
	check(f.Ping != nil, netconfig.PacketPing)
	check(f.Pong != nil, netconfig.PacketPong)

	if populated != 1 || !matches {
		return fmt.Errorf("%s frame with %d payloads: %w", f.Type, populated, ErrPayload)
	}
	return nil
}

// body is the msgpack form of the structured frame kinds.
type body struct {
	TS    float64             `codec:"ts"`
	Event *messages.GameEvent `codec:"ev,omitempty"`
	Coins []messages.Coin     `codec:"cs,omitempty"`
	Boss  *messages.BossState `codec:"bs,omitempty"`
	State *messages.GameState `codec:"gs,omitempty"`
	Ping  *messages.Ping      `codec:"pi,omitempty"`
	Pong  *messages.Pong      `codec:"po,omitempty"`
}

var msgpackHandle = &codec.MsgpackHandle{}

// Marshal encodes any frame kind.
func Marshal(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	switch f.Type {
	case netconfig.PacketPlayerSync:
		return EncodePlayers(f.Players, f.TS)
	case netconfig.PacketEnemySync:
		return EncodeEnemies(f.Enemies, f.TS)
	}

	var encoded []byte
	b := body{TS: f.TS, Event: f.Event, Coins: f.Coins, Boss: f.Boss, State: f.State, Ping: f.Ping, Pong: f.Pong}
	if err := codec.NewEncoderBytes(&encoded, msgpackHandle).Encode(&b); err != nil {
		return nil, fmt.Errorf("encode %s body: %w", f.Type, err)
	}

	out := make([]byte, 0, len(encoded)+1)
	out = append(out, byte(f.Type))
	return append(out, encoded...), nil
}

// Unmarshal decodes any frame kind. Errors wrap the package sentinels so
// callers can log and drop with errors.Is.
func Unmarshal(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("empty frame: %w", ErrTruncated)
	}

	t := netconfig.PacketType(data[0])
	switch {
	case !t.Valid():
		return Frame{}, fmt.Errorf("tag %d: %w", data[0], ErrPacketType)
	case t == netconfig.PacketPlayerSync:
		players, ts, err := DecodePlayers(data)
		if err != nil {
			return Frame{}, err
		}
		return PlayersFrame(ts, players), nil
	case t == netconfig.PacketEnemySync:
		enemies, ts, err := DecodeEnemies(data)
		if err != nil {
			return Frame{}, err
		}
		return EnemiesFrame(ts, enemies), nil
	}

	var b body
	if err := codec.NewDecoderBytes(data[1:], msgpackHandle).Decode(&b); err != nil {
		return Frame{}, fmt.Errorf("decode %s body: %v: %w", t, err, ErrPayload)
	}
	f := Frame{Type: t, TS: b.TS, Event: b.Event, Coins: b.Coins, Boss: b.Boss, State: b.State, Ping: b.Ping, Pong: b.Pong}
	if t == netconfig.PacketCoinSync && f.Coins == nil {
		f.Coins = []messages.Coin{}
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}
