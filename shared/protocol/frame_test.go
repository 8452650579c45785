package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		PlayerFrame(1, netcomponents.PlayerSnapshot{ID: "me", Name: "Kari", Weapon: "bow"}),
		EnemiesFrame(2, []netcomponents.EnemySnapshot{{ID: "e1", X: 5, Y: 6, Health: 7, Anim: "walk"}}),
		EnemiesFrame(2.5, nil),
		EventFrame(3, messages.GameEvent{
			Kind: messages.EventHitRequest,
			Claim: &messages.HitClaim{
				ClaimID: 9, TargetID: "e1", HitX: 10.5, HitY: -2, Timestamp: 2.75, Damage: 12,
			},
		}),
		EventFrame(3.5, messages.GameEvent{Kind: messages.EventPartyDead}),
		CoinsFrame(4, []messages.Coin{{ID: "c1", X: 1, Y: 2}}),
		CoinsFrame(4.5, nil),
		BossFrame(5, messages.BossState{ID: "boss", X: 100, Y: 200, Health: 900, MaxHealth: 1000, Phase: 2, Anim: "roar"}),
		StateFrame(6, messages.GameState{Level: 3, Wave: 7, BossActive: true, BossIndex: 1}),
		PingFrame(7),
		PongFrame(8, messages.Ping{ClientTime: 7}),
	}

	for _, f := range frames {
		t.Run(f.Type.String(), func(t *testing.T) {
			data, err := Marshal(f)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if data[0] != byte(f.Type) {
				t.Fatalf("tag = %d, want %d", data[0], f.Type)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, f) {
				t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, f)
			}
		})
	}
}

func TestValidateRejectsMixedPayloads(t *testing.T) {
	f := PingFrame(1)
	f.Pong = &messages.Pong{}
	if err := f.Validate(); !errors.Is(err, ErrPayload) {
		t.Fatalf("two payloads: err = %v, want ErrPayload", err)
	}

	f = Frame{Type: netconfig.PacketGameEvent, State: &messages.GameState{}}
	if err := f.Validate(); !errors.Is(err, ErrPayload) {
		t.Fatalf("mismatched payload: err = %v, want ErrPayload", err)
	}

	f = Frame{Type: netconfig.PacketPing}
	if err := f.Validate(); !errors.Is(err, ErrPayload) {
		t.Fatalf("no payload: err = %v, want ErrPayload", err)
	}

	if _, err := Marshal(Frame{Type: 42}); !errors.Is(err, ErrPacketType) {
		t.Fatalf("bad tag: err = %v, want ErrPacketType", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"unknown tag", []byte{200, 1, 2}, ErrPacketType},
		{"bad body", []byte{byte(netconfig.PacketGameState), 0xc1}, ErrPayload},
		{"no payload", []byte{byte(netconfig.PacketPing), 0x80}, ErrPayload},
		{"short snapshot", []byte{byte(netconfig.PacketEnemySync), netconfig.ProtocolVersion}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInboxDrain(t *testing.T) {
	in := NewInbox(2)
	if !in.Push("a", []byte{1}) || !in.Push("b", []byte{2}) {
		t.Fatalf("push under limit should succeed")
	}
	if in.Push("c", []byte{3}) {
		t.Fatalf("push over limit should drop")
	}
	if in.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", in.Dropped())
	}

	in.Leave("c")

	batch := in.Drain(nil)
	if len(batch) != 3 || batch[0].Peer != "a" || batch[1].Peer != "b" || !batch[2].Left {
		t.Fatalf("batch = %+v, want a, b, then c leaving", batch)
	}
	if again := in.Drain(nil); len(again) != 0 {
		t.Fatalf("second drain = %+v, want empty", again)
	}
}
