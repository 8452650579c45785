package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/automoto/kringsringen-sync/shared/netconfig"
)

var (
	ErrPacketType   = errors.New("unexpected packet type")
	ErrVersion      = errors.New("unsupported protocol version")
	ErrTruncated    = errors.New("truncated frame")
	ErrFieldTooLong = errors.New("field exceeds wire limit")
	ErrPayload      = errors.New("invalid frame payload")
)

// Snapshot frame layout (big-endian):
//
//	[type u8][version u8][ts f64][count u16]
//	per entity: [idLen u8][id][x i16][y i16][hp i16][animLen u8][anim][flip u8]
//	players add: [weaponLen u8][weapon][nameLen u8][name]
//
// Integers outside the int16 range are truncated to their low 16 bits; callers
// clamp with netcomponents.ClampCoord before encoding.
const (
	headerSize     = 1 + 1 + 8 + 2
	minEnemyBytes  = 1 + 2 + 2 + 2 + 1 + 1
	minPlayerBytes = minEnemyBytes + 1 + 1
)

// EncodeEnemies packs an enemy-sync frame.
func EncodeEnemies(enemies []netcomponents.EnemySnapshot, ts float64) ([]byte, error) {
	w, err := newWriter(netconfig.PacketEnemySync, ts, len(enemies), 24)
	if err != nil {
		return nil, err
	}
	for i := range enemies {
		if err := w.entity(enemies[i].ID, enemies[i].X, enemies[i].Y, enemies[i].Health, enemies[i].Anim, enemies[i].FlipX); err != nil {
			return nil, fmt.Errorf("enemy %d: %w", i, err)
		}
	}
	return w.buf, nil
}

// DecodeEnemies unpacks an enemy-sync frame.
func DecodeEnemies(data []byte) ([]netcomponents.EnemySnapshot, float64, error) {
	r := &reader{buf: data}
	ts, count, err := r.header(netconfig.PacketEnemySync)
	if err != nil {
		return nil, 0, err
	}

	enemies := make([]netcomponents.EnemySnapshot, 0, r.capHint(count, minEnemyBytes))
	for i := 0; i < count; i++ {
		var e netcomponents.EnemySnapshot
		e.ID, e.X, e.Y, e.Health, e.Anim, e.FlipX = r.entity()
		if r.err != nil {
			return nil, 0, fmt.Errorf("enemy %d of %d: %w", i, count, r.err)
		}
		enemies = append(enemies, e)
	}
	return enemies, ts, nil
}

// EncodePlayers packs a player-sync frame carrying every listed player.
func EncodePlayers(players []netcomponents.PlayerSnapshot, ts float64) ([]byte, error) {
	w, err := newWriter(netconfig.PacketPlayerSync, ts, len(players), 40)
	if err != nil {
		return nil, err
	}
	for i := range players {
		p := &players[i]
		if err := w.entity(p.ID, p.X, p.Y, p.Health, p.Anim, p.FlipX); err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
		if err := w.str(p.Weapon); err != nil {
			return nil, fmt.Errorf("player %d weapon: %w", i, err)
		}
		if err := w.str(p.Name); err != nil {
			return nil, fmt.Errorf("player %d name: %w", i, err)
		}
	}
	return w.buf, nil
}

// DecodePlayers unpacks a player-sync frame.
func DecodePlayers(data []byte) ([]netcomponents.PlayerSnapshot, float64, error) {
	r := &reader{buf: data}
	ts, count, err := r.header(netconfig.PacketPlayerSync)
	if err != nil {
		return nil, 0, err
	}

	players := make([]netcomponents.PlayerSnapshot, 0, r.capHint(count, minPlayerBytes))
	for i := 0; i < count; i++ {
		var p netcomponents.PlayerSnapshot
		p.ID, p.X, p.Y, p.Health, p.Anim, p.FlipX = r.entity()
		p.Weapon = r.str()
		p.Name = r.str()
		if r.err != nil {
			return nil, 0, fmt.Errorf("player %d of %d: %w", i, count, r.err)
		}
		players = append(players, p)
	}
	return players, ts, nil
}

// EncodePlayer packs a single player, the client -> host form of player-sync.
func EncodePlayer(player netcomponents.PlayerSnapshot, ts float64) ([]byte, error) {
	return EncodePlayers([]netcomponents.PlayerSnapshot{player}, ts)
}

// DecodePlayer unpacks a single-player frame. Frames with more than one player
// yield the first.
func DecodePlayer(data []byte) (netcomponents.PlayerSnapshot, float64, error) {
	players, ts, err := DecodePlayers(data)
	if err != nil {
		return netcomponents.PlayerSnapshot{}, 0, err
	}
	if len(players) == 0 {
		return netcomponents.PlayerSnapshot{}, 0, fmt.Errorf("empty player frame: %w", ErrPayload)
	}
	return players[0], ts, nil
}

// TruncateUTF8 shortens s to at most max bytes without splitting a rune.
func TruncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type writer struct {
	buf []byte
}

func newWriter(t netconfig.PacketType, ts float64, count, perEntity int) (*writer, error) {
	if count > netconfig.MaxEntities {
		return nil, fmt.Errorf("%d entities: %w", count, ErrFieldTooLong)
	}
	w := &writer{buf: make([]byte, 0, headerSize+count*perEntity)}
	w.buf = append(w.buf, byte(t), netconfig.ProtocolVersion)
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(ts))
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(count))
	return w, nil
}

func (w *writer) entity(id string, x, y, hp int, anim string, flip bool) error {
	if err := w.str(id); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	w.i16(x)
	w.i16(y)
	w.i16(hp)
	if err := w.str(anim); err != nil {
		return fmt.Errorf("anim: %w", err)
	}
	if flip {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return nil
}

func (w *writer) i16(v int) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(int16(v)))
}

func (w *writer) str(s string) error {
	if len(s) > netconfig.MaxStringBytes {
		return fmt.Errorf("%d bytes: %w", len(s), ErrFieldTooLong)
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// reader latches the first error; subsequent reads return zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) header(want netconfig.PacketType) (float64, int, error) {
	if len(r.buf) < headerSize {
		return 0, 0, fmt.Errorf("header needs %d bytes, have %d: %w", headerSize, len(r.buf), ErrTruncated)
	}
	if got := netconfig.PacketType(r.buf[0]); got != want {
		return 0, 0, fmt.Errorf("got %s (%d), want %s: %w", got, r.buf[0], want, ErrPacketType)
	}
	if r.buf[1] != netconfig.ProtocolVersion {
		return 0, 0, fmt.Errorf("version %d: %w", r.buf[1], ErrVersion)
	}
	ts := math.Float64frombits(binary.BigEndian.Uint64(r.buf[2:10]))
	count := int(binary.BigEndian.Uint16(r.buf[10:12]))
	r.off = headerSize
	return ts, count, nil
}

// capHint bounds preallocation by what the remaining bytes could hold, so a
// corrupt count cannot force a large allocation.
func (r *reader) capHint(count, minSize int) int {
	most := (len(r.buf) - r.off) / minSize
	if count < most {
		return count
	}
	return most
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, r.off, len(r.buf)-r.off, ErrTruncated)
		return false
	}
	return true
}

func (r *reader) entity() (id string, x, y, hp int, anim string, flip bool) {
	id = r.str()
	x = r.i16()
	y = r.i16()
	hp = r.i16()
	anim = r.str()
	flip = r.u8() != 0
	return
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) i16() int {
	if !r.need(2) {
		return 0
	}
	v := int16(binary.BigEndian.Uint16(r.buf[r.off:]))
	r.off += 2
	return int(v)
}

func (r *reader) str() string {
	n := int(r.u8())
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s
}
