package netcomponents

import "github.com/yohamta/donburi"

// EntityKind distinguishes the snapshot stream an entity is broadcast on.
type EntityKind int

const (
	KindPlayer EntityKind = iota
	KindEnemy
	KindBoss
)

func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindBoss:
		return "boss"
	}
	return "unknown"
}

type NetIdentityData struct {
	ID   string
	Kind EntityKind
	Peer string // Owning peer for players, empty for host-simulated entities
}

type NetHealthData struct {
	Current int
	Max     int
}

type NetAppearanceData struct {
	Anim   string
	FlipX  bool
	Weapon string // Players only
	Name   string // Players only
	Phase  int    // Boss only
}

var (
	NetIdentity   = donburi.NewComponentType[NetIdentityData]()
	NetHealth     = donburi.NewComponentType[NetHealthData]()
	NetAppearance = donburi.NewComponentType[NetAppearanceData]()
)
