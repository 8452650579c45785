package core

import (
	"sort"

	"github.com/automoto/kringsringen-sync/shared/netcomponents"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// HealthChange is published whenever an entity's health changes. Events are
// delivered on Store.Flush, once per tick.
type HealthChange struct {
	ID     string
	Kind   netcomponents.EntityKind
	Old    int
	New    int
	Source string // Peer that caused it, empty for host simulation
}

// Despawn is published when an entity leaves the store.
type Despawn struct {
	ID   string
	Kind netcomponents.EntityKind
	Peer string
}

// Move is published when SetPosition changes an entity's position.
type Move struct {
	ID         string
	Kind       netcomponents.EntityKind
	OldX, OldY float64
	X, Y       float64
}

// AppearanceChange is published when SetAppearance changes what peers draw.
type AppearanceChange struct {
	ID   string
	Kind netcomponents.EntityKind
	Old  netcomponents.NetAppearanceData
	New  netcomponents.NetAppearanceData
}

var (
	HealthChanged     = events.NewEventType[HealthChange]()
	Despawned         = events.NewEventType[Despawn]()
	Moved             = events.NewEventType[Move]()
	AppearanceChanged = events.NewEventType[AppearanceChange]()
)

// Store is the authoritative entity registry, keyed by entity id. The host's
// simulation and the sync core both read and write it from the tick goroutine.
type Store struct {
	world donburi.World
	byID  map[string]donburi.Entity
}

func NewStore() *Store {
	return &Store{
		world: donburi.NewWorld(),
		byID:  make(map[string]donburi.Entity),
	}
}

// Spawn adds an entity. Spawning an existing id replaces its state.
func (s *Store) Spawn(id string, kind netcomponents.EntityKind, peer string, x, y float64, health int) {
	if e, ok := s.byID[id]; ok && s.world.Valid(e) {
		entry := s.world.Entry(e)
		netcomponents.NetPosition.SetValue(entry, netcomponents.NetPositionData{X: x, Y: y})
		netcomponents.NetHealth.SetValue(entry, netcomponents.NetHealthData{Current: health, Max: health})
		return
	}

	entity := s.world.Create(
		netcomponents.NetIdentity,
		netcomponents.NetPosition,
		netcomponents.NetHealth,
		netcomponents.NetAppearance,
	)
	entry := s.world.Entry(entity)
	netcomponents.NetIdentity.SetValue(entry, netcomponents.NetIdentityData{ID: id, Kind: kind, Peer: peer})
	netcomponents.NetPosition.SetValue(entry, netcomponents.NetPositionData{X: x, Y: y})
	netcomponents.NetHealth.SetValue(entry, netcomponents.NetHealthData{Current: health, Max: health})
	s.byID[id] = entity
}

// Despawn removes id and publishes a Despawn event.
func (s *Store) Despawn(id string) bool {
	entry := s.entry(id)
	if entry == nil {
		return false
	}
	ident := netcomponents.NetIdentity.Get(entry)
	Despawned.Publish(s.world, Despawn{ID: id, Kind: ident.Kind, Peer: ident.Peer})
	s.world.Remove(entry.Entity())
	delete(s.byID, id)
	return true
}

func (s *Store) entry(id string) *donburi.Entry {
	e, ok := s.byID[id]
	if !ok || !s.world.Valid(e) {
		return nil
	}
	return s.world.Entry(e)
}

func (s *Store) Has(id string) bool { return s.entry(id) != nil }

func (s *Store) Kind(id string) (netcomponents.EntityKind, bool) {
	entry := s.entry(id)
	if entry == nil {
		return 0, false
	}
	return netcomponents.NetIdentity.Get(entry).Kind, true
}

func (s *Store) Position(id string) (x, y float64, ok bool) {
	entry := s.entry(id)
	if entry == nil {
		return 0, 0, false
	}
	p := netcomponents.NetPosition.Get(entry)
	return p.X, p.Y, true
}

func (s *Store) SetPosition(id string, x, y float64) bool {
	entry := s.entry(id)
	if entry == nil {
		return false
	}
	p := netcomponents.NetPosition.Get(entry)
	if p.X == x && p.Y == y {
		return true
	}
	ident := netcomponents.NetIdentity.Get(entry)
	Moved.Publish(s.world, Move{ID: id, Kind: ident.Kind, OldX: p.X, OldY: p.Y, X: x, Y: y})
	p.X, p.Y = x, y
	return true
}

func (s *Store) Health(id string) (netcomponents.NetHealthData, bool) {
	entry := s.entry(id)
	if entry == nil {
		return netcomponents.NetHealthData{}, false
	}
	return *netcomponents.NetHealth.Get(entry), true
}

// SetHealth overwrites id's current health and publishes the change.
func (s *Store) SetHealth(id string, health int, source string) bool {
	entry := s.entry(id)
	if entry == nil {
		return false
	}
	s.changeHealth(entry, health, source)
	return true
}

// Alive reports whether id exists with health above zero.
func (s *Store) Alive(id string) bool {
	h, ok := s.Health(id)
	return ok && h.Current > 0
}

// ApplyDamage subtracts dmg (negative values count as zero) and returns the
// remaining health.
func (s *Store) ApplyDamage(id string, dmg int, source string) (int, bool) {
	entry := s.entry(id)
	if entry == nil {
		return 0, false
	}
	if dmg < 0 {
		dmg = 0
	}
	h := netcomponents.NetHealth.Get(entry)
	s.changeHealth(entry, h.Current-dmg, source)
	return h.Current, true
}

func (s *Store) changeHealth(entry *donburi.Entry, health int, source string) {
	h := netcomponents.NetHealth.Get(entry)
	if h.Current == health {
		return
	}
	ident := netcomponents.NetIdentity.Get(entry)
	HealthChanged.Publish(s.world, HealthChange{ID: ident.ID, Kind: ident.Kind, Old: h.Current, New: health, Source: source})
	h.Current = health
}

func (s *Store) Appearance(id string) (netcomponents.NetAppearanceData, bool) {
	entry := s.entry(id)
	if entry == nil {
		return netcomponents.NetAppearanceData{}, false
	}
	return *netcomponents.NetAppearance.Get(entry), true
}

func (s *Store) SetAppearance(id string, a netcomponents.NetAppearanceData) bool {
	entry := s.entry(id)
	if entry == nil {
		return false
	}
	old := netcomponents.NetAppearance.Get(entry)
	if *old == a {
		return true
	}
	ident := netcomponents.NetIdentity.Get(entry)
	AppearanceChanged.Publish(s.world, AppearanceChange{ID: id, Kind: ident.Kind, Old: *old, New: a})
	netcomponents.NetAppearance.SetValue(entry, a)
	return true
}

// IDs returns the ids of every entity of kind, sorted.
func (s *Store) IDs(kind netcomponents.EntityKind) []string {
	var ids []string
	for id, e := range s.byID {
		if !s.world.Valid(e) {
			continue
		}
		if netcomponents.NetIdentity.Get(s.world.Entry(e)).Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// PeerEntities returns the ids owned by peer.
func (s *Store) PeerEntities(peer string) []string {
	var ids []string
	for id, e := range s.byID {
		if s.world.Valid(e) && netcomponents.NetIdentity.Get(s.world.Entry(e)).Peer == peer {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int { return len(s.byID) }

// OnHealthChanged registers fn for health change events.
func (s *Store) OnHealthChanged(fn func(HealthChange)) {
	HealthChanged.Subscribe(s.world, func(_ donburi.World, e HealthChange) { fn(e) })
}

// OnDespawned registers fn for despawn events.
func (s *Store) OnDespawned(fn func(Despawn)) {
	Despawned.Subscribe(s.world, func(_ donburi.World, e Despawn) { fn(e) })
}

// OnMoved registers fn for position change events.
func (s *Store) OnMoved(fn func(Move)) {
	Moved.Subscribe(s.world, func(_ donburi.World, e Move) { fn(e) })
}

// OnAppearanceChanged registers fn for appearance change events.
func (s *Store) OnAppearanceChanged(fn func(AppearanceChange)) {
	AppearanceChanged.Subscribe(s.world, func(_ donburi.World, e AppearanceChange) { fn(e) })
}

// Flush delivers queued change events to subscribers.
func (s *Store) Flush() {
	Moved.ProcessEvents(s.world)
	AppearanceChanged.ProcessEvents(s.world)
	HealthChanged.ProcessEvents(s.world)
	Despawned.ProcessEvents(s.world)
}
