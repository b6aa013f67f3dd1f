package entity

import (
	"math/rand"

	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

// fakeWorld минимальная реализация WorldAPI для тестов автоматов
type fakeWorld struct {
	entities   []*Entity
	statics    []physics.Object
	blocked    map[[2]int]bool
	tileSize   float64
	blockSight bool

	events    []Event
	effects   []EffectSpec
	sounds    []string
	spawned   []*Entity
	despawned []uint64
	inv       *fakeInventory
	rng       *rand.Rand
	nextID    uint64
}

func newFakeWorld(entities ...*Entity) *fakeWorld {
	return &fakeWorld{
		entities: entities,
		blocked:  make(map[[2]int]bool),
		tileSize: 32,
		inv:      newFakeInventory(10),
		rng:      rand.New(rand.NewSource(42)),
		nextID:   1000,
	}
}

func (w *fakeWorld) add(e *Entity) *Entity {
	w.entities = append(w.entities, e)
	return e
}

func (w *fakeWorld) FindEntity(id uint64) (*Entity, bool) {
	for _, e := range w.entities {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (w *fakeWorld) EntitiesInRange(center vec.Vec2Float, radius float64) []*Entity {
	var out []*Entity
	for _, e := range w.entities {
		if e.Active && e.Center().DistanceTo(center) <= radius {
			out = append(out, e)
		}
	}
	return out
}

func (w *fakeWorld) Overlapping(box physics.Rect) []physics.Object {
	var out []physics.Object
	for _, e := range w.entities {
		if physics.CheckAABB(box, e.Bounds()).Collided {
			out = append(out, e)
		}
	}
	for _, s := range w.statics {
		if physics.CheckAABB(box, s.PhysicsBody().Bounds()).Collided {
			out = append(out, s)
		}
	}
	return out
}

func (w *fakeWorld) LineOfSight(from, to vec.Vec2Float) bool { return !w.blockSight }

func (w *fakeWorld) block(tx, ty int) { w.blocked[[2]int{tx, ty}] = true }

func (w *fakeWorld) IsTileBlocking(x, y float64) bool {
	if x < 0 || y < 0 {
		return false
	}
	return w.blocked[[2]int{int(x / w.tileSize), int(y / w.tileSize)}]
}

func (w *fakeWorld) TileSize() float64 { return w.tileSize }

func (w *fakeWorld) SpawnItem(item ItemStack, at vec.Vec2Float) *Entity {
	w.nextID++
	e := NewItem(w.nextID, at, item)
	w.spawned = append(w.spawned, e)
	w.entities = append(w.entities, e)
	return e
}

func (w *fakeWorld) Despawn(e *Entity) {
	e.Active = false
	w.despawned = append(w.despawned, e.ID)
}

func (w *fakeWorld) Effects() EffectSink { return w }
func (w *fakeWorld) Audio() AudioSink { return w }
func (w *fakeWorld) Inventory() Inventory { return w.inv }
func (w *fakeWorld) Emit(ev Event) { w.events = append(w.events, ev) }
func (w *fakeWorld) Rand() *rand.Rand { return w.rng }
func (w *fakeWorld) CreateEffect(s EffectSpec) { w.effects = append(w.effects, s) }
func (w *fakeWorld) PlaySound(name string) { w.sounds = append(w.sounds, name) }

func (w *fakeWorld) eventsOf(kind string) []Event {
	var out []Event
	for _, ev := range w.events {
		if ev.EventType() == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fakeInventory struct {
	capacity int
	items    map[uint64][]ItemStack
}

func newFakeInventory(capacity int) *fakeInventory {
	return &fakeInventory{capacity: capacity, items: make(map[uint64][]ItemStack)}
}

func (f *fakeInventory) AddItem(playerID uint64, item ItemStack) bool {
	if len(f.items[playerID]) >= f.capacity {
		return false
	}
	f.items[playerID] = append(f.items[playerID], item)
	return true
}

func (f *fakeInventory) HasItem(playerID uint64, itemID string) bool {
	for _, it := range f.items[playerID] {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}

func (f *fakeInventory) RemoveItem(playerID uint64, itemID string) bool {
	list := f.items[playerID]
	for i, it := range list {
		if it.ItemID == itemID {
			f.items[playerID] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}
