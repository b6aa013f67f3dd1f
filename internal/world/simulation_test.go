package world

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/terrain"
	"github.com/annel0/topdown-sim/internal/vec"
)

const frame = 16 * time.Millisecond

type recordedEvent struct {
	tick uint64
	ev   entity.Event
}

type recordingSink struct {
	events []recordedEvent
}

func (r *recordingSink) Emit(tick uint64, ev entity.Event) {
	r.events = append(r.events, recordedEvent{tick: tick, ev: ev})
}

func (r *recordingSink) ofType(kind string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.ev.EventType() == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestSimulation(t *testing.T, opts ...Option) (*Simulation, *recordingSink, *MemoryInventory) {
	t.Helper()
	sink := &recordingSink{}
	inv := NewMemoryInventory(4)
	opts = append([]Option{WithSeed(42), WithEventSink(sink), WithInventory(inv)}, opts...)
	return NewSimulation(physics.DefaultConfig(), opts...), sink, inv
}

func passiveEnemy(pos vec.Vec2Float) *entity.Entity {
	cfg := entity.DefaultEnemyConfig()
	cfg.DetectionRange = 1
	cfg.Speed = 0.1
	return entity.NewEnemy(0, pos, cfg)
}

func mustAdd(t *testing.T, sim *Simulation, e *entity.Entity) *entity.Entity {
	t.Helper()
	_, err := sim.AddEntity(e)
	require.NoError(t, err)
	return e
}

func TestAddEntityAssignsIDs(t *testing.T) {
	sim, _, _ := newTestSimulation(t)

	a := mustAdd(t, sim, entity.NewPlayer(0, "a", vec.Vec2Float{}, 100))
	b := mustAdd(t, sim, entity.NewPlayer(0, "b", vec.Vec2Float{X: 100}, 100))
	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "ID должны быть уникальными")

	manual := mustAdd(t, sim, entity.NewPlayer(5000, "c", vec.Vec2Float{X: 200}, 100))
	assert.Equal(t, uint64(5000), manual.ID)
	assert.Greater(t, sim.NextID(), uint64(5000), "Счётчик обгоняет ручные ID")

	_, err := sim.AddEntity(entity.NewPlayer(5000, "dup", vec.Vec2Float{}, 100))
	assert.ErrorIs(t, err, ErrDuplicateEntity)
	assert.Equal(t, 3, sim.EntityCount())
}

func TestEntityLookup(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	p := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))

	got, err := sim.Entity(p.ID)
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = sim.Entity(424242)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestItemPickupThroughCollision(t *testing.T) {
	sim, sink, inv := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	item := mustAdd(t, sim, entity.NewItem(0, vec.Vec2Float{X: 33, Y: 4}, entity.ItemStack{ItemID: "potion", Name: "Potion"}))

	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	report := sim.Update(frame)

	assert.Empty(t, report.Failures)
	assert.True(t, inv.HasItem(player.ID, "potion"), "Предмет должен попасть в инвентарь")
	assert.False(t, item.Active)
	assert.InDelta(t, 3.0, player.Position.X, 1e-9, "Сенсор не выталкивает игрока")

	_, found := sim.FindEntity(item.ID)
	assert.False(t, found, "Подобранный предмет убирается в конце тика")
	assert.Equal(t, 1, report.Removed)

	pickups := sink.ofType("item-pickup")
	require.Len(t, pickups, 1)
	assert.Equal(t, uint64(1), pickups[0].tick)
}

func TestFullInventoryKeepsItem(t *testing.T) {
	sim, sink, inv := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	for i := 0; i < 4; i++ {
		require.True(t, inv.AddItem(player.ID, entity.ItemStack{ItemID: string(rune('a' + i))}))
	}
	item := mustAdd(t, sim, entity.NewItem(0, vec.Vec2Float{X: 33}, entity.ItemStack{ItemID: "sword"}))

	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	sim.Update(frame)

	assert.True(t, item.Active, "При полном инвентаре предмет остаётся в мире")
	assert.NotEmpty(t, sink.ofType("message"))
	assert.Empty(t, sink.ofType("item-pickup"))
}

func TestTriggerFiresOnEnter(t *testing.T) {
	sim, sink, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	mustAdd(t, sim, entity.NewObject(0, vec.Vec2Float{X: 33}, entity.ObjectConfig{
		Type: entity.ObjectTrigger, TriggerID: "gate", Once: true,
	}))

	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	sim.Update(frame)
	sim.Update(frame)

	triggers := sink.ofType("trigger")
	require.Len(t, triggers, 1, "Одноразовый триггер срабатывает один раз")
	assert.Equal(t, "gate", triggers[0].ev.(entity.TriggerActivated).TriggerID)
}

func TestEnemyContactDamageAndImmunity(t *testing.T) {
	sim, sink, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	mustAdd(t, sim, passiveEnemy(vec.Vec2Float{X: 33}))

	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	sim.Update(frame)

	assert.Equal(t, 99, player.Health, "Контактный урон по умолчанию равен 1")
	assert.Less(t, player.Velocity.X, 0.0, "Игрока отбрасывает от врага")
	assert.Equal(t, entity.ContactImmunity, player.Player.Immunity)

	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	sim.Update(frame)
	assert.Equal(t, 99, player.Health, "Во время неуязвимости урона нет")
	assert.Len(t, sink.ofType("player-damaged"), 1)
}

func TestEnemyDeathRemovesCorpseAfterDelay(t *testing.T) {
	sim, sink, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	enemy := mustAdd(t, sim, passiveEnemy(vec.Vec2Float{X: 300}))

	enemy.TakeDamage(sim, 1000, player.ID)
	assert.Equal(t, entity.StateDie, enemy.State)
	assert.Equal(t, 10, player.Player.Experience, "Опыт начисляется сразу")

	step := 100 * time.Millisecond
	for i := 0; i < 9; i++ {
		sim.Update(step)
	}
	_, found := sim.FindEntity(enemy.ID)
	assert.True(t, found, "Тело остаётся до конца анимации смерти")
	assert.Empty(t, sink.ofType("enemy-death"))

	sim.Update(step)
	_, found = sim.FindEntity(enemy.ID)
	assert.False(t, found)

	deaths := sink.ofType("enemy-death")
	require.Len(t, deaths, 1)
	assert.Equal(t, uint64(10), deaths[0].tick)
	assert.Equal(t, player.ID, deaths[0].ev.(entity.EnemyDeath).KillerID)
}

func TestEnemyLootSpawnsCenteredOnCorpse(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))

	cfg := entity.DefaultEnemyConfig()
	cfg.DetectionRange = 1
	cfg.Loot = []entity.LootEntry{{Item: entity.ItemStack{ItemID: "gold", Quantity: 3}, Chance: 1}}
	enemy := mustAdd(t, sim, entity.NewEnemy(0, vec.Vec2Float{X: 200, Y: 200}, cfg))

	before := sim.EntityCount()
	enemy.TakeDamage(sim, 1000, player.ID)
	require.Equal(t, before+1, sim.EntityCount())

	loot := sim.Entities()[before]
	require.Equal(t, entity.KindItem, loot.Kind)
	assert.Equal(t, enemy.Center(), loot.Center(), "Добыча появляется в центре тела")
}

func TestProjectileHitsEnemy(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	enemy := mustAdd(t, sim, passiveEnemy(vec.Vec2Float{X: 60}))

	cfg := entity.DefaultProjectileConfig()
	cfg.Damage = 10
	projectile, err := sim.Fire(player.ID, vec.Vec2Float{X: 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, player.Center(), projectile.Center())

	for i := 0; i < 30 && enemy.Health == enemy.MaxHealth; i++ {
		sim.Update(frame)
	}

	assert.Equal(t, enemy.MaxHealth-10, enemy.Health)
	assert.Equal(t, 100, player.Health, "Снаряд не задевает своего владельца")
	assert.False(t, projectile.Active, "Непробивающий снаряд уничтожается")

	sim.Update(frame)
	_, found := sim.FindEntity(projectile.ID)
	assert.False(t, found)
}

func TestFireUnknownSource(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	_, err := sim.Fire(77, vec.Vec2Float{X: 1}, entity.DefaultProjectileConfig())
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestInteractRangeAndTargets(t *testing.T) {
	sim, sink, _ := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	npc := mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{X: 40}, entity.NPCConfig{
		Name: "Старейшина", Dialogues: []string{"Здравствуй"},
	}))
	far := mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{X: 500}, entity.NPCConfig{}))

	ok, err := sim.Interact(player.ID, npc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.StateTalk, npc.State)

	talks := sink.ofType("npc-interact")
	require.Len(t, talks, 1)
	assert.Equal(t, "Здравствуй", talks[0].ev.(entity.NPCInteract).Line)

	_, err = sim.Interact(player.ID, far.ID)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = sim.Interact(player.ID, 99999)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestLockedChestNeedsKey(t *testing.T) {
	sim, sink, inv := newTestSimulation(t)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	chest := mustAdd(t, sim, entity.NewObject(0, vec.Vec2Float{X: 40}, entity.ObjectConfig{
		Type: entity.ObjectChest, Locked: true, KeyID: "key",
		Contents: []entity.ItemStack{{ItemID: "ring"}},
	}))

	ok, err := sim.Interact(player.ID, chest.ID)
	require.NoError(t, err)
	assert.False(t, ok, "Без ключа сундук не открывается")
	assert.NotEmpty(t, sink.ofType("message"))

	require.True(t, inv.AddItem(player.ID, entity.ItemStack{ItemID: "key"}))
	before := sim.EntityCount()
	ok, err = sim.Interact(player.ID, chest.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, inv.HasItem(player.ID, "key"), "Ключ расходуется")
	assert.Equal(t, before+1, sim.EntityCount(), "Содержимое сундука появляется в мире")
}

func TestBehaviorPanicIsContained(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	broken := &entity.Entity{
		Body: physics.Body{Size: vec.Vec2Float{X: 8, Y: 8}, Active: true, Group: physics.GroupEnemy},
		Kind: entity.KindEnemy,
	}
	mustAdd(t, sim, broken)
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{X: 200}, 100))
	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))

	var report TickReport
	require.NotPanics(t, func() { report = sim.Update(frame) })

	require.Len(t, report.Failures, 1)
	var behaviorErr *BehaviorError
	require.True(t, errors.As(report.Failures[0], &behaviorErr))
	assert.Equal(t, broken.ID, behaviorErr.EntityID)
	assert.InDelta(t, 203.0, player.Position.X, 1e-9, "Остальные сущности продолжают двигаться")
}

func TestDespawnIsCompletedByHousekeeping(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	npc := mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{}, entity.NPCConfig{}))

	sim.Despawn(npc)
	_, found := sim.FindEntity(npc.ID)
	assert.True(t, found, "До уборки ссылка ещё разрешается")
	assert.Empty(t, sim.Physics().Entities(), "Физика забывает сущность сразу")

	report := sim.Update(frame)
	assert.Equal(t, 1, report.Removed)
	assert.Zero(t, sim.EntityCount())
}

func TestEntitiesInRangeGridAndScan(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	near := mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{}, entity.NPCConfig{}))
	mid := mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{X: 20}, entity.NPCConfig{}))
	mustAdd(t, sim, entity.NewNPC(0, vec.Vec2Float{X: 600}, entity.NPCConfig{}))

	center := near.Center()
	small := sim.EntitiesInRange(center, 25)
	assert.ElementsMatch(t, []*entity.Entity{near, mid}, small)

	large := sim.EntitiesInRange(center, 500)
	assert.ElementsMatch(t, []*entity.Entity{near, mid}, large, "Полный перебор даёт тот же результат")

	assert.Nil(t, sim.EntitiesInRange(center, -1))
}

func TestTerrainCollidersAndSight(t *testing.T) {
	m := terrain.NewTileMap(10, 10, 32)
	for ty := 0; ty < 10; ty++ {
		m.Set(5, ty, terrain.TileWall)
	}
	sim, _, _ := newTestSimulation(t, WithTerrain(m))

	assert.Len(t, sim.Physics().StaticObjects(), len(m.BlockingRects()))
	assert.True(t, sim.IsTileBlocking(170, 10))
	assert.False(t, sim.IsTileBlocking(10, 10))
	assert.Equal(t, 32.0, sim.TileSize())

	assert.False(t, sim.LineOfSight(vec.Vec2Float{X: 16, Y: 16}, vec.Vec2Float{X: 300, Y: 16}), "Стена закрывает обзор")
	assert.True(t, sim.LineOfSight(vec.Vec2Float{X: 16, Y: 16}, vec.Vec2Float{X: 16, Y: 300}))

	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{X: 126}, 100))
	require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
	sim.Update(frame)
	assert.InDelta(t, 128.0, player.Position.X, 1e-9, "Стена останавливает игрока")
}

func TestClosedDoorBlocksSight(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	door := mustAdd(t, sim, entity.NewObject(0, vec.Vec2Float{X: 100, Y: 0}, entity.ObjectConfig{Type: entity.ObjectDoor, Toggleable: true}))
	from, to := vec.Vec2Float{X: 16, Y: 16}, vec.Vec2Float{X: 300, Y: 16}

	assert.False(t, sim.LineOfSight(from, to))
	door.Solid = false
	assert.True(t, sim.LineOfSight(from, to))
}

func TestNoTerrainDefaults(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	assert.False(t, sim.IsTileBlocking(0, 0))
	assert.Zero(t, sim.TileSize())
	assert.Nil(t, sim.Terrain())
}

func TestProjectileHitsEntityPushedBackAcrossCells(t *testing.T) {
	sim, _, _ := newTestSimulation(t)
	sim.AddStaticObject(physics.NewStaticObject(1, "wall", physics.Rect{X: 60, Y: -100, W: 100, H: 300}))
	shooter := mustAdd(t, sim, passiveEnemy(vec.Vec2Float{X: 500, Y: 500}))
	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{X: 20}, 100))

	// Игрок влетает в стену и выталкивается обратно через границу ячейки
	player.Velocity = vec.Vec2Float{X: 20}
	sim.Update(frame)
	require.InDelta(t, 28.0, player.Position.X, 1e-9)

	cfg := entity.DefaultProjectileConfig()
	cfg.SourceID = shooter.ID
	cfg.Direction = vec.Vec2Float{X: -1}
	p := mustAdd(t, sim, entity.NewProjectile(sim, 0, vec.Vec2Float{X: 14, Y: 8}, cfg))
	require.True(t, physics.CheckAABB(p.Bounds(), player.Bounds()).Collided)

	sim.Update(frame)
	assert.Equal(t, 90, player.Health)
	assert.False(t, p.Active)
}

func TestTerrainBoundsKeepEntitiesOnMap(t *testing.T) {
	m := terrain.NewTileMap(4, 4, 32)
	sim, _, _ := newTestSimulation(t, WithTerrain(m))
	assert.Equal(t, m.Bounds(), sim.Physics().Config().Bounds)

	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{X: 0, Y: 40}, 100))
	for i := 0; i < 120; i++ {
		require.NoError(t, sim.MovePlayer(player.ID, vec.Vec2Float{X: 1}))
		sim.Update(frame)
	}
	assert.InDelta(t, 96.0, player.Position.X, 1e-9, "Игрок упирается в край карты")
	assert.LessOrEqual(t, player.Bounds().Right(), 128.0)
}

func TestProjectileDestroyedAtWorldEdge(t *testing.T) {
	cfg := physics.DefaultConfig()
	cfg.Bounds = physics.Rect{W: 200, H: 200}
	sim := NewSimulation(cfg, WithSeed(1))

	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{X: 160, Y: 80}, 100))
	p, err := sim.Fire(player.ID, vec.Vec2Float{X: 1}, entity.DefaultProjectileConfig())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		sim.Update(frame)
	}
	assert.Equal(t, entity.StateDestroyed, p.State)
	assert.False(t, p.Active)
	assert.LessOrEqual(t, p.Bounds().Right(), 200.0)
	assert.Equal(t, 1, sim.EntityCount())
}

func TestTerrainCollidersShareIDSpace(t *testing.T) {
	m := terrain.NewTileMap(8, 8, 32)
	for ty := 0; ty < 8; ty++ {
		m.Set(3, ty, terrain.TileWall)
	}
	sim, _, _ := newTestSimulation(t, WithTerrain(m))

	statics := sim.Physics().StaticObjects()
	require.Len(t, statics, 8)
	ids := make(map[uint64]bool)
	for _, obj := range statics {
		id := obj.PhysicsBody().ID
		assert.GreaterOrEqual(t, id, uint64(firstEntityID))
		ids[id] = true
	}

	player := mustAdd(t, sim, entity.NewPlayer(0, "hero", vec.Vec2Float{}, 100))
	assert.False(t, ids[player.ID], "ID сущности не совпадает с ID коллайдера карты")

	wallID := statics[0].PhysicsBody().ID
	_, err := sim.AddEntity(entity.NewPlayer(wallID, "dup", vec.Vec2Float{}, 100))
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	require.NoError(t, sim.RemoveStaticObject(wallID))
	assert.Len(t, sim.Physics().StaticObjects(), 7)
}
