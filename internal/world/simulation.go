package world

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/logging"
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/terrain"
	"github.com/annel0/topdown-sim/internal/vec"
)

var (
	// ErrUnknownEntity сущность с таким ID не зарегистрирована
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrDuplicateEntity ID уже занят другой сущностью
	ErrDuplicateEntity = errors.New("duplicate entity id")
	// ErrOutOfRange цель взаимодействия слишком далеко
	ErrOutOfRange = errors.New("target is out of interaction range")
)

// InteractionRange максимальное расстояние между центрами игрока и цели взаимодействия
const InteractionRange = 64.0

// firstEntityID первый автоматический ID; сущности и коллайдеры карты делят одно пространство ID
const firstEntityID = 1000

// EventSink принимает игровые события вместе с номером тика
type EventSink interface {
	Emit(tick uint64, ev entity.Event)
}

// EventSinkFunc адаптер функции к EventSink
type EventSinkFunc func(tick uint64, ev entity.Event)

// Emit реализует EventSink
func (f EventSinkFunc) Emit(tick uint64, ev entity.Event) { f(tick, ev) }

// BehaviorError паника в поведении сущности
type BehaviorError struct {
	EntityID uint64
	Kind     entity.Kind
	Err      error
}

func (e *BehaviorError) Error() string {
	return fmt.Sprintf("behavior %s (%d): %v", e.Kind, e.EntityID, e.Err)
}

func (e *BehaviorError) Unwrap() error { return e.Err }

// TickReport итог одного тика симуляции
type TickReport struct {
	Tick      uint64
	Behaviors int
	Physics   physics.StepStats
	Removed   int
	Failures  []error
	Duration  time.Duration
}

// Simulation владеет физическим миром и реестром сущностей.
// Реализует entity.WorldAPI и выполняет тик в фиксированном порядке:
// поведение, физика, уборка. Не потокобезопасна.
type Simulation struct {
	physics  *physics.World
	terrain  *terrain.TileMap
	entities map[uint64]*entity.Entity
	order    []*entity.Entity
	statics  map[uint64]*physics.StaticObject
	nextID   uint64

	effects   entity.EffectSink
	audio     entity.AudioSink
	inventory entity.Inventory
	sink      EventSink
	rng       *rand.Rand
	log       *logging.Logger

	physicsOpts []physics.Option
	tick        uint64
}

// Option настраивает Simulation
type Option func(*Simulation)

// WithTerrain подключает карту тайлов; её непроходимые участки становятся статикой,
// а размер карты задаёт границы мира, если они не указаны в конфигурации
func WithTerrain(m *terrain.TileMap) Option {
	return func(s *Simulation) { s.terrain = m }
}

// WithEffects задаёт приёмник визуальных эффектов
func WithEffects(sink entity.EffectSink) Option {
	return func(s *Simulation) { s.effects = sink }
}

// WithAudio задаёт приёмник звуков
func WithAudio(sink entity.AudioSink) Option {
	return func(s *Simulation) { s.audio = sink }
}

// WithInventory задаёт хранилище инвентарей игроков
func WithInventory(inv entity.Inventory) Option {
	return func(s *Simulation) { s.inventory = inv }
}

// WithEventSink задаёт получателя игровых событий
func WithEventSink(sink EventSink) Option {
	return func(s *Simulation) { s.sink = sink }
}

// WithSeed делает случайность симуляции детерминированной
func WithSeed(seed int64) Option {
	return func(s *Simulation) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithPhysicsMetrics подключает Prometheus-метрики физического мира
func WithPhysicsMetrics(m *physics.Metrics) Option {
	return func(s *Simulation) { s.physicsOpts = append(s.physicsOpts, physics.WithMetrics(m)) }
}

// WithLogger заменяет логгер симуляции
func WithLogger(l *logging.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

// NewSimulation создаёт симуляцию и регистрирует обработчики групп столкновений
func NewSimulation(cfg physics.Config, opts ...Option) *Simulation {
	s := &Simulation{
		entities: make(map[uint64]*entity.Entity),
		statics:  make(map[uint64]*physics.StaticObject),
		nextID:   firstEntityID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.GetWorldLogger()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.effects == nil || s.audio == nil {
		ls := &logSink{log: s.log}
		if s.effects == nil {
			s.effects = ls
		}
		if s.audio == nil {
			s.audio = ls
		}
	}

	groups := physics.DefaultGroupTable()
	groups.SetCallback(physics.GroupPlayer, s.onPlayerCollision)
	groups.SetCallback(physics.GroupProjectile, s.onProjectileCollision)
	if s.terrain != nil && !(cfg.Bounds.W > 0 && cfg.Bounds.H > 0) {
		cfg.Bounds = s.terrain.Bounds()
	}
	s.physics = physics.NewWorld(cfg, groups, s.physicsOpts...)

	if s.terrain != nil {
		s.addTerrainColliders()
	}
	return s
}

// addTerrainColliders превращает непроходимые тайлы в статические объекты
func (s *Simulation) addTerrainColliders() {
	rects := s.terrain.BlockingRects()
	for _, r := range rects {
		s.AddStaticObject(physics.NewStaticObject(s.NextID(), "terrain", r))
	}
	s.log.Info("🗺️ Карта %dx%d: %d статических коллайдеров", s.terrain.Width(), s.terrain.Height(), len(rects))
}

// Physics возвращает физический мир
func (s *Simulation) Physics() *physics.World { return s.physics }

// Terrain возвращает карту тайлов (может быть nil)
func (s *Simulation) Terrain() *terrain.TileMap { return s.terrain }

// CurrentTick номер последнего выполненного тика
func (s *Simulation) CurrentTick() uint64 { return s.tick }

// EntityCount количество зарегистрированных сущностей
func (s *Simulation) EntityCount() int { return len(s.order) }

// Entities возвращает сущности в порядке регистрации
func (s *Simulation) Entities() []*entity.Entity {
	return append([]*entity.Entity(nil), s.order...)
}

// NextID выдаёт новый уникальный ID
func (s *Simulation) NextID() uint64 {
	for {
		id := s.nextID
		s.nextID++
		_, entityTaken := s.entities[id]
		_, staticTaken := s.statics[id]
		if !entityTaken && !staticTaken {
			return id
		}
	}
}

// AddEntity регистрирует сущность в реестре и физическом мире.
// Нулевой ID заменяется новым.
func (s *Simulation) AddEntity(e *entity.Entity) (uint64, error) {
	if e.ID == 0 {
		e.ID = s.NextID()
	}
	_, isStatic := s.statics[e.ID]
	if _, exists := s.entities[e.ID]; exists || isStatic {
		return 0, fmt.Errorf("add entity %d: %w", e.ID, ErrDuplicateEntity)
	}
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}

	s.entities[e.ID] = e
	s.order = append(s.order, e)
	s.physics.AddEntity(e, e.Group)

	s.log.Debug("➕ %s %q (%d) добавлен в %.1f,%.1f", e.Kind, e.Name, e.ID, e.Position.X, e.Position.Y)
	return e.ID, nil
}

// AddStaticObject регистрирует неподвижное препятствие
func (s *Simulation) AddStaticObject(obj *physics.StaticObject) {
	s.statics[obj.ID] = obj
	s.physics.AddStaticObject(obj, physics.GroupSolid)
}

// RemoveStaticObject удаляет препятствие по ID
func (s *Simulation) RemoveStaticObject(id uint64) error {
	obj, ok := s.statics[id]
	if !ok {
		return fmt.Errorf("remove static %d: %w", id, ErrUnknownEntity)
	}
	delete(s.statics, id)
	if err := s.physics.RemoveStaticObject(obj); err != nil {
		return fmt.Errorf("remove static %d: %w", id, err)
	}
	return nil
}

// Entity возвращает сущность по ID
func (s *Simulation) Entity(id uint64) (*entity.Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrUnknownEntity)
	}
	return e, nil
}

// MovePlayer задаёт направление движения игрока (ввод извне ядра)
func (s *Simulation) MovePlayer(id uint64, dir vec.Vec2Float) error {
	p, err := s.Entity(id)
	if err != nil {
		return err
	}
	if p.Kind != entity.KindPlayer {
		return fmt.Errorf("move %d: %s is not a player", id, p.Kind)
	}
	if !p.Alive() {
		return nil
	}
	dir = dir.Normalized()
	p.Velocity = dir.Mul(p.Speed)
	if !dir.IsZero() {
		p.Facing = vec.FacingFromVector(dir)
	}
	return nil
}

// Fire выпускает снаряд из центра сущности-источника
func (s *Simulation) Fire(sourceID uint64, dir vec.Vec2Float, cfg entity.ProjectileConfig) (*entity.Entity, error) {
	src, err := s.Entity(sourceID)
	if err != nil {
		return nil, err
	}
	if !src.Alive() {
		return nil, fmt.Errorf("fire from %d: source is not alive", sourceID)
	}

	cfg.SourceID = sourceID
	cfg.Direction = dir
	p := entity.NewProjectile(s, s.NextID(), vec.Vec2Float{}, cfg)
	p.Position = src.Center().Sub(p.Size.Mul(0.5))
	if _, err := s.AddEntity(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Interact выполняет действие игрока над целью в радиусе взаимодействия
func (s *Simulation) Interact(playerID, targetID uint64) (bool, error) {
	player, err := s.Entity(playerID)
	if err != nil {
		return false, fmt.Errorf("interact: %w", err)
	}
	target, err := s.Entity(targetID)
	if err != nil {
		return false, fmt.Errorf("interact: %w", err)
	}
	if player.DistanceTo(target) > InteractionRange {
		return false, fmt.Errorf("interact %d -> %d: %w", playerID, targetID, ErrOutOfRange)
	}
	return entity.Interact(s, target, player), nil
}

// Update выполняет один тик длительностью dt
func (s *Simulation) Update(dt time.Duration) TickReport {
	start := time.Now()
	s.tick++
	report := TickReport{Tick: s.tick}

	// Поведение
	for _, e := range append([]*entity.Entity(nil), s.order...) {
		if !e.Active {
			continue
		}
		report.Behaviors++
		if err := s.runBehavior(e, dt); err != nil {
			report.Failures = append(report.Failures, err)
		}
	}

	// Физика
	report.Physics = s.physics.Update(dt)
	report.Failures = append(report.Failures, report.Physics.Failures...)

	// Уборка
	report.Removed = s.housekeeping()

	report.Duration = time.Since(start)
	if dt > 0 && report.Duration > dt {
		s.log.Warn("🐢 Тик %d занял %v при бюджете %v", s.tick, report.Duration, dt)
	}
	return report
}

// runBehavior изолирует панику поведения одной сущности
func (s *Simulation) runBehavior(e *entity.Entity, dt time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BehaviorError{EntityID: e.ID, Kind: e.Kind, Err: fmt.Errorf("panic: %v", r)}
			s.log.Error("❌ Поведение %s (%d) упало: %v", e.Kind, e.ID, r)
		}
	}()
	entity.Update(s, e, dt)
	return nil
}

// housekeeping удаляет неактивные сущности из реестра и физики
func (s *Simulation) housekeeping() int {
	removed := 0
	kept := s.order[:0]
	for _, e := range s.order {
		if e.Active {
			kept = append(kept, e)
			continue
		}
		if err := s.physics.RemoveEntity(e); err != nil && !errors.Is(err, physics.ErrNotRegistered) {
			s.log.Warn("⚠️ Не удалось убрать %d из физики: %v", e.ID, err)
		}
		delete(s.entities, e.ID)
		removed++
	}
	for i := len(kept); i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = kept
	return removed
}

// onPlayerCollision: подбор предметов, триггеры и контактный урон
func (s *Simulation) onPlayerCollision(self, other physics.Object, _ physics.Collision) error {
	player, ok := self.(*entity.Entity)
	if !ok {
		return fmt.Errorf("player callback: unexpected self %T", self)
	}
	target, ok := other.(*entity.Entity)
	if !ok {
		return nil
	}

	switch target.Kind {
	case entity.KindItem:
		entity.Collect(s, target, player)
	case entity.KindObject:
		if target.Object != nil && target.Object.Type == entity.ObjectTrigger {
			entity.FireTrigger(s, target, player)
		}
	case entity.KindEnemy:
		entity.ApplyContactDamage(s, player, target)
	}
	return nil
}

// onProjectileCollision: урон сущностям и уничтожение о статику
func (s *Simulation) onProjectileCollision(self, other physics.Object, _ physics.Collision) error {
	projectile, ok := self.(*entity.Entity)
	if !ok || projectile.Projectile == nil {
		return fmt.Errorf("projectile callback: unexpected self %T", self)
	}
	if target, isEntity := other.(*entity.Entity); isEntity {
		entity.ProjectileHit(s, projectile, target)
		return nil
	}
	if other.PhysicsBody().Static && !projectile.Projectile.KeepOnTerrain {
		entity.DestroyProjectile(s, projectile)
	}
	return nil
}
