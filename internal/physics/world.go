package physics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annel0/topdown-sim/internal/logging"
	"github.com/annel0/topdown-sim/internal/vec"
)

// DefaultReferenceFrame длительность опорного кадра, к которому привязаны скорости
const DefaultReferenceFrame = 16 * time.Millisecond

// DefaultVelocityEpsilon порог, ниже которого скорость обнуляется
const DefaultVelocityEpsilon = 0.01

// ErrNotRegistered объект не зарегистрирован в мире
var ErrNotRegistered = errors.New("object is not registered in physics world")

// Config параметры физического мира
type Config struct {
	CellSize        float64
	Gravity         float64       // Ускорение в единицах скорости за секунду; 0 для вида сверху
	ReferenceFrame  time.Duration // Скорость задаётся в единицах за этот интервал
	VelocityEpsilon float64
	RayStep         float64
	Bounds          Rect // Границы мира; при нулевом размере не ограничены
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		CellSize:        DefaultCellSize,
		Gravity:         0,
		ReferenceFrame:  DefaultReferenceFrame,
		VelocityEpsilon: DefaultVelocityEpsilon,
		RayStep:         DefaultRayStep,
	}
}

// CallbackError ошибка или паника обработчика группы
type CallbackError struct {
	Group   Group
	SelfID  uint64
	OtherID uint64
	Err     error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("collision callback %s (%d vs %d): %v", e.Group, e.SelfID, e.OtherID, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// StepStats итог одного шага
type StepStats struct {
	Moved      int
	Collisions int
	Clamped    int
	Failures   []error
}

// World владеет сущностями, статикой, сеткой и таблицей групп.
// Все изменения выполняются только из цикла тика.
type World struct {
	cfg     Config
	index   *SpatialIndex
	rays    *RayCaster
	groups  GroupTable
	metrics *Metrics
	log     *logging.Logger

	entities []Object
	statics  []Object

	updating       bool
	pendingRemoval map[Object]struct{}
}

// Option настраивает World
type Option func(*World)

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(w *World) { w.metrics = m }
}

// WithLogger заменяет логгер мира
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.log = l }
}

// NewWorld создаёт физический мир
func NewWorld(cfg Config, groups GroupTable, opts ...Option) *World {
	def := DefaultConfig()
	if !(cfg.CellSize > 0) {
		cfg.CellSize = def.CellSize
	}
	if cfg.ReferenceFrame <= 0 {
		cfg.ReferenceFrame = def.ReferenceFrame
	}
	if !(cfg.VelocityEpsilon > 0) {
		cfg.VelocityEpsilon = def.VelocityEpsilon
	}
	if !(cfg.RayStep > 0) {
		cfg.RayStep = def.RayStep
	}
	if groups == nil {
		groups = DefaultGroupTable()
	}

	index := NewSpatialIndex(cfg.CellSize)
	w := &World{
		cfg:            cfg,
		index:          index,
		rays:           NewRayCaster(index, cfg.RayStep),
		groups:         groups,
		pendingRemoval: make(map[Object]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = NewMetrics(nil)
	}
	if w.log == nil {
		w.log = logging.GetPhysicsLogger()
	}
	return w
}

// Config возвращает конфигурацию мира
func (w *World) Config() Config { return w.cfg }

// Groups возвращает таблицу групп
func (w *World) Groups() GroupTable { return w.groups }

// Index возвращает пространственную сетку
func (w *World) Index() *SpatialIndex { return w.index }

// AddEntity регистрирует подвижную сущность в группе (по умолчанию solid)
func (w *World) AddEntity(obj Object, group Group) {
	body := obj.PhysicsBody()
	if group == "" {
		group = GroupSolid
	}
	body.Group = group
	body.Size = sanitizedSize(body.Size)
	delete(w.pendingRemoval, obj)

	if w.indexOf(w.entities, obj) == -1 {
		w.entities = append(w.entities, obj)
	}
	w.index.Insert(obj)
}

// RemoveEntity удаляет сущность. Во время шага удаление откладывается до конца шага.
func (w *World) RemoveEntity(obj Object) error {
	if w.indexOf(w.entities, obj) == -1 {
		return ErrNotRegistered
	}
	if w.updating {
		w.pendingRemoval[obj] = struct{}{}
		return nil
	}
	w.entities = removeObject(w.entities, obj)
	w.index.Remove(obj)
	return nil
}

// AddStaticObject регистрирует неподвижный объект
func (w *World) AddStaticObject(obj Object, group Group) {
	body := obj.PhysicsBody()
	if group == "" {
		group = GroupSolid
	}
	body.Group = group
	body.Static = true
	body.Size = sanitizedSize(body.Size)

	if w.indexOf(w.statics, obj) == -1 {
		w.statics = append(w.statics, obj)
	}
	w.index.Insert(obj)
}

// RemoveStaticObject удаляет неподвижный объект
func (w *World) RemoveStaticObject(obj Object) error {
	if w.indexOf(w.statics, obj) == -1 {
		return ErrNotRegistered
	}
	w.statics = removeObject(w.statics, obj)
	w.index.Remove(obj)
	return nil
}

// Entities возвращает копию списка сущностей
func (w *World) Entities() []Object {
	return append([]Object(nil), w.entities...)
}

// StaticObjects возвращает копию списка статических объектов
func (w *World) StaticObjects() []Object {
	return append([]Object(nil), w.statics...)
}

// Retrieve возвращает broad-phase кандидатов для бокса
func (w *World) Retrieve(box Rect) []Object {
	return w.index.Retrieve(box)
}

// RayCast бросает луч по текущему состоянию сетки
func (w *World) RayCast(origin, dir vec.Vec2Float, maxDistance float64) (RayHit, error) {
	return w.rays.Cast(origin, dir, maxDistance, nil)
}

// RayCastFiltered бросает луч, пропуская объекты, отвергнутые filter
func (w *World) RayCastFiltered(origin, dir vec.Vec2Float, maxDistance float64, filter RayFilter) (RayHit, error) {
	return w.rays.Cast(origin, dir, maxDistance, filter)
}

// Update выполняет один физический шаг длительностью dt.
// Сначала интегрируются все сущности, затем сетка перестраивается
// по новым позициям и разрешаются столкновения.
func (w *World) Update(dt time.Duration) StepStats {
	start := time.Now()
	w.updating = true

	var stats StepStats
	frames := float64(dt) / float64(w.cfg.ReferenceFrame)
	seconds := dt.Seconds()

	snapshot := append([]Object(nil), w.entities...)
	moved := make([]bool, len(snapshot))

	// Интеграция
	for i, obj := range snapshot {
		body := obj.PhysicsBody()
		if !body.Active {
			continue
		}
		moved[i] = w.integrate(body, frames, seconds)
		if moved[i] {
			stats.Moved++
		}
	}

	// Перестройка сетки
	w.index.Clear()
	for _, obj := range snapshot {
		if obj.PhysicsBody().Active {
			w.index.Insert(obj)
		}
	}
	for _, obj := range w.statics {
		w.index.Insert(obj)
	}

	// Столкновения
	for i, obj := range snapshot {
		body := obj.PhysicsBody()
		if !moved[i] || !body.Active || !body.Solid {
			continue
		}
		collisions, failures := w.checkCollisions(obj)
		stats.Collisions += collisions
		stats.Failures = append(stats.Failures, failures...)
	}

	// Границы мира
	if w.bounded() {
		for _, obj := range snapshot {
			body := obj.PhysicsBody()
			if body.Active && w.clampToBounds(body) {
				stats.Clamped++
				w.index.Insert(obj)
			}
		}
	}

	w.updating = false
	w.flushRemovals()

	w.metrics.tickDuration.Observe(time.Since(start).Seconds())
	w.metrics.activeEntities.Set(float64(w.countActive()))
	w.metrics.indexedObjects.Set(float64(w.index.GetObjectCount()))
	return stats
}

// integrate применяет гравитацию, скорость и трение. Возвращает true, если тело сдвинулось.
func (w *World) integrate(body *Body, frames, seconds float64) bool {
	if body.Gravity && w.cfg.Gravity != 0 {
		body.Grounded = false
		body.Velocity.Y += w.cfg.Gravity * seconds
	}

	from := body.Position
	if !body.Velocity.IsZero() {
		body.Position = body.Position.Add(body.Velocity.Mul(frames))
	}

	if body.Friction > 0 && body.Friction < 1 {
		decay := math.Pow(body.Friction, frames)
		body.Velocity = body.Velocity.Mul(decay)
	}
	if math.Abs(body.Velocity.X) < w.cfg.VelocityEpsilon {
		body.Velocity.X = 0
	}
	if math.Abs(body.Velocity.Y) < w.cfg.VelocityEpsilon {
		body.Velocity.Y = 0
	}

	if body.Position == from {
		return false
	}
	w.log.LogEntityMovement(body.ID, from.X, from.Y, body.Position.X, body.Position.Y)
	return true
}

func (w *World) bounded() bool {
	return w.cfg.Bounds.W > 0 && w.cfg.Bounds.H > 0
}

// clampToBounds возвращает тело в границы мира и гасит скорость по прижатой оси.
// Тело больше мира прижимается к левому верхнему углу.
func (w *World) clampToBounds(body *Body) bool {
	b := w.cfg.Bounds
	x := math.Max(b.X, math.Min(body.Position.X, b.Right()-body.Size.X))
	y := math.Max(b.Y, math.Min(body.Position.Y, b.Bottom()-body.Size.Y))

	clamped := false
	if x != body.Position.X {
		body.Position.X = x
		body.Velocity.X = 0
		clamped = true
	}
	if y != body.Position.Y {
		body.Position.Y = y
		body.Velocity.Y = 0
		clamped = true
	}
	body.AtBounds = clamped
	return clamped
}

// checkCollisions ищет и разрешает столкновения одной сущности
func (w *World) checkCollisions(obj Object) (int, []error) {
	body := obj.PhysicsBody()
	collisions := 0
	var failures []error

	for _, other := range w.index.Retrieve(body.Bounds()) {
		if other == obj {
			continue
		}
		// Обработчик мог деактивировать любую из сторон
		if !body.Active {
			break
		}
		otherBody := other.PhysicsBody()
		if !otherBody.Active || !(otherBody.Solid || otherBody.Sensor) {
			continue
		}
		if !w.groups.Compatible(body.Group, otherBody.Group) {
			continue
		}

		info := CheckAABB(body.Bounds(), otherBody.Bounds())
		if !info.Collided {
			continue
		}
		collisions++
		w.metrics.collisions.WithLabelValues(string(body.Group), string(otherBody.Group)).Inc()

		// Выталкивание могло перенести тело в другие ячейки
		if Resolve(body, otherBody, info) != AxisNone {
			w.index.Insert(obj)
		}

		if err := w.dispatch(obj, other, info); err != nil {
			failures = append(failures, err)
		}
		if err := w.dispatch(other, obj, info); err != nil {
			failures = append(failures, err)
		}
	}

	return collisions, failures
}

// dispatch вызывает обработчик группы self, изолируя ошибки и паники
func (w *World) dispatch(self, other Object, info Collision) (err error) {
	selfBody := self.PhysicsBody()
	cb := w.groups.Callback(selfBody.Group)
	if cb == nil {
		return nil
	}
	otherBody := other.PhysicsBody()

	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{
				Group:   selfBody.Group,
				SelfID:  selfBody.ID,
				OtherID: otherBody.ID,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
		if err != nil {
			w.metrics.callbackFailures.WithLabelValues(string(selfBody.Group)).Inc()
			w.log.Warn("⚠️ Ошибка обработчика столкновений: %v", err)
		}
	}()

	if cbErr := cb(self, other, info); cbErr != nil {
		return &CallbackError{Group: selfBody.Group, SelfID: selfBody.ID, OtherID: otherBody.ID, Err: cbErr}
	}
	return nil
}

// flushRemovals применяет отложенные удаления
func (w *World) flushRemovals() {
	if len(w.pendingRemoval) == 0 {
		return
	}
	kept := w.entities[:0]
	for _, obj := range w.entities {
		if _, remove := w.pendingRemoval[obj]; remove {
			w.index.Remove(obj)
			continue
		}
		kept = append(kept, obj)
	}
	for i := len(kept); i < len(w.entities); i++ {
		w.entities[i] = nil
	}
	w.entities = kept
	w.pendingRemoval = make(map[Object]struct{})
}

func (w *World) countActive() int {
	n := 0
	for _, obj := range w.entities {
		if obj.PhysicsBody().Active {
			n++
		}
	}
	return n
}

func (w *World) indexOf(list []Object, obj Object) int {
	for i, candidate := range list {
		if candidate == obj {
			return i
		}
	}
	return -1
}

func removeObject(list []Object, obj Object) []Object {
	for i, candidate := range list {
		if candidate == obj {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

func sanitizedSize(size vec.Vec2Float) vec.Vec2Float {
	if !(size.X > 0) {
		size.X = MinExtent
	}
	if !(size.Y > 0) {
		size.Y = MinExtent
	}
	return size
}
