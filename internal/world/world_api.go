package world

import (
	"errors"
	"math/rand"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

var _ entity.WorldAPI = (*Simulation)(nil)

// FindEntity разрешает слабую ссылку по ID
func (s *Simulation) FindEntity(id uint64) (*entity.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// EntitiesInRange возвращает активные сущности, центр которых не дальше radius от center.
// Кандидаты берутся из сетки; при очень большом радиусе выгоднее полный перебор.
func (s *Simulation) EntitiesInRange(center vec.Vec2Float, radius float64) []*entity.Entity {
	if radius < 0 {
		return nil
	}

	var result []*entity.Entity
	cells := 2*radius/s.physics.Index().CellSize() + 1
	if cells*cells > float64(4*len(s.order)) {
		for _, e := range s.order {
			if e.Active && e.Center().DistanceTo(center) <= radius {
				result = append(result, e)
			}
		}
		return result
	}

	box := physics.Rect{X: center.X - radius, Y: center.Y - radius, W: 2 * radius, H: 2 * radius}
	for _, obj := range s.physics.Retrieve(box) {
		e, ok := obj.(*entity.Entity)
		if !ok || !e.Active {
			continue
		}
		if e.Center().DistanceTo(center) <= radius {
			result = append(result, e)
		}
	}
	return result
}

// Overlapping возвращает broad-phase кандидатов для бокса
func (s *Simulation) Overlapping(box physics.Rect) []physics.Object {
	return s.physics.Retrieve(box)
}

// LineOfSight проверяет, что луч между точками не упирается в статику или закрытые объекты
func (s *Simulation) LineOfSight(from, to vec.Vec2Float) bool {
	dir := to.Sub(from)
	dist := dir.Length()
	if dist == 0 {
		return true
	}
	hit, err := s.physics.RayCastFiltered(from, dir, dist, blocksSight)
	return err != nil || !hit.Hit
}

// blocksSight взгляд перекрывают статика и твёрдые объекты (закрытые двери, сундуки)
func blocksSight(obj physics.Object) bool {
	body := obj.PhysicsBody()
	if !body.Solid || body.Sensor {
		return false
	}
	if body.Static {
		return true
	}
	e, ok := obj.(*entity.Entity)
	return ok && e.Kind == entity.KindObject
}

// IsTileBlocking проверяет непроходимость тайла; без карты всё проходимо
func (s *Simulation) IsTileBlocking(x, y float64) bool {
	if s.terrain == nil {
		return false
	}
	return s.terrain.IsBlocking(x, y)
}

// TileSize возвращает размер тайла или 0 без карты
func (s *Simulation) TileSize() float64 {
	if s.terrain == nil {
		return 0
	}
	return s.terrain.TileSize()
}

// SpawnItem создаёт предмет с центром в точке at
func (s *Simulation) SpawnItem(item entity.ItemStack, at vec.Vec2Float) *entity.Entity {
	e := entity.NewItem(s.NextID(), vec.Vec2Float{}, item)
	e.Position = at.Sub(e.Size.Mul(0.5))
	if _, err := s.AddEntity(e); err != nil {
		s.log.Warn("⚠️ Не удалось создать предмет %s: %v", item.ItemID, err)
		return nil
	}
	return e
}

// Despawn деактивирует сущность и убирает её из физики.
// Из реестра сущность удаляется при уборке в конце тика.
func (s *Simulation) Despawn(e *entity.Entity) {
	e.Active = false
	if err := s.physics.RemoveEntity(e); err != nil && !errors.Is(err, physics.ErrNotRegistered) {
		s.log.Warn("⚠️ Despawn %d: %v", e.ID, err)
	}
}

// Effects возвращает приёмник эффектов
func (s *Simulation) Effects() entity.EffectSink { return s.effects }

// Audio возвращает приёмник звуков
func (s *Simulation) Audio() entity.AudioSink { return s.audio }

// Inventory возвращает хранилище инвентарей (может быть nil)
func (s *Simulation) Inventory() entity.Inventory { return s.inventory }

// Emit передаёт событие получателю вместе с номером текущего тика
func (s *Simulation) Emit(ev entity.Event) {
	s.log.Debug("📣 Событие %s на тике %d", ev.EventType(), s.tick)
	if s.sink != nil {
		s.sink.Emit(s.tick, ev)
	}
}

// Rand источник случайности симуляции
func (s *Simulation) Rand() *rand.Rand { return s.rng }
