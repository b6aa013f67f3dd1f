package entity

import (
	"math/rand"
	"time"

	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

// Range диапазон значений для визуальных эффектов
type Range struct {
	Min, Max float64
}

// EffectSpec описание эффекта частиц для рендерера
type EffectSpec struct {
	Position vec.Vec2Float
	Count    int
	Lifetime time.Duration
	Color    string
	Size     Range
	Speed    Range
	Gravity  float64
}

// EffectStyle стиль эффекта, который сущность создаёт при событии
type EffectStyle struct {
	Color string
}

// EffectSink приёмник визуальных эффектов (fire-and-forget)
type EffectSink interface {
	CreateEffect(spec EffectSpec)
}

// AudioSink приёмник звуков (fire-and-forget)
type AudioSink interface {
	PlaySound(name string)
}

// ItemStack предмет, передаваемый в инвентарь игрока
type ItemStack struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	ItemType    string `json:"item_type"` // weapon, armor, potion, misc
	Value       int    `json:"value"`
	Quantity    int    `json:"quantity"`
	Stackable   bool   `json:"stackable"`
	Description string `json:"description,omitempty"`
}

// Inventory внешнее хранилище предметов игроков (UI инвентаря вне ядра)
type Inventory interface {
	AddItem(playerID uint64, item ItemStack) bool
	HasItem(playerID uint64, itemID string) bool
	RemoveItem(playerID uint64, itemID string) bool
}

// Terrain запрос к карте тайлов
type Terrain interface {
	IsBlocking(x, y float64) bool
	TileSize() float64
}

// WorldAPI явный контекст мира, передаваемый в каждое обновление поведения.
// Заменяет глобальный объект игры.
type WorldAPI interface {
	// FindEntity разрешает слабую ссылку по ID
	FindEntity(id uint64) (*Entity, bool)

	// EntitiesInRange возвращает активные сущности, центр которых не дальше radius
	EntitiesInRange(center vec.Vec2Float, radius float64) []*Entity

	// Overlapping возвращает broad-phase кандидатов для бокса
	Overlapping(box physics.Rect) []physics.Object

	// LineOfSight проверяет, что между точками нет статических препятствий
	LineOfSight(from, to vec.Vec2Float) bool

	// IsTileBlocking проверяет непроходимость тайла в мировых координатах
	IsTileBlocking(x, y float64) bool

	// TileSize возвращает размер тайла карты
	TileSize() float64

	// SpawnItem создаёт предмет в мире (добыча)
	SpawnItem(item ItemStack, at vec.Vec2Float) *Entity

	// Despawn помечает сущность неактивной и убирает её из физики
	Despawn(e *Entity)

	Effects() EffectSink
	Audio() AudioSink
	Inventory() Inventory

	// Emit публикует игровое событие
	Emit(ev Event)

	// Rand источник случайности симуляции
	Rand() *rand.Rand
}
