package world

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/eventbus"
	"github.com/annel0/topdown-sim/internal/logging"
)

// EventSource имя источника в конвертах шины
const EventSource = "simulation"

// DefaultPublishTimeout ограничение ожидания шины для одного события
const DefaultPublishTimeout = 50 * time.Millisecond

// BusSink публикует игровые события в шину событий.
// Номер тика попадает в CorrelationID конверта.
type BusSink struct {
	bus     eventbus.EventBus
	timeout time.Duration
	log     *logging.Logger
}

// NewBusSink создаёт адаптер событий симуляции к шине
func NewBusSink(bus eventbus.EventBus) *BusSink {
	return &BusSink{
		bus:     bus,
		timeout: DefaultPublishTimeout,
		log:     logging.GetEventBusLogger(),
	}
}

// Emit реализует EventSink. Ошибки публикации логируются и не останавливают тик.
func (b *BusSink) Emit(tick uint64, ev entity.Event) {
	env, err := eventbus.NewEnvelope(EventSource, ev.EventType(), priorityOf(ev), ev)
	if err != nil {
		b.log.Error("❌ Не удалось упаковать событие %s: %v", ev.EventType(), err)
		return
	}
	env.CorrelationID = strconv.FormatUint(tick, 10)

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.bus.Publish(ctx, env); err != nil {
		b.log.Warn("⚠️ Событие %s (тик %d) не опубликовано: %v", ev.EventType(), tick, err)
	}
}

// priorityOf сообщения игроку наименее важны, смерть игрока важнее остального
func priorityOf(ev entity.Event) int {
	switch ev.(type) {
	case entity.Message:
		return eventbus.PriorityLow
	case entity.PlayerDied:
		return eventbus.PriorityHigh
	default:
		return eventbus.PriorityNormal
	}
}

// logSink пишет эффекты и звуки в лог, если рендерер не подключён
type logSink struct {
	log *logging.Logger
}

func (l *logSink) CreateEffect(spec entity.EffectSpec) {
	l.log.Debug("✨ Эффект %s x%d в %.1f,%.1f", spec.Color, spec.Count, spec.Position.X, spec.Position.Y)
}

func (l *logSink) PlaySound(name string) {
	l.log.Debug("🔊 Звук %s", name)
}

// MemoryInventory простое хранилище инвентарей в памяти с ограничением числа слотов.
// Складываемые предметы с одинаковым ItemID занимают один слот.
type MemoryInventory struct {
	mu       sync.Mutex
	capacity int
	slots    map[uint64][]entity.ItemStack
}

// NewMemoryInventory создаёт хранилище; capacity <= 0 означает 20 слотов
func NewMemoryInventory(capacity int) *MemoryInventory {
	if capacity <= 0 {
		capacity = 20
	}
	return &MemoryInventory{capacity: capacity, slots: make(map[uint64][]entity.ItemStack)}
}

// AddItem кладёт предмет в инвентарь; false, если свободных слотов нет
func (m *MemoryInventory) AddItem(playerID uint64, item entity.ItemStack) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	slots := m.slots[playerID]
	if item.Stackable {
		for i := range slots {
			if slots[i].ItemID == item.ItemID {
				slots[i].Quantity += item.Quantity
				return true
			}
		}
	}
	if len(slots) >= m.capacity {
		return false
	}
	m.slots[playerID] = append(slots, item)
	return true
}

// HasItem проверяет наличие предмета
func (m *MemoryInventory) HasItem(playerID uint64, itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.slots[playerID] {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}

// RemoveItem забирает одну единицу предмета
func (m *MemoryInventory) RemoveItem(playerID uint64, itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := m.slots[playerID]
	for i := range slots {
		if slots[i].ItemID != itemID {
			continue
		}
		if slots[i].Quantity > 1 {
			slots[i].Quantity--
			return true
		}
		m.slots[playerID] = append(slots[:i], slots[i+1:]...)
		return true
	}
	return false
}

// Items возвращает копию инвентаря игрока
func (m *MemoryInventory) Items(playerID uint64) []entity.ItemStack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ItemStack(nil), m.slots[playerID]...)
}
