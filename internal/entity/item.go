package entity

import (
	"github.com/annel0/topdown-sim/internal/vec"
)

// ItemData предмет, лежащий в мире
type ItemData struct {
	Stack       ItemStack
	PickupSound string
}

// NewItem создаёт подбираемый предмет. Предмет является сенсором и никого не выталкивает.
func NewItem(id uint64, pos vec.Vec2Float, stack ItemStack) *Entity {
	if stack.Quantity <= 0 {
		stack.Quantity = 1
	}
	e := newEntity(id, KindItem, pos, 24, 24)
	e.Solid = false
	e.Sensor = true
	e.Friction = 1
	if stack.Name != "" {
		e.Name = stack.Name
	}
	e.Item = &ItemData{Stack: stack, PickupSound: "pickup"}
	return e
}

// Collect передаёт предмет в инвентарь игрока.
// Если инвентарь полон, предмет остаётся в мире.
func Collect(w WorldAPI, item, player *Entity) bool {
	if item.Item == nil || !item.Active || player.Kind != KindPlayer || !player.Alive() {
		return false
	}

	if inv := w.Inventory(); inv != nil {
		if !inv.AddItem(player.ID, item.Item.Stack) {
			w.Emit(Message{PlayerID: player.ID, Text: "Инвентарь полон"})
			return false
		}
	}

	if item.Item.PickupSound != "" {
		w.Audio().PlaySound(item.Item.PickupSound)
	}
	w.Emit(ItemPickup{ItemEntityID: item.ID, PlayerID: player.ID, Item: item.Item.Stack})
	w.Despawn(item)
	return true
}
