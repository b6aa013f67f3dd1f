package entity

import (
	"fmt"

	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

// ObjectType тип интерактивного объекта
type ObjectType string

const (
	ObjectDoor    ObjectType = "door"
	ObjectChest   ObjectType = "chest"
	ObjectLever   ObjectType = "lever"
	ObjectSign    ObjectType = "sign"
	ObjectTrigger ObjectType = "trigger"
)

// ObjectConfig параметры интерактивного объекта
type ObjectConfig struct {
	Type          ObjectType
	Name          string
	Width, Height float64
	Locked        bool
	KeyID         string // Предмет, открывающий замок
	Toggleable    bool   // Может закрываться обратно
	Contents      []ItemStack
	TriggerID     string
	Once          bool // Триггер срабатывает один раз
	Dialogues     []string
}

// ObjectData состояние интерактивного объекта
type ObjectData struct {
	Type            ObjectType
	KeyID           string
	Toggleable      bool
	Contents        []ItemStack
	TriggerID       string
	Once            bool
	Fired           bool
	Dialogues       []string
	CurrentDialogue int
}

// NewObject создаёт интерактивный объект. Триггеры являются сенсорами, остальные объекты твёрдые.
func NewObject(id uint64, pos vec.Vec2Float, cfg ObjectConfig) *Entity {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 32, 32
	}
	e := newEntity(id, KindObject, pos, cfg.Width, cfg.Height)
	e.Friction = 1
	e.Name = string(cfg.Type)
	if cfg.Name != "" {
		e.Name = cfg.Name
	}

	switch {
	case cfg.Type == ObjectTrigger:
		e.Solid = false
		e.Sensor = true
		e.Group = physics.GroupTrigger
		e.State = StateIdle
	case cfg.Locked:
		e.State = StateLocked
	case cfg.Type == ObjectDoor || cfg.Type == ObjectChest:
		e.State = StateClosed
	default:
		e.State = StateIdle
	}

	e.Object = &ObjectData{
		Type:       cfg.Type,
		KeyID:      cfg.KeyID,
		Toggleable: cfg.Toggleable,
		Contents:   cfg.Contents,
		TriggerID:  cfg.TriggerID,
		Once:       cfg.Once,
		Dialogues:  cfg.Dialogues,
	}
	return e
}

// objectInteract обрабатывает действие игрока над объектом
func objectInteract(w WorldAPI, e, player *Entity) bool {
	o := e.Object
	if o.Type == ObjectTrigger {
		return FireTrigger(w, e, player)
	}

	if e.State == StateLocked {
		inv := w.Inventory()
		if o.KeyID == "" || inv == nil || !inv.HasItem(player.ID, o.KeyID) {
			w.Audio().PlaySound("locked")
			w.Emit(Message{PlayerID: player.ID, Text: fmt.Sprintf("%s заперт", e.Name)})
			return false
		}
		inv.RemoveItem(player.ID, o.KeyID)
		e.State = StateClosed
		w.Audio().PlaySound("unlock")
	}

	switch o.Type {
	case ObjectDoor:
		return toggleDoor(w, e)
	case ObjectChest:
		return openChest(w, e, player)
	case ObjectLever:
		if e.State == StateOpen {
			e.State = StateIdle
		} else {
			e.State = StateOpen
		}
		w.Audio().PlaySound("lever")
		w.Emit(TriggerActivated{TriggerID: o.TriggerID, SourceID: e.ID, PlayerID: player.ID})
		return true
	case ObjectSign:
		line := ""
		if len(o.Dialogues) > 0 {
			line = o.Dialogues[o.CurrentDialogue%len(o.Dialogues)]
			o.CurrentDialogue = (o.CurrentDialogue + 1) % len(o.Dialogues)
		}
		w.Emit(Message{PlayerID: player.ID, Text: line})
		return true
	default:
		return false
	}
}

// toggleDoor открывает дверь (она перестаёт быть твёрдой) или закрывает её
func toggleDoor(w WorldAPI, e *Entity) bool {
	if e.State == StateOpen {
		if !e.Object.Toggleable {
			return false
		}
		e.State = StateClosed
		e.Solid = true
		w.Audio().PlaySound("door_close")
		return true
	}
	e.State = StateOpen
	e.Solid = false
	w.Audio().PlaySound("door_open")
	return true
}

// openChest выкладывает содержимое сундука рядом с ним
func openChest(w WorldAPI, e, player *Entity) bool {
	if e.State == StateOpen {
		return false
	}
	e.State = StateOpen
	w.Audio().PlaySound("chest_open")

	spot := e.Center().Add(vec.Vec2Float{X: 0, Y: e.Size.Y})
	for i, stack := range e.Object.Contents {
		offset := vec.Vec2Float{X: float64(i%3-1) * 20, Y: float64(i/3) * 20}
		w.SpawnItem(stack, spot.Add(offset))
	}
	e.Object.Contents = nil
	w.Emit(TriggerActivated{TriggerID: e.Object.TriggerID, SourceID: e.ID, PlayerID: player.ID})
	return true
}

// FireTrigger срабатывает триггер при входе игрока
func FireTrigger(w WorldAPI, e, player *Entity) bool {
	o := e.Object
	if o == nil || !e.Active || player.Kind != KindPlayer {
		return false
	}
	if o.Once && o.Fired {
		return false
	}
	o.Fired = true
	w.Emit(TriggerActivated{TriggerID: o.TriggerID, SourceID: e.ID, PlayerID: player.ID})
	return true
}
