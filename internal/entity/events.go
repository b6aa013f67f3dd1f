package entity

import "github.com/annel0/topdown-sim/internal/vec"

// Event игровое событие, которое ядро отдаёт внешним подсистемам
type Event interface {
	EventType() string
}

// EnemyDeath публикуется при удалении тела врага после анимации смерти
type EnemyDeath struct {
	EnemyID  uint64        `json:"enemy_id"`
	KillerID uint64        `json:"killer_id"`
	Position vec.Vec2Float `json:"position"`
}

func (EnemyDeath) EventType() string { return "enemy-death" }

// ItemPickup публикуется при подборе предмета
type ItemPickup struct {
	ItemEntityID uint64    `json:"item_entity_id"`
	PlayerID     uint64    `json:"player_id"`
	Item         ItemStack `json:"item"`
}

func (ItemPickup) EventType() string { return "item-pickup" }

// TriggerActivated публикуется при активации триггера или объекта
type TriggerActivated struct {
	TriggerID string `json:"trigger_id"`
	SourceID  uint64 `json:"source_id"`
	PlayerID  uint64 `json:"player_id"`
}

func (TriggerActivated) EventType() string { return "trigger" }

// NPCInteract публикуется, когда игрок заговорил с NPC
type NPCInteract struct {
	NPCID    uint64 `json:"npc_id"`
	PlayerID uint64 `json:"player_id"`
	Speaker  string `json:"speaker"`
	Line     string `json:"line"`
}

func (NPCInteract) EventType() string { return "npc-interact" }

// PlayerDamaged публикуется при получении игроком урона
type PlayerDamaged struct {
	PlayerID  uint64 `json:"player_id"`
	SourceID  uint64 `json:"source_id"`
	Amount    int    `json:"amount"`
	Remaining int    `json:"remaining"`
}

func (PlayerDamaged) EventType() string { return "player-damaged" }

// PlayerDied публикуется при смерти игрока
type PlayerDied struct {
	PlayerID uint64 `json:"player_id"`
	KillerID uint64 `json:"killer_id"`
}

func (PlayerDied) EventType() string { return "player-died" }

// Message сообщение для игрока (например, «заперто»)
type Message struct {
	PlayerID uint64 `json:"player_id"`
	Text     string `json:"text"`
}

func (Message) EventType() string { return "message" }
