package entity

import (
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

// Kind тип сущности
type Kind uint8

const (
	KindPlayer Kind = iota
	KindEnemy
	KindNPC
	KindItem
	KindProjectile
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindNPC:
		return "npc"
	case KindItem:
		return "item"
	case KindProjectile:
		return "projectile"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Group возвращает группу столкновений по умолчанию для типа
func (k Kind) Group() physics.Group {
	switch k {
	case KindPlayer:
		return physics.GroupPlayer
	case KindEnemy:
		return physics.GroupEnemy
	case KindNPC:
		return physics.GroupNPC
	case KindItem:
		return physics.GroupItem
	case KindProjectile:
		return physics.GroupProjectile
	default:
		return physics.GroupSolid
	}
}

// State тег конечного автомата. Набор допустимых значений зависит от типа сущности.
type State uint8

const (
	StateIdle State = iota
	StateChase
	StateAttack
	StateHurt
	StateDie
	StateWander
	StateFollow
	StatePatrol
	StateTalk
	StateAlive     // снаряд летит
	StateDestroyed // снаряд уничтожен
	StateClosed
	StateOpen
	StateLocked
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateChase:     "chase",
	StateAttack:    "attack",
	StateHurt:      "hurt",
	StateDie:       "die",
	StateWander:    "wander",
	StateFollow:    "follow",
	StatePatrol:    "patrol",
	StateTalk:      "talk",
	StateAlive:     "alive",
	StateDestroyed: "destroyed",
	StateClosed:    "closed",
	StateOpen:      "open",
	StateLocked:    "locked",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Animation намерение анимации; рендерер сам решает, как его показать
type Animation string

const (
	AnimIdle   Animation = "idle"
	AnimWalk   Animation = "walk"
	AnimAttack Animation = "attack"
	AnimHurt   Animation = "hurt"
	AnimDie    Animation = "die"
	AnimTalk   Animation = "talk"
	AnimFly    Animation = "fly"
)

// Entity игровая сущность. Общие поля лежат здесь, данные конкретного типа
// хранятся в одном из указателей Enemy/NPC/Projectile/Item/Player/Object.
type Entity struct {
	physics.Body

	Kind      Kind
	Name      string
	State     State
	Animation Animation
	Facing    vec.Facing
	Speed     float64

	Health    int
	MaxHealth int

	// TargetID слабая ссылка на цель; 0 означает отсутствие цели
	TargetID uint64

	Player     *PlayerData
	Enemy      *EnemyData
	NPC        *NPCData
	Projectile *ProjectileData
	Item       *ItemData
	Object     *ObjectData
}

// newEntity заполняет общие поля
func newEntity(id uint64, kind Kind, pos vec.Vec2Float, w, h float64) *Entity {
	return &Entity{
		Body: physics.Body{
			ID:       id,
			Position: pos,
			Size:     vec.Vec2Float{X: w, Y: h},
			Solid:    true,
			Group:    kind.Group(),
			Friction: 0.8,
			Active:   true,
		},
		Kind:      kind,
		Name:      kind.String(),
		State:     StateIdle,
		Animation: AnimIdle,
		Facing:    vec.FacingDown,
		Speed:     2,
	}
}

// Alive сущность активна и не мертва
func (e *Entity) Alive() bool {
	if !e.Active {
		return false
	}
	switch {
	case e.Enemy != nil && e.Enemy.Dead:
		return false
	case e.Player != nil && e.Player.Dead:
		return false
	case e.MaxHealth > 0 && e.Health <= 0:
		return false
	}
	return true
}

// DistanceTo расстояние между центрами
func (e *Entity) DistanceTo(other *Entity) float64 {
	return e.Center().DistanceTo(other.Center())
}

// TakeDamage наносит урон и возвращает оставшееся здоровье.
// Сущности без здоровья (предметы, объекты, NPC) урон игнорируют.
func (e *Entity) TakeDamage(w WorldAPI, amount int, sourceID uint64) int {
	if amount < 0 {
		amount = 0
	}
	switch e.Kind {
	case KindEnemy:
		return enemyTakeDamage(w, e, amount, sourceID)
	case KindPlayer:
		return playerTakeDamage(w, e, amount, sourceID)
	default:
		return e.Health
	}
}

// ResolveTarget разрешает слабую ссылку на цель.
// Пропавшая или мёртвая цель сбрасывается.
func (e *Entity) ResolveTarget(w WorldAPI) (*Entity, bool) {
	if e.TargetID == 0 {
		return nil, false
	}
	target, ok := w.FindEntity(e.TargetID)
	if !ok || !target.Alive() {
		e.TargetID = 0
		return nil, false
	}
	return target, true
}
