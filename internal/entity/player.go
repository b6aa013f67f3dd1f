package entity

import (
	"time"

	"github.com/annel0/topdown-sim/internal/vec"
)

const (
	// ContactImmunity неуязвимость игрока после контактного урона
	ContactImmunity = 1000 * time.Millisecond
	// KnockbackSpeed скорость отбрасывания от врага
	KnockbackSpeed = 5.0
	// ExperiencePerLevel опыт, необходимый на каждый уровень
	ExperiencePerLevel = 100
)

// PlayerData состояние игрока, которым управляет ядро
type PlayerData struct {
	Experience int
	Level      int
	Immunity   time.Duration // Оставшаяся неуязвимость к контактному урону
	Dead       bool
}

// NewPlayer создаёт игрока. Ввод игрока задаёт скорость снаружи ядра.
func NewPlayer(id uint64, name string, pos vec.Vec2Float, health int) *Entity {
	if health <= 0 {
		health = 100
	}
	e := newEntity(id, KindPlayer, pos, 32, 32)
	if name != "" {
		e.Name = name
	}
	e.Speed = 3
	e.Health = health
	e.MaxHealth = health
	e.Player = &PlayerData{Level: 1}
	return e
}

func updatePlayer(e *Entity, dt time.Duration) {
	p := e.Player
	if p.Immunity > 0 {
		p.Immunity -= dt
	}
	if p.Dead {
		stop(e)
		return
	}
	if !e.Velocity.IsZero() {
		e.Facing = vec.FacingFromVector(e.Velocity)
		e.Animation = AnimWalk
	} else if e.Animation == AnimWalk {
		e.Animation = AnimIdle
	}
}

func playerTakeDamage(w WorldAPI, e *Entity, amount int, sourceID uint64) int {
	p := e.Player
	if p.Dead || !e.Active {
		return e.Health
	}

	e.Health -= amount
	if e.Health < 0 {
		e.Health = 0
	}
	w.Emit(PlayerDamaged{PlayerID: e.ID, SourceID: sourceID, Amount: amount, Remaining: e.Health})

	if e.Health == 0 {
		p.Dead = true
		stop(e)
		e.Animation = AnimDie
		w.Emit(PlayerDied{PlayerID: e.ID, KillerID: sourceID})
		return 0
	}
	e.Animation = AnimHurt
	return e.Health
}

// AddExperience начисляет опыт игроку и пересчитывает уровень
func AddExperience(e *Entity, amount int) {
	if e.Player == nil || amount <= 0 {
		return
	}
	e.Player.Experience += amount
	e.Player.Level = 1 + e.Player.Experience/ExperiencePerLevel
}

// ApplyContactDamage наносит игроку урон от касания врага и отбрасывает его.
// Возвращает false, если игрок ещё неуязвим.
func ApplyContactDamage(w WorldAPI, player, enemy *Entity) bool {
	if player.Player == nil || enemy.Enemy == nil {
		return false
	}
	if player.Player.Immunity > 0 || !player.Alive() || !enemy.Alive() {
		return false
	}

	damage := enemy.Enemy.ContactDamage
	if damage <= 0 {
		damage = DefaultContactDamage
	}
	player.TakeDamage(w, damage, enemy.ID)
	player.Player.Immunity = ContactImmunity

	push := player.Center().Sub(enemy.Center())
	if push.IsZero() {
		push = vec.Vec2Float{X: 0, Y: 1}
	}
	player.Velocity = push.Normalized().Mul(KnockbackSpeed)
	return true
}
