package entity

import (
	"math"
	"time"

	"github.com/annel0/topdown-sim/internal/logging"
	"github.com/annel0/topdown-sim/internal/vec"
)

const (
	// HurtDuration время оглушения после урона
	HurtDuration = 300 * time.Millisecond
	// DeathDelay задержка между смертью и удалением тела
	DeathDelay = 1000 * time.Millisecond
	// LoseTargetFactor во сколько раз дальше радиуса обнаружения цель теряется
	LoseTargetFactor = 1.5
	// DefaultContactDamage урон игроку при касании врага
	DefaultContactDamage = 1
)

// LootEntry запись таблицы добычи
type LootEntry struct {
	Item   ItemStack
	Chance float64 // 0..1
}

// EnemyConfig параметры нового врага
type EnemyConfig struct {
	Name            string
	Width, Height   float64
	Health          int
	Speed           float64
	Damage          int
	ContactDamage   int
	AttackRange     float64
	DetectionRange  float64
	AttackSpeed     time.Duration
	ExperienceValue int
	LineOfSight     bool
	Loot            []LootEntry
}

// DefaultEnemyConfig параметры рядового врага
func DefaultEnemyConfig() EnemyConfig {
	return EnemyConfig{
		Name:            "enemy",
		Width:           32,
		Height:          32,
		Health:          50,
		Speed:           2,
		Damage:          10,
		ContactDamage:   DefaultContactDamage,
		AttackRange:     25,
		DetectionRange:  200,
		AttackSpeed:     time.Second,
		ExperienceValue: 10,
	}
}

// EnemyData состояние врага
type EnemyData struct {
	Damage          int
	ContactDamage   int
	AttackRange     float64
	DetectionRange  float64
	AttackSpeed     time.Duration
	ExperienceValue int
	LineOfSight     bool // Требовать прямую видимость для обнаружения
	Loot            []LootEntry

	AttackCooldown time.Duration
	HurtTimer      time.Duration
	RoamTimer      time.Duration
	DeathTimer     time.Duration
	Dead           bool
	KillerID       uint64
}

// NewEnemy создаёт врага в позиции pos
func NewEnemy(id uint64, pos vec.Vec2Float, cfg EnemyConfig) *Entity {
	def := DefaultEnemyConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.Health <= 0 {
		cfg.Health = def.Health
	}
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	if cfg.AttackSpeed <= 0 {
		cfg.AttackSpeed = def.AttackSpeed
	}
	if cfg.ContactDamage <= 0 {
		cfg.ContactDamage = def.ContactDamage
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}

	e := newEntity(id, KindEnemy, pos, cfg.Width, cfg.Height)
	e.Name = cfg.Name
	e.Speed = cfg.Speed
	e.Health = cfg.Health
	e.MaxHealth = cfg.Health
	e.Enemy = &EnemyData{
		Damage:          cfg.Damage,
		ContactDamage:   cfg.ContactDamage,
		AttackRange:     cfg.AttackRange,
		DetectionRange:  cfg.DetectionRange,
		AttackSpeed:     cfg.AttackSpeed,
		ExperienceValue: cfg.ExperienceValue,
		LineOfSight:     cfg.LineOfSight,
		Loot:            cfg.Loot,
	}
	return e
}

func updateEnemy(w WorldAPI, e *Entity, dt time.Duration) {
	d := e.Enemy

	if d.Dead {
		if tick(&d.DeathTimer, dt) && e.State == StateDie {
			w.Emit(EnemyDeath{EnemyID: e.ID, KillerID: d.KillerID, Position: e.Center()})
			w.Despawn(e)
		}
		return
	}

	if d.AttackCooldown > 0 {
		d.AttackCooldown -= dt
	}

	switch e.State {
	case StateIdle:
		enemyIdle(w, e, dt)
	case StateChase:
		enemyChase(w, e)
	case StateAttack:
		enemyAttack(w, e)
	case StateHurt:
		stop(e)
		if tick(&d.HurtTimer, dt) {
			if _, ok := e.ResolveTarget(w); ok {
				setState(e, StateChase)
			} else {
				setState(e, StateIdle)
			}
		}
	}
}

// enemyIdle ищет ближайшего игрока, иначе бродит
func enemyIdle(w WorldAPI, e *Entity, dt time.Duration) {
	d := e.Enemy

	if player := nearestVisiblePlayer(w, e); player != nil {
		e.TargetID = player.ID
		setState(e, StateChase)
		enemyChase(w, e)
		return
	}

	if d.RoamTimer > 0 {
		d.RoamTimer -= dt
		return
	}

	rng := w.Rand()
	if rng.Float64() < 0.3 {
		stop(e)
		e.Animation = AnimIdle
		d.RoamTimer = randomDuration(w, time.Second, 2*time.Second)
		return
	}

	dir := vec.FromAngle(rng.Float64() * 2 * math.Pi)
	e.Velocity = dir.Mul(e.Speed * 0.5)
	e.Facing = vec.FacingFromVector(dir)
	e.Animation = AnimWalk
	d.RoamTimer = randomDuration(w, 500*time.Millisecond, time.Second)
}

// nearestVisiblePlayer возвращает ближайшего живого игрока в радиусе обнаружения
func nearestVisiblePlayer(w WorldAPI, e *Entity) *Entity {
	d := e.Enemy
	if d.DetectionRange <= 0 {
		return nil
	}

	var best *Entity
	bestDist := 0.0
	for _, other := range w.EntitiesInRange(e.Center(), d.DetectionRange) {
		if other.Kind != KindPlayer || !other.Alive() {
			continue
		}
		dist := e.DistanceTo(other)
		if dist > d.DetectionRange {
			continue
		}
		if d.LineOfSight && !w.LineOfSight(e.Center(), other.Center()) {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = other, dist
		}
	}
	return best
}

func enemyChase(w WorldAPI, e *Entity) {
	d := e.Enemy

	target, ok := e.ResolveTarget(w)
	if !ok {
		stop(e)
		setState(e, StateIdle)
		return
	}

	dist := e.DistanceTo(target)
	if dist > d.DetectionRange*LoseTargetFactor {
		e.TargetID = 0
		stop(e)
		setState(e, StateIdle)
		return
	}

	if dist <= d.AttackRange {
		stop(e)
		face(e, target.Center())
		setState(e, StateAttack)
		return
	}

	moveToward(e, target.Center(), e.Speed)
	e.Animation = AnimWalk
}

func enemyAttack(w WorldAPI, e *Entity) {
	d := e.Enemy
	stop(e)

	target, ok := e.ResolveTarget(w)
	if !ok {
		setState(e, StateIdle)
		return
	}

	face(e, target.Center())

	if e.DistanceTo(target) > d.AttackRange {
		setState(e, StateChase)
		return
	}

	if d.AttackCooldown <= 0 {
		e.Animation = AnimAttack
		d.AttackCooldown = d.AttackSpeed
		target.TakeDamage(w, d.Damage, e.ID)
	}
}

func enemyTakeDamage(w WorldAPI, e *Entity, amount int, sourceID uint64) int {
	d := e.Enemy
	if d.Dead || !e.Active {
		return e.Health
	}

	e.Health -= amount
	if e.Health < 0 {
		e.Health = 0
	}

	// Агрессия на атакующего
	if sourceID != 0 && sourceID != e.ID {
		if src, ok := w.FindEntity(sourceID); ok && src.Alive() {
			e.TargetID = sourceID
		}
	}

	if e.Health <= 0 {
		enemyDie(w, e, sourceID)
		return 0
	}

	stop(e)
	e.State = StateHurt
	e.Animation = AnimHurt
	d.HurtTimer = HurtDuration
	return e.Health
}

// enemyDie переводит врага в терминальное состояние, выдаёт добычу и опыт
func enemyDie(w WorldAPI, e *Entity, killerID uint64) {
	d := e.Enemy
	d.Dead = true
	d.KillerID = killerID
	d.DeathTimer = DeathDelay
	e.TargetID = 0
	e.Solid = false
	stop(e)
	setState(e, StateDie)

	dropLoot(w, e)

	if killer, ok := w.FindEntity(killerID); ok && killer.Kind == KindPlayer && killer.Active {
		AddExperience(killer, d.ExperienceValue)
	}

	logging.GetEntityLogger().Debug("💀 %s (%d) убит сущностью %d", e.Name, e.ID, killerID)
}

func dropLoot(w WorldAPI, e *Entity) {
	rng := w.Rand()
	for _, entry := range e.Enemy.Loot {
		if rng.Float64() < entry.Chance {
			w.SpawnItem(entry.Item, e.Center())
		}
	}
}
