package entity

import (
	"math"
	"time"

	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/vec"
)

// ProjectileConfig параметры выстрела
type ProjectileConfig struct {
	SourceID       uint64
	Direction      vec.Vec2Float
	Speed          float64
	Damage         int
	Width, Height  float64
	Lifetime       time.Duration
	Piercing       bool
	FriendlyFire   bool
	KeepOnTerrain  bool // Не уничтожать при попадании в непроходимый тайл
	HitEffect      *EffectStyle
	TrailEffect    *EffectStyle
	TrailFrequency time.Duration
	HitSound       string
}

// DefaultProjectileConfig параметры обычного снаряда
func DefaultProjectileConfig() ProjectileConfig {
	return ProjectileConfig{
		Speed:          5,
		Damage:         10,
		Width:          16,
		Height:         16,
		Lifetime:       2 * time.Second,
		TrailFrequency: 100 * time.Millisecond,
		HitEffect:      &EffectStyle{Color: "#FFFF00"},
		HitSound:       "hit",
	}
}

// ProjectileData состояние снаряда
type ProjectileData struct {
	SourceID      uint64
	SourceKind    Kind
	Direction     vec.Vec2Float
	Damage        int
	Lifetime      time.Duration
	Piercing      bool
	FriendlyFire  bool
	KeepOnTerrain bool

	// HitEntities цели, уже получившие урон; каждая поражается не более одного раза
	HitEntities map[uint64]struct{}

	HitEffect      *EffectStyle
	TrailEffect    *EffectStyle
	TrailFrequency time.Duration
	sinceTrail     time.Duration
	HitSound       string
}

// NewProjectile создаёт снаряд. Снаряд не твёрдый: попадания он ищет сам.
func NewProjectile(w WorldAPI, id uint64, pos vec.Vec2Float, cfg ProjectileConfig) *Entity {
	def := DefaultProjectileConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = def.Lifetime
	}
	if cfg.TrailFrequency <= 0 {
		cfg.TrailFrequency = def.TrailFrequency
	}

	e := newEntity(id, KindProjectile, pos, cfg.Width, cfg.Height)
	e.Solid = false
	e.Friction = 1
	e.Speed = cfg.Speed
	setState(e, StateAlive)

	dir := cfg.Direction.Normalized()
	if dir.IsZero() {
		dir = vec.Vec2Float{X: 1}
	}
	e.Velocity = dir.Mul(cfg.Speed)
	e.Facing = vec.FacingFromVector(dir)

	sourceKind := KindPlayer
	if w != nil {
		if src, ok := w.FindEntity(cfg.SourceID); ok {
			sourceKind = src.Kind
		}
	}

	e.Projectile = &ProjectileData{
		SourceID:       cfg.SourceID,
		SourceKind:     sourceKind,
		Direction:      dir,
		Damage:         cfg.Damage,
		Lifetime:       cfg.Lifetime,
		Piercing:       cfg.Piercing,
		FriendlyFire:   cfg.FriendlyFire,
		KeepOnTerrain:  cfg.KeepOnTerrain,
		HitEntities:    make(map[uint64]struct{}),
		HitEffect:      cfg.HitEffect,
		TrailEffect:    cfg.TrailEffect,
		TrailFrequency: cfg.TrailFrequency,
		HitSound:       cfg.HitSound,
	}
	return e
}

func updateProjectile(w WorldAPI, e *Entity, dt time.Duration) {
	p := e.Projectile
	if e.State == StateDestroyed {
		return
	}

	e.Velocity = p.Direction.Mul(e.Speed)

	if tick(&p.Lifetime, dt) || p.Lifetime <= 0 {
		DestroyProjectile(w, e)
		return
	}
	// Край мира
	if e.AtBounds {
		DestroyProjectile(w, e)
		return
	}

	if p.TrailEffect != nil {
		p.sinceTrail += dt
		if p.sinceTrail >= p.TrailFrequency {
			p.sinceTrail = 0
			w.Effects().CreateEffect(EffectSpec{
				Position: e.Center(),
				Count:    1,
				Lifetime: 300 * time.Millisecond,
				Color:    p.TrailEffect.Color,
				Size:     Range{Min: 2, Max: 4},
				Speed:    Range{Min: 0.1, Max: 0.5},
			})
		}
	}

	checkProjectileHits(w, e)
	if !e.Active {
		return
	}
	checkProjectileTerrain(w, e)
}

// checkProjectileHits ищет пересечения с сущностями и твёрдой статикой
func checkProjectileHits(w WorldAPI, e *Entity) {
	p := e.Projectile
	bounds := e.Bounds()

	for _, obj := range w.Overlapping(bounds) {
		if !e.Active {
			return
		}
		body := obj.PhysicsBody()
		if body == &e.Body || !body.Active {
			continue
		}
		if !physics.CheckAABB(bounds, body.Bounds()).Collided {
			continue
		}

		target, isEntity := obj.(*Entity)
		if !isEntity {
			if body.Solid && !body.Sensor && !p.KeepOnTerrain {
				spawnHitEffect(w, e, e.Center())
				DestroyProjectile(w, e)
			}
			continue
		}
		ProjectileHit(w, e, target)
	}
}

func checkProjectileTerrain(w WorldAPI, e *Entity) {
	p := e.Projectile
	if p.KeepOnTerrain {
		return
	}
	c := e.Center()
	if !w.IsTileBlocking(c.X, c.Y) {
		return
	}

	hit := c
	if ts := w.TileSize(); ts > 0 {
		hit = vec.Vec2Float{
			X: math.Floor(c.X/ts)*ts + ts/2,
			Y: math.Floor(c.Y/ts)*ts + ts/2,
		}
	}
	spawnHitEffect(w, e, hit)
	DestroyProjectile(w, e)
}

// CanHit проверяет, может ли снаряд поразить цель
func CanHit(e, target *Entity) bool {
	p := e.Projectile
	if p == nil || !e.Active || target == e || !target.Alive() || !target.Solid {
		return false
	}
	if target.ID == p.SourceID {
		return false
	}
	if _, done := p.HitEntities[target.ID]; done {
		return false
	}
	if !p.FriendlyFire && target.Kind == p.SourceKind {
		return false
	}
	switch target.Kind {
	case KindPlayer, KindEnemy, KindNPC:
		return true
	default:
		return false
	}
}

// ProjectileHit наносит урон цели. Непробивающий снаряд уничтожается после первого попадания.
// Возвращает true, если урон был нанесён.
func ProjectileHit(w WorldAPI, e, target *Entity) bool {
	if !CanHit(e, target) {
		return false
	}
	p := e.Projectile
	p.HitEntities[target.ID] = struct{}{}

	target.TakeDamage(w, p.Damage, p.SourceID)
	spawnHitEffect(w, e, target.Center())
	if p.HitSound != "" {
		w.Audio().PlaySound(p.HitSound)
	}

	if !p.Piercing {
		DestroyProjectile(w, e)
	}
	return true
}

// DestroyProjectile уничтожает снаряд
func DestroyProjectile(w WorldAPI, e *Entity) {
	if e.State == StateDestroyed {
		return
	}
	stop(e)
	setState(e, StateDestroyed)
	w.Despawn(e)
}

func spawnHitEffect(w WorldAPI, e *Entity, at vec.Vec2Float) {
	style := e.Projectile.HitEffect
	if style == nil {
		return
	}
	w.Effects().CreateEffect(EffectSpec{
		Position: at,
		Count:    10,
		Lifetime: 500 * time.Millisecond,
		Color:    style.Color,
		Size:     Range{Min: 2, Max: 5},
		Speed:    Range{Min: 1, Max: 3},
	})
}
