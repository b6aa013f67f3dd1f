package entity

import (
	"time"

	"github.com/annel0/topdown-sim/internal/vec"
)

// Update продвигает конечный автомат сущности на один тик.
// Поведение только выставляет скорость и намерения; перемещает тела физический мир.
func Update(w WorldAPI, e *Entity, dt time.Duration) {
	if !e.Active {
		return
	}

	switch e.Kind {
	case KindPlayer:
		updatePlayer(e, dt)
	case KindEnemy:
		updateEnemy(w, e, dt)
	case KindNPC:
		updateNPC(w, e, dt)
	case KindProjectile:
		updateProjectile(w, e, dt)
	case KindItem, KindObject:
		// Пассивные сущности реагируют только на столкновения и взаимодействие
	}
}

// Interact обрабатывает взаимодействие игрока с сущностью (клавиша действия)
func Interact(w WorldAPI, target, player *Entity) bool {
	if !target.Active || !player.Alive() {
		return false
	}
	switch target.Kind {
	case KindNPC:
		return npcInteract(w, target, player)
	case KindObject:
		return objectInteract(w, target, player)
	case KindItem:
		return Collect(w, target, player)
	default:
		return false
	}
}

// animationFor возвращает анимацию по умолчанию для состояния
func animationFor(s State) Animation {
	switch s {
	case StateChase, StateWander, StateFollow, StatePatrol:
		return AnimWalk
	case StateAttack:
		return AnimAttack
	case StateHurt:
		return AnimHurt
	case StateDie:
		return AnimDie
	case StateTalk:
		return AnimTalk
	case StateAlive:
		return AnimFly
	default:
		return AnimIdle
	}
}

// setState переключает состояние и анимацию
func setState(e *Entity, s State) {
	if e.State == s {
		return
	}
	e.State = s
	e.Animation = animationFor(s)
}

// stop обнуляет скорость
func stop(e *Entity) {
	e.Velocity = vec.Vec2Float{}
}

// moveToward задаёт скорость в направлении точки и разворачивает сущность
func moveToward(e *Entity, to vec.Vec2Float, speed float64) {
	dir := to.Sub(e.Center())
	if dir.IsZero() {
		stop(e)
		return
	}
	e.Velocity = dir.Normalized().Mul(speed)
	e.Facing = vec.FacingFromVector(dir)
}

// face разворачивает сущность к точке, не трогая скорость
func face(e *Entity, to vec.Vec2Float) {
	dir := to.Sub(e.Center())
	if !dir.IsZero() {
		e.Facing = vec.FacingFromVector(dir)
	}
}

// tick уменьшает таймер и сообщает, истёк ли он на этом тике
func tick(timer *time.Duration, dt time.Duration) bool {
	if *timer <= 0 {
		return false
	}
	*timer -= dt
	return *timer <= 0
}

// randomDuration возвращает значение в [base, base+spread)
func randomDuration(w WorldAPI, base, spread time.Duration) time.Duration {
	return base + time.Duration(w.Rand().Float64()*float64(spread))
}
