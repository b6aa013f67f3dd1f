package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/topdown-sim/internal/vec"
)

func newTestEnemy(id uint64, x, y float64) *Entity {
	return NewEnemy(id, vec.Vec2Float{X: x, Y: y}, DefaultEnemyConfig())
}

func TestEnemyDetectsPlayerInRange(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 150, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	Update(w, enemy, 16*time.Millisecond)

	assert.Equal(t, StateChase, enemy.State, "Игрок на расстоянии 150 должен быть обнаружен")
	assert.Equal(t, player.ID, enemy.TargetID)
	assert.Greater(t, enemy.Velocity.X, 0.0, "Враг должен двигаться к игроку")
	assert.InDelta(t, enemy.Speed, enemy.Velocity.Length(), 1e-9)
	assert.Equal(t, vec.FacingRight, enemy.Facing)
	assert.Equal(t, AnimWalk, enemy.Animation)
}

func TestEnemyIgnoresPlayerOutOfRange(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 250, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	Update(w, enemy, 16*time.Millisecond)

	assert.Equal(t, StateIdle, enemy.State)
	assert.Zero(t, enemy.TargetID)
}

func TestEnemyDetectionRequiresLineOfSight(t *testing.T) {
	cfg := DefaultEnemyConfig()
	cfg.LineOfSight = true
	enemy := NewEnemy(2, vec.Vec2Float{}, cfg)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 100, Y: 0}, 100)
	w := newFakeWorld(player, enemy)
	w.blockSight = true

	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, StateIdle, enemy.State, "Игрок за стеной не должен быть обнаружен")

	w.blockSight = false
	enemy.Enemy.RoamTimer = 0
	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, StateChase, enemy.State)
}

func TestEnemyLosesTargetWithHysteresis(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 150, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	Update(w, enemy, 16*time.Millisecond)
	require.Equal(t, StateChase, enemy.State)

	// За радиусом обнаружения, но в пределах 1.5x: преследование продолжается
	player.Position.X = 299
	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, StateChase, enemy.State, "Цель теряется только дальше 1.5x радиуса")

	player.Position.X = 301
	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, StateIdle, enemy.State)
	assert.Zero(t, enemy.TargetID, "Цель должна быть сброшена")
	assert.True(t, enemy.Velocity.IsZero())
}

func TestEnemyAttackCooldown(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 20, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	Update(w, enemy, 16*time.Millisecond)
	require.Equal(t, StateAttack, enemy.State)
	assert.Equal(t, 100, player.Health, "Переход в атаку ещё не наносит урон")

	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, 90, player.Health)
	assert.Equal(t, vec.FacingRight, enemy.Facing)

	for i := 0; i < 10; i++ {
		Update(w, enemy, 16*time.Millisecond)
	}
	assert.Equal(t, 90, player.Health, "Урон не должен наноситься до окончания перезарядки")

	Update(w, enemy, time.Second)
	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, 80, player.Health)
	assert.Len(t, w.eventsOf("player-damaged"), 2)
}

func TestEnemyHurtReturnsToChaseAfterTimeout(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 100, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	remaining := enemy.TakeDamage(w, 5, player.ID)
	assert.Equal(t, 45, remaining)
	require.Equal(t, StateHurt, enemy.State)
	assert.Equal(t, player.ID, enemy.TargetID, "Враг должен запомнить атакующего")

	Update(w, enemy, 100*time.Millisecond)
	Update(w, enemy, 100*time.Millisecond)
	assert.Equal(t, StateHurt, enemy.State, "Оглушение длится 300 мс")

	Update(w, enemy, 100*time.Millisecond)
	assert.Equal(t, StateChase, enemy.State)
}

func TestEnemyHurtWithoutAggressorReturnsToIdle(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	w := newFakeWorld(enemy)

	enemy.TakeDamage(w, 5, 0)
	require.Equal(t, StateHurt, enemy.State)

	Update(w, enemy, 300*time.Millisecond)
	assert.Equal(t, StateIdle, enemy.State)
}

func TestEnemyDeathDropsLootAndAwardsExperience(t *testing.T) {
	cfg := DefaultEnemyConfig()
	cfg.Loot = []LootEntry{
		{Item: ItemStack{ItemID: "coin", Name: "Монета", Quantity: 1}, Chance: 1},
		{Item: ItemStack{ItemID: "gem", Name: "Камень"}, Chance: 0},
	}
	enemy := NewEnemy(2, vec.Vec2Float{}, cfg)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 100, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	remaining := enemy.TakeDamage(w, 60, player.ID)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, StateDie, enemy.State)
	assert.True(t, enemy.Enemy.Dead)
	assert.False(t, enemy.Solid, "Тело мёртвого врага не должно блокировать движение")
	assert.Equal(t, 10, player.Player.Experience)
	require.Len(t, w.spawned, 1)
	assert.Equal(t, "coin", w.spawned[0].Item.Stack.ItemID)

	// Повторный урон по мёртвому врагу игнорируется
	assert.Equal(t, 0, enemy.TakeDamage(w, 10, player.ID))

	Update(w, enemy, 500*time.Millisecond)
	assert.Empty(t, w.eventsOf("enemy-death"))
	assert.True(t, enemy.Active)

	Update(w, enemy, 500*time.Millisecond)
	events := w.eventsOf("enemy-death")
	require.Len(t, events, 1)
	death := events[0].(EnemyDeath)
	assert.Equal(t, enemy.ID, death.EnemyID)
	assert.Equal(t, player.ID, death.KillerID)
	assert.False(t, enemy.Active)

	// Терминальное состояние: дальнейшие обновления ничего не делают
	Update(w, enemy, time.Second)
	assert.Len(t, w.eventsOf("enemy-death"), 1)
}

func TestEnemyDropsTargetWhenItDisappears(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 100, Y: 0}, 100)
	w := newFakeWorld(player, enemy)

	Update(w, enemy, 16*time.Millisecond)
	require.Equal(t, StateChase, enemy.State)

	w.entities = []*Entity{enemy}
	Update(w, enemy, 16*time.Millisecond)
	assert.Equal(t, StateIdle, enemy.State)
	assert.Zero(t, enemy.TargetID)
}

func TestEnemyRoamsWhenIdle(t *testing.T) {
	enemy := newTestEnemy(2, 0, 0)
	w := newFakeWorld(enemy)

	walked := false
	for i := 0; i < 50; i++ {
		Update(w, enemy, 500*time.Millisecond)
		if !enemy.Velocity.IsZero() {
			walked = true
			assert.InDelta(t, enemy.Speed*0.5, enemy.Velocity.Length(), 1e-9, "Бродит на половине скорости")
		}
		assert.Equal(t, StateIdle, enemy.State)
	}
	assert.True(t, walked)
}
