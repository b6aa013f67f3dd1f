package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/topdown-sim/internal/vec"
)

// NPC 32x32 в (0,0) имеет центр (16,16)
func newPatrolNPC(waypoints ...Waypoint) *Entity {
	return NewNPC(3, vec.Vec2Float{}, NPCConfig{
		Name:      "guard",
		Behavior:  BehaviorPatrol,
		Waypoints: waypoints,
	})
}

func TestNPCPatrolCyclesWaypoints(t *testing.T) {
	npc := newPatrolNPC(
		Waypoint{Point: vec.Vec2Float{X: 16, Y: 16}},
		Waypoint{Point: vec.Vec2Float{X: 116, Y: 16}},
	)
	w := newFakeWorld(npc)

	Update(w, npc, 16*time.Millisecond)
	assert.Equal(t, StatePatrol, npc.State)
	assert.Equal(t, 1, npc.NPC.CurrentWaypoint, "Достигнутая точка переключает маршрут")
	assert.Greater(t, npc.Velocity.X, 0.0)

	// Центр на второй точке, маршрут замыкается на первую
	npc.Position = vec.Vec2Float{X: 100, Y: 0}
	Update(w, npc, 16*time.Millisecond)
	assert.Equal(t, 0, npc.NPC.CurrentWaypoint)
	assert.Less(t, npc.Velocity.X, 0.0)
	assert.Equal(t, vec.FacingLeft, npc.Facing)
}

// Точки ближе ReachDistance друг к другу: NPC стоит, а цель меняется каждый тик
func TestNPCPatrolWaypointsWithinReach(t *testing.T) {
	npc := newPatrolNPC(
		Waypoint{Point: vec.Vec2Float{X: 0, Y: 0}},
		Waypoint{Point: vec.Vec2Float{X: 10, Y: 0}},
	)
	npc.Position = vec.Vec2Float{X: -16, Y: -16}
	w := newFakeWorld(npc)

	Update(w, npc, 16*time.Millisecond)
	assert.Equal(t, 1, npc.NPC.CurrentWaypoint)
	assert.True(t, npc.Velocity.IsZero())
	assert.Equal(t, AnimIdle, npc.Animation)

	Update(w, npc, 16*time.Millisecond)
	assert.Equal(t, 0, npc.NPC.CurrentWaypoint)
	assert.True(t, npc.Velocity.IsZero())
	assert.Equal(t, vec.Vec2Float{X: -16, Y: -16}, npc.Position)
}

func TestNPCPatrolPausesAtWaypoint(t *testing.T) {
	npc := newPatrolNPC(
		Waypoint{Point: vec.Vec2Float{X: 16, Y: 16}, Pause: 200 * time.Millisecond},
		Waypoint{Point: vec.Vec2Float{X: 16, Y: 116}},
	)
	w := newFakeWorld(npc)

	Update(w, npc, 16*time.Millisecond)
	require.True(t, npc.NPC.Pausing)
	assert.True(t, npc.Velocity.IsZero())
	assert.Equal(t, AnimIdle, npc.Animation)

	Update(w, npc, 100*time.Millisecond)
	assert.True(t, npc.NPC.Pausing)
	assert.True(t, npc.Velocity.IsZero())

	Update(w, npc, 100*time.Millisecond)
	assert.False(t, npc.NPC.Pausing)
	assert.Greater(t, npc.Velocity.Y, 0.0, "После паузы NPC идёт к следующей точке")
	assert.Equal(t, vec.FacingDown, npc.Facing)
}

func TestNPCPatrolWithoutWaypointsStands(t *testing.T) {
	npc := newPatrolNPC()
	npc.Velocity = vec.Vec2Float{X: 1}
	w := newFakeWorld(npc)

	Update(w, npc, 16*time.Millisecond)
	assert.True(t, npc.Velocity.IsZero())
}

func TestNPCFollow(t *testing.T) {
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 100, Y: 0}, 100)
	npc := NewNPC(3, vec.Vec2Float{}, NPCConfig{Behavior: BehaviorFollow})
	SetBehavior(npc, BehaviorFollow, player.ID)
	w := newFakeWorld(player, npc)

	Update(w, npc, 16*time.Millisecond)
	assert.Greater(t, npc.Velocity.X, 0.0, "Цель между stop и follow дистанциями")

	player.Position.X = 30
	Update(w, npc, 16*time.Millisecond)
	assert.True(t, npc.Velocity.IsZero(), "Слишком близко, стоим")

	player.Position.X = 200
	Update(w, npc, 16*time.Millisecond)
	assert.True(t, npc.Velocity.IsZero(), "Слишком далеко, перестаём следовать")

	w.entities = []*Entity{npc}
	Update(w, npc, 16*time.Millisecond)
	assert.Zero(t, npc.TargetID, "Пропавшая цель сбрасывается")
}

func TestNPCWanderLeash(t *testing.T) {
	npc := NewNPC(3, vec.Vec2Float{}, NPCConfig{Behavior: BehaviorWander})
	w := newFakeWorld(npc)
	origin := npc.NPC.Origin

	npc.Position = vec.Vec2Float{X: 300, Y: 0}
	Update(w, npc, 16*time.Millisecond)

	toOrigin := origin.Sub(npc.Center())
	assert.Greater(t, npc.Velocity.Dot(toOrigin), 0.0, "За пределами поводка NPC возвращается к точке старта")
	assert.Equal(t, StateWander, npc.State)
}

func TestNPCTalkAndEndTalk(t *testing.T) {
	player := NewPlayer(1, "hero", vec.Vec2Float{X: 40, Y: 0}, 100)
	npc := newPatrolNPC(Waypoint{Point: vec.Vec2Float{X: 500, Y: 16}})
	npc.NPC.Dialogues = []string{"Привет!", "Будь осторожен."}
	w := newFakeWorld(player, npc)

	require.True(t, Interact(w, npc, player))
	assert.Equal(t, StateTalk, npc.State)
	assert.Equal(t, AnimTalk, npc.Animation)
	assert.Equal(t, vec.FacingRight, npc.Facing)

	talks := w.eventsOf("npc-interact")
	require.Len(t, talks, 1)
	assert.Equal(t, "Привет!", talks[0].(NPCInteract).Line)

	Update(w, npc, time.Second)
	assert.Equal(t, StateTalk, npc.State, "Диалог длится до EndTalk")
	assert.True(t, npc.Velocity.IsZero())

	EndTalk(npc)
	assert.Equal(t, 1, npc.NPC.CurrentDialogue)

	Update(w, npc, 400*time.Millisecond)
	assert.Equal(t, StateTalk, npc.State)

	Update(w, npc, 100*time.Millisecond)
	assert.Equal(t, StatePatrol, npc.State, "Через 500 мс NPC возвращается к поведению")

	Interact(w, npc, player)
	assert.Equal(t, "Будь осторожен.", w.eventsOf("npc-interact")[1].(NPCInteract).Line)
}

func TestNPCIgnoresDamage(t *testing.T) {
	npc := NewNPC(3, vec.Vec2Float{}, NPCConfig{})
	w := newFakeWorld(npc)

	npc.TakeDamage(w, 50, 1)
	assert.True(t, npc.Alive())
	assert.Equal(t, StateIdle, npc.State)
}
