package entity

import (
	"math"
	"time"

	"github.com/annel0/topdown-sim/internal/vec"
)

// NPCBehavior базовое поведение NPC вне диалога
type NPCBehavior uint8

const (
	BehaviorIdle NPCBehavior = iota
	BehaviorWander
	BehaviorFollow
	BehaviorPatrol
)

func (b NPCBehavior) state() State {
	switch b {
	case BehaviorWander:
		return StateWander
	case BehaviorFollow:
		return StateFollow
	case BehaviorPatrol:
		return StatePatrol
	default:
		return StateIdle
	}
}

// TalkEndDelay задержка перед возвратом к поведению после конца диалога
const TalkEndDelay = 500 * time.Millisecond

// Waypoint точка маршрута патруля с необязательной паузой
type Waypoint struct {
	Point vec.Vec2Float
	Pause time.Duration
}

// NPCConfig параметры нового NPC
type NPCConfig struct {
	Name           string
	Behavior       NPCBehavior
	Speed          float64
	WanderDistance float64
	FollowDistance float64
	StopDistance   float64
	ReachDistance  float64
	Waypoints      []Waypoint
	Dialogues      []string
}

// NPCData состояние NPC
type NPCData struct {
	Behavior       NPCBehavior
	Origin         vec.Vec2Float // Центр, вокруг которого NPC бродит
	WanderDistance float64
	FollowDistance float64
	StopDistance   float64
	ReachDistance  float64

	Waypoints       []Waypoint
	CurrentWaypoint int
	Pausing         bool

	WalkTimer time.Duration

	Dialogues       []string
	CurrentDialogue int
	TalkTimer       time.Duration // >0: диалог завершается
	TalkingTo       uint64
}

// NewNPC создаёт NPC
func NewNPC(id uint64, pos vec.Vec2Float, cfg NPCConfig) *Entity {
	if cfg.Speed <= 0 {
		cfg.Speed = 1.5
	}
	if cfg.WanderDistance <= 0 {
		cfg.WanderDistance = 150
	}
	if cfg.FollowDistance <= 0 {
		cfg.FollowDistance = 150
	}
	if cfg.StopDistance <= 0 {
		cfg.StopDistance = 40
	}
	if cfg.ReachDistance <= 0 {
		cfg.ReachDistance = 10
	}

	e := newEntity(id, KindNPC, pos, 32, 32)
	if cfg.Name != "" {
		e.Name = cfg.Name
	}
	e.Speed = cfg.Speed
	e.NPC = &NPCData{
		Behavior:       cfg.Behavior,
		Origin:         e.Center(),
		WanderDistance: cfg.WanderDistance,
		FollowDistance: cfg.FollowDistance,
		StopDistance:   cfg.StopDistance,
		ReachDistance:  cfg.ReachDistance,
		Waypoints:      cfg.Waypoints,
		Dialogues:      cfg.Dialogues,
	}
	setState(e, cfg.Behavior.state())
	if cfg.Behavior == BehaviorIdle {
		e.Animation = AnimIdle
	}
	return e
}

// SetBehavior переключает базовое поведение NPC
func SetBehavior(e *Entity, b NPCBehavior, targetID uint64) {
	if e.NPC == nil {
		return
	}
	e.NPC.Behavior = b
	e.NPC.Pausing = false
	e.NPC.WalkTimer = 0
	if b == BehaviorFollow {
		e.TargetID = targetID
	}
	if e.State != StateTalk {
		setState(e, b.state())
	}
}

func updateNPC(w WorldAPI, e *Entity, dt time.Duration) {
	n := e.NPC

	if e.State == StateTalk {
		stop(e)
		if tick(&n.TalkTimer, dt) {
			n.TalkingTo = 0
			setState(e, n.Behavior.state())
		}
		return
	}

	switch n.Behavior {
	case BehaviorWander:
		npcWander(w, e, dt)
	case BehaviorFollow:
		npcFollow(w, e)
	case BehaviorPatrol:
		npcPatrol(e, dt)
	default:
		stop(e)
		e.Animation = AnimIdle
	}
}

// npcWander случайно ходит или стоит (70/30) и не уходит от Origin дальше поводка
func npcWander(w WorldAPI, e *Entity, dt time.Duration) {
	n := e.NPC

	n.WalkTimer -= dt
	if n.WalkTimer <= 0 {
		rng := w.Rand()
		if rng.Float64() < 0.7 {
			dir := vec.FromAngle(rng.Float64() * 2 * math.Pi)
			e.Velocity = dir.Mul(e.Speed)
			e.Facing = vec.FacingFromVector(dir)
			e.Animation = AnimWalk
			n.WalkTimer = randomDuration(w, time.Second, 2*time.Second)
		} else {
			stop(e)
			e.Animation = AnimIdle
			n.WalkTimer = randomDuration(w, 2*time.Second, 3*time.Second)
		}
	}

	if e.Center().DistanceTo(n.Origin) > n.WanderDistance {
		moveToward(e, n.Origin, e.Speed)
		e.Animation = AnimWalk
	}
}

func npcFollow(w WorldAPI, e *Entity) {
	n := e.NPC

	target, ok := e.ResolveTarget(w)
	if !ok {
		stop(e)
		e.Animation = AnimIdle
		return
	}

	dist := e.DistanceTo(target)
	if dist > n.StopDistance && dist < n.FollowDistance {
		moveToward(e, target.Center(), e.Speed)
		e.Animation = AnimWalk
		return
	}

	stop(e)
	face(e, target.Center())
	e.Animation = AnimIdle
}

// npcPatrol обходит точки по кругу, выдерживая паузы на точках
func npcPatrol(e *Entity, dt time.Duration) {
	n := e.NPC
	if len(n.Waypoints) == 0 {
		stop(e)
		e.Animation = AnimIdle
		return
	}

	if n.Pausing {
		stop(e)
		if !tick(&n.WalkTimer, dt) {
			return
		}
		n.Pausing = false
	}

	n.CurrentWaypoint %= len(n.Waypoints)
	wp := n.Waypoints[n.CurrentWaypoint]

	if e.Center().DistanceTo(wp.Point) <= n.ReachDistance {
		n.CurrentWaypoint = (n.CurrentWaypoint + 1) % len(n.Waypoints)
		if wp.Pause > 0 {
			stop(e)
			e.Animation = AnimIdle
			n.WalkTimer = wp.Pause
			n.Pausing = true
			return
		}
		wp = n.Waypoints[n.CurrentWaypoint]
	}

	if e.Center().DistanceTo(wp.Point) > n.ReachDistance {
		moveToward(e, wp.Point, e.Speed)
		e.Animation = AnimWalk
		return
	}
	stop(e)
	e.Animation = AnimIdle
}

// npcInteract начинает диалог с игроком
func npcInteract(w WorldAPI, e, player *Entity) bool {
	n := e.NPC
	stop(e)
	face(e, player.Center())
	setState(e, StateTalk)
	n.TalkTimer = 0
	n.TalkingTo = player.ID

	line := ""
	if len(n.Dialogues) > 0 {
		line = n.Dialogues[n.CurrentDialogue%len(n.Dialogues)]
	}
	w.Emit(NPCInteract{NPCID: e.ID, PlayerID: player.ID, Speaker: e.Name, Line: line})
	return true
}

// EndTalk завершает диалог: NPC переходит к следующей реплике
// и возвращается к поведению через TalkEndDelay.
func EndTalk(e *Entity) {
	n := e.NPC
	if n == nil || e.State != StateTalk {
		return
	}
	if len(n.Dialogues) > 0 {
		n.CurrentDialogue = (n.CurrentDialogue + 1) % len(n.Dialogues)
	}
	n.TalkTimer = TalkEndDelay
}
