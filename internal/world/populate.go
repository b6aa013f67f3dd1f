package world

import (
	"fmt"
	"time"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/vec"
)

// Population численность стартового населения мира
type Population struct {
	Players int
	Enemies int
	NPCs    int
	Items   int
}

// defaultArea размер области расстановки без карты
const defaultArea = 1024.0

var demoItems = []entity.ItemStack{
	{ItemID: "potion_small", Name: "Малое зелье", ItemType: "potion", Value: 10, Quantity: 1, Stackable: true},
	{ItemID: "coin", Name: "Монета", ItemType: "misc", Value: 1, Quantity: 5, Stackable: true},
	{ItemID: "dagger", Name: "Кинжал", ItemType: "weapon", Value: 25, Quantity: 1},
}

// Populate расставляет игроков, врагов, NPC и предметы на проходимых тайлах.
// Возвращает ID созданных игроков.
func (s *Simulation) Populate(p Population) ([]uint64, error) {
	var players []uint64

	for i := 0; i < p.Players; i++ {
		e := entity.NewPlayer(0, fmt.Sprintf("player-%d", i+1), s.randomSpot(32, 32), 100)
		id, err := s.AddEntity(e)
		if err != nil {
			return nil, fmt.Errorf("populate players: %w", err)
		}
		players = append(players, id)
	}

	for i := 0; i < p.Enemies; i++ {
		cfg := entity.DefaultEnemyConfig()
		cfg.Name = fmt.Sprintf("slime-%d", i+1)
		cfg.LineOfSight = true
		cfg.Loot = []entity.LootEntry{
			{Item: demoItems[0], Chance: 0.5},
			{Item: demoItems[1], Chance: 0.8},
		}
		if _, err := s.AddEntity(entity.NewEnemy(0, s.randomSpot(cfg.Width, cfg.Height), cfg)); err != nil {
			return nil, fmt.Errorf("populate enemies: %w", err)
		}
	}

	for i := 0; i < p.NPCs; i++ {
		cfg := entity.NPCConfig{
			Name:      fmt.Sprintf("villager-%d", i+1),
			Dialogues: []string{"Доброго дня!", "Слизни опять расплодились.", "Береги себя."},
		}
		pos := s.randomSpot(32, 32)
		switch i % 3 {
		case 0:
			cfg.Behavior = entity.BehaviorWander
		case 1:
			cfg.Behavior = entity.BehaviorPatrol
			cfg.Waypoints = []entity.Waypoint{
				{Point: pos.Add(vec.Vec2Float{X: 16, Y: 16})},
				{Point: pos.Add(vec.Vec2Float{X: 112, Y: 16}), Pause: time.Second},
				{Point: pos.Add(vec.Vec2Float{X: 112, Y: 112})},
			}
		default:
			cfg.Behavior = entity.BehaviorFollow
		}
		npc := entity.NewNPC(0, pos, cfg)
		if cfg.Behavior == entity.BehaviorFollow && len(players) > 0 {
			entity.SetBehavior(npc, entity.BehaviorFollow, players[0])
		}
		if _, err := s.AddEntity(npc); err != nil {
			return nil, fmt.Errorf("populate npcs: %w", err)
		}
	}

	for i := 0; i < p.Items; i++ {
		stack := demoItems[s.rng.Intn(len(demoItems))]
		if _, err := s.AddEntity(entity.NewItem(0, s.randomSpot(24, 24), stack)); err != nil {
			return nil, fmt.Errorf("populate items: %w", err)
		}
	}

	s.log.Info("👥 Население: игроков %d, врагов %d, NPC %d, предметов %d", p.Players, p.Enemies, p.NPCs, p.Items)
	return players, nil
}

// randomSpot выбирает случайную проходимую позицию для бокса w x h
func (s *Simulation) randomSpot(w, h float64) vec.Vec2Float {
	if s.terrain == nil {
		return vec.Vec2Float{X: s.rng.Float64() * (defaultArea - w), Y: s.rng.Float64() * (defaultArea - h)}
	}

	tx, ty := s.rng.Intn(s.terrain.Width()), s.rng.Intn(s.terrain.Height())
	if ox, oy, ok := s.terrain.FindOpen(tx, ty); ok {
		tx, ty = ox, oy
	}
	ts := s.terrain.TileSize()
	center := vec.Vec2Float{X: (float64(tx) + 0.5) * ts, Y: (float64(ty) + 0.5) * ts}
	return center.Sub(vec.Vec2Float{X: w / 2, Y: h / 2})
}
