package terrain

import (
	"math/rand"

	"github.com/aquilax/go-perlin"
)

// Пороговые высоты для генерации
const (
	DeepWaterMax    = 0.20 // Ниже - глубинная вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	SandMax         = 0.35 // Ниже - песчаный берег
	ForestStart     = 0.60 // Выше - лес
	MountainStart   = 0.80 // Выше - горы
)

// Noise генератор шума Перлина со своим сидом
type Noise struct {
	p *perlin.Perlin
}

// NewNoise создаёт генератор шума
func NewNoise(seed int64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// At возвращает значение шума в диапазоне от 0 до 1
func (n *Noise) At(x, y float64) float64 {
	v := (n.p.Noise2D(x, y) + 1.0) / 2.0
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Generator генерирует карту тайлов по сиду
type Generator struct {
	Seed       int64
	NoiseScale float64 // Масштаб шума высоты
	PathChance float64 // Шанс тропинки на траве
	Border     bool    // Обнести карту стеной
}

// NewGenerator создаёт генератор с параметрами по умолчанию
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.08,
		PathChance: 0.02,
		Border:     true,
	}
}

// Generate строит карту width x height тайлов
func (g *Generator) Generate(width, height int, tileSize float64) *TileMap {
	m := NewTileMap(width, height, tileSize)
	noise := NewNoise(g.Seed)
	rng := rand.New(rand.NewSource(g.Seed))

	for ty := 0; ty < height; ty++ {
		for tx := 0; tx < width; tx++ {
			h := noise.At(float64(tx)*g.NoiseScale, float64(ty)*g.NoiseScale)
			m.Set(tx, ty, g.tileForHeight(h, rng))
		}
	}

	if g.Border {
		for tx := 0; tx < width; tx++ {
			m.Set(tx, 0, TileWall)
			m.Set(tx, height-1, TileWall)
		}
		for ty := 0; ty < height; ty++ {
			m.Set(0, ty, TileWall)
			m.Set(width-1, ty, TileWall)
		}
	}

	return m
}

func (g *Generator) tileForHeight(h float64, rng *rand.Rand) Tile {
	switch {
	case h < DeepWaterMax:
		return TileDeepWater
	case h < ShallowWaterMax:
		return TileWater
	case h < SandMax:
		return TileSand
	case h >= MountainStart:
		return TileMountain
	case h >= ForestStart:
		return TileForest
	}
	if rng.Float64() < g.PathChance {
		return TilePath
	}
	return TileGrass
}

// FindOpen ищет ближайший к (tx, ty) проходимый тайл, обходя карту кольцами
func (m *TileMap) FindOpen(tx, ty int) (int, int, bool) {
	maxRadius := max(m.width, m.height)
	for r := 0; r <= maxRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				x, y := tx+dx, ty+dy
				if t, ok := m.Get(x, y); ok && !t.Blocking() {
					return x, y, true
				}
			}
		}
	}
	return 0, 0, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
