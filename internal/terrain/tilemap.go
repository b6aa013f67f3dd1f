package terrain

import (
	"fmt"
	"math"

	"github.com/annel0/topdown-sim/internal/physics"
)

// DefaultTileSize размер тайла в мировых единицах
const DefaultTileSize = 32.0

// Tile тип тайла карты
type Tile uint8

const (
	TileGrass Tile = iota
	TileSand
	TilePath
	TileForest
	TileWater
	TileDeepWater
	TileMountain
	TileWall
)

var tileNames = [...]string{
	TileGrass:     "grass",
	TileSand:      "sand",
	TilePath:      "path",
	TileForest:    "forest",
	TileWater:     "water",
	TileDeepWater: "deep_water",
	TileMountain:  "mountain",
	TileWall:      "wall",
}

func (t Tile) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("tile(%d)", uint8(t))
}

// Blocking непроходимый тайл (вода, горы, стены)
func (t Tile) Blocking() bool {
	switch t {
	case TileWater, TileDeepWater, TileMountain, TileWall:
		return true
	default:
		return false
	}
}

// ParseTile разбирает имя тайла
func ParseTile(name string) (Tile, error) {
	for i, n := range tileNames {
		if n == name {
			return Tile(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tile %q", name)
}

// TileMap прямоугольная карта тайлов. Карта только читается во время тика.
type TileMap struct {
	width, height int
	tileSize      float64
	tiles         []Tile
}

// NewTileMap создаёт карту, заполненную травой
func NewTileMap(width, height int, tileSize float64) *TileMap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if !(tileSize > 0) {
		tileSize = DefaultTileSize
	}
	return &TileMap{
		width:    width,
		height:   height,
		tileSize: tileSize,
		tiles:    make([]Tile, width*height),
	}
}

// Width ширина карты в тайлах
func (m *TileMap) Width() int { return m.width }

// Height высота карты в тайлах
func (m *TileMap) Height() int { return m.height }

// TileSize размер тайла
func (m *TileMap) TileSize() float64 { return m.tileSize }

// InBounds проверяет координаты тайла
func (m *TileMap) InBounds(tx, ty int) bool {
	return tx >= 0 && ty >= 0 && tx < m.width && ty < m.height
}

// Get возвращает тайл по координатам тайла
func (m *TileMap) Get(tx, ty int) (Tile, bool) {
	if !m.InBounds(tx, ty) {
		return 0, false
	}
	return m.tiles[ty*m.width+tx], true
}

// Set устанавливает тайл; координаты вне карты игнорируются
func (m *TileMap) Set(tx, ty int, t Tile) {
	if m.InBounds(tx, ty) {
		m.tiles[ty*m.width+tx] = t
	}
}

// TileCoords переводит мировые координаты в координаты тайла
func (m *TileMap) TileCoords(x, y float64) (int, int) {
	return int(math.Floor(x / m.tileSize)), int(math.Floor(y / m.tileSize))
}

// TileAt возвращает тайл в мировых координатах
func (m *TileMap) TileAt(x, y float64) (Tile, bool) {
	return m.Get(m.TileCoords(x, y))
}

// IsBlocking проверяет непроходимость тайла в мировых координатах.
// Точки за пределами карты не блокируют.
func (m *TileMap) IsBlocking(x, y float64) bool {
	t, ok := m.TileAt(x, y)
	return ok && t.Blocking()
}

// BlockingRects возвращает боксы непроходимых тайлов.
// Соседние непроходимые тайлы одной строки сливаются в один бокс.
func (m *TileMap) BlockingRects() []physics.Rect {
	var rects []physics.Rect
	for ty := 0; ty < m.height; ty++ {
		start := -1
		for tx := 0; tx <= m.width; tx++ {
			blocking := tx < m.width && m.tiles[ty*m.width+tx].Blocking()
			switch {
			case blocking && start < 0:
				start = tx
			case !blocking && start >= 0:
				rects = append(rects, physics.Rect{
					X: float64(start) * m.tileSize,
					Y: float64(ty) * m.tileSize,
					W: float64(tx-start) * m.tileSize,
					H: m.tileSize,
				})
				start = -1
			}
		}
	}
	return rects
}

// Count возвращает количество тайлов каждого типа
func (m *TileMap) Count() map[Tile]int {
	counts := make(map[Tile]int)
	for _, t := range m.tiles {
		counts[t]++
	}
	return counts
}

// Bounds возвращает границы карты в мировых координатах
func (m *TileMap) Bounds() physics.Rect {
	return physics.Rect{W: float64(m.width) * m.tileSize, H: float64(m.height) * m.tileSize}
}
