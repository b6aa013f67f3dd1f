package physics

import (
	"fmt"
	"math"
)

// DefaultCellSize размер ячейки по умолчанию (тайл)
const DefaultCellSize = 32.0

// SpatialIndex равномерная сетка для broad-phase поиска объектов по боксу.
// Индекс хранит только обратные ссылки и не владеет объектами.
// Не потокобезопасен: изменяется только циклом тика.
type SpatialIndex struct {
	cellSize float64
	cells    map[cellKey][]Object
	members  map[Object]cellRange
}

// cellKey представляет ключ ячейки в пространственной сетке
type cellKey struct {
	x, y int
}

// cellRange включительный диапазон ячеек, покрываемых боксом
type cellRange struct {
	minX, minY int
	maxX, maxY int
}

func (r cellRange) intersects(o cellRange) bool {
	return r.minX <= o.maxX && o.minX <= r.maxX && r.minY <= o.maxY && o.minY <= r.maxY
}

// NewSpatialIndex создаёт новый пространственный индекс
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if !(cellSize > 0) {
		cellSize = DefaultCellSize
	}

	return &SpatialIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Object),
		members:  make(map[Object]cellRange),
	}
}

// CellSize возвращает размер ячейки
func (si *SpatialIndex) CellSize() float64 {
	return si.cellSize
}

// Insert добавляет объект во все ячейки, которые покрывает его бокс.
// Повторная вставка того же объекта переносит его в актуальные ячейки без дублей.
func (si *SpatialIndex) Insert(obj Object) {
	if obj == nil {
		return
	}
	r := si.rangeFor(obj.PhysicsBody().Bounds())

	if old, exists := si.members[obj]; exists {
		if old == r {
			return
		}
		si.removeFromCells(obj, old)
	}

	for y := r.minY; y <= r.maxY; y++ {
		for x := r.minX; x <= r.maxX; x++ {
			key := cellKey{x: x, y: y}
			si.cells[key] = append(si.cells[key], obj)
		}
	}
	si.members[obj] = r
}

// Remove удаляет объект из всех ячеек, в которые он был вставлен
func (si *SpatialIndex) Remove(obj Object) {
	r, exists := si.members[obj]
	if !exists {
		return
	}
	si.removeFromCells(obj, r)
	delete(si.members, obj)
}

// Contains проверяет, проиндексирован ли объект
func (si *SpatialIndex) Contains(obj Object) bool {
	_, exists := si.members[obj]
	return exists
}

// Retrieve возвращает кандидатов из всех ячеек, пересекаемых боксом.
// Каждый объект возвращается один раз; порядок детерминирован (ячейки по строкам, затем порядок вставки).
func (si *SpatialIndex) Retrieve(box Rect) []Object {
	r := si.rangeFor(box)

	var result []Object
	seen := make(map[Object]struct{})

	for y := r.minY; y <= r.maxY; y++ {
		for x := r.minX; x <= r.maxX; x++ {
			for _, obj := range si.cells[cellKey{x: x, y: y}] {
				if _, wasSeen := seen[obj]; wasSeen {
					continue
				}
				seen[obj] = struct{}{}
				result = append(result, obj)
			}
		}
	}

	return result
}

// Clear удаляет всё содержимое сетки
func (si *SpatialIndex) Clear() {
	si.cells = make(map[cellKey][]Object)
	si.members = make(map[Object]cellRange)
}

// SharesCells проверяет, пересекаются ли диапазоны ячеек двух боксов
func (si *SpatialIndex) SharesCells(a, b Rect) bool {
	return si.rangeFor(a).intersects(si.rangeFor(b))
}

// GetCellCount возвращает количество непустых ячеек
func (si *SpatialIndex) GetCellCount() int {
	return len(si.cells)
}

// GetObjectCount возвращает количество проиндексированных объектов
func (si *SpatialIndex) GetObjectCount() int {
	return len(si.members)
}

// GetStats возвращает статистику индекса
func (si *SpatialIndex) GetStats() string {
	cellCount := len(si.cells)
	totalInCells := 0
	maxPerCell := 0

	for _, bucket := range si.cells {
		totalInCells += len(bucket)
		if len(bucket) > maxPerCell {
			maxPerCell = len(bucket)
		}
	}

	avgPerCell := 0.0
	if cellCount > 0 {
		avgPerCell = float64(totalInCells) / float64(cellCount)
	}

	return fmt.Sprintf("SpatialIndex Stats: %d objects, %d cells, avg %.2f objects/cell, max %d objects/cell",
		len(si.members), cellCount, avgPerCell, maxPerCell)
}

// Вспомогательные методы

// rangeFor вычисляет включительный диапазон ячеек для бокса.
// Границы мира здесь не учитываются: далёкие объекты индексируются по сырым координатам.
func (si *SpatialIndex) rangeFor(box Rect) cellRange {
	box = box.Sanitized()
	return cellRange{
		minX: int(math.Floor(box.X / si.cellSize)),
		minY: int(math.Floor(box.Y / si.cellSize)),
		maxX: int(math.Floor(box.Right() / si.cellSize)),
		maxY: int(math.Floor(box.Bottom() / si.cellSize)),
	}
}

func (si *SpatialIndex) removeFromCells(obj Object, r cellRange) {
	for y := r.minY; y <= r.maxY; y++ {
		for x := r.minX; x <= r.maxX; x++ {
			key := cellKey{x: x, y: y}
			bucket := si.cells[key]
			for i, candidate := range bucket {
				if candidate == obj {
					bucket = append(bucket[:i], bucket[i+1:]...)
					break
				}
			}
			if len(bucket) == 0 {
				delete(si.cells, key)
			} else {
				si.cells[key] = bucket
			}
		}
	}
}
