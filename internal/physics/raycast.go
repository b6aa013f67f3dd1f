package physics

import (
	"errors"
	"math"

	"github.com/annel0/topdown-sim/internal/vec"
)

// DefaultRayStep шаг луча по умолчанию
const DefaultRayStep = 2.0

// probeSize размер пробного бокса вокруг точки луча
const probeSize = 2.0

// ErrZeroDirection возвращается для луча с нулевым направлением
var ErrZeroDirection = errors.New("ray direction has zero length")

// RayHit результат бросания луча
type RayHit struct {
	Hit      bool
	Object   Object        // Задет только при Hit
	Distance float64       // Пройденное расстояние (maxDistance при промахе)
	Point    vec.Vec2Float // Точка попадания или конец луча
	Normal   vec.Vec2Float // Приближённая нормаль поверхности (только при Hit)
}

// RayFilter позволяет исключить объекты из проверки (например, самого стрелка)
type RayFilter func(obj Object) bool

// RayCaster шагает пробной точкой вдоль луча по пространственной сетке
type RayCaster struct {
	index *SpatialIndex
	step  float64
}

// NewRayCaster создаёт луч-кастер поверх индекса
func NewRayCaster(index *SpatialIndex, step float64) *RayCaster {
	if !(step > 0) {
		step = DefaultRayStep
	}
	return &RayCaster{index: index, step: step}
}

// Cast бросает луч из origin в направлении dir не дальше maxDistance.
// Возвращает первое попадание в активный твёрдый объект, который не отброшен filter.
func (rc *RayCaster) Cast(origin, dir vec.Vec2Float, maxDistance float64, filter RayFilter) (RayHit, error) {
	length := dir.Length()
	if length == 0 || math.IsNaN(length) {
		return RayHit{}, ErrZeroDirection
	}
	dir = dir.Mul(1 / length)

	if maxDistance <= 0 {
		return RayHit{Point: origin}, nil
	}

	maxSteps := int(math.Ceil(maxDistance / rc.step))
	current := origin

	for i := 1; i <= maxSteps; i++ {
		distance := math.Min(float64(i)*rc.step, maxDistance)
		current = origin.Add(dir.Mul(distance))

		probe := RectAround(current, probeSize, probeSize)
		for _, obj := range rc.index.Retrieve(probe) {
			body := obj.PhysicsBody()
			if !body.Active || !body.Solid || body.Sensor {
				continue
			}
			if filter != nil && !filter(obj) {
				continue
			}
			bounds := body.Bounds()
			if !bounds.ContainsPoint(current) {
				continue
			}

			return RayHit{
				Hit:      true,
				Object:   obj,
				Distance: distance,
				Point:    current,
				Normal:   SurfaceNormal(bounds, current),
			}, nil
		}
	}

	return RayHit{
		Distance: maxDistance,
		Point:    origin.Add(dir.Mul(maxDistance)),
	}, nil
}

// SurfaceNormal приближает нормаль поверхности в точке попадания:
// смещение от центра нормируется на полуразмеры, выбирается ось с большим смещением.
func SurfaceNormal(bounds Rect, hit vec.Vec2Float) vec.Vec2Float {
	center := bounds.Center()
	sx := (hit.X - center.X) / (bounds.W / 2)
	sy := (hit.Y - center.Y) / (bounds.H / 2)

	if math.Abs(sx) > math.Abs(sy) {
		if sx > 0 {
			return vec.Vec2Float{X: 1, Y: 0}
		}
		return vec.Vec2Float{X: -1, Y: 0}
	}
	if sy > 0 {
		return vec.Vec2Float{X: 0, Y: 1}
	}
	return vec.Vec2Float{X: 0, Y: -1}
}
