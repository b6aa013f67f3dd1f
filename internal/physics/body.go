package physics

import (
	"github.com/annel0/topdown-sim/internal/vec"
)

// MinExtent минимальный размер стороны бокса; вырожденные боксы растягиваются до него
const MinExtent = 1.0

// Rect описывает осевой прямоугольник (левый верхний угол + размер)
type Rect struct {
	X, Y float64
	W, H float64
}

// Right возвращает правую границу
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom возвращает нижнюю границу
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center возвращает центр прямоугольника
func (r Rect) Center() vec.Vec2Float {
	return vec.Vec2Float{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// ContainsPoint проверяет попадание точки (границы включительно)
func (r Rect) ContainsPoint(p vec.Vec2Float) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Sanitized возвращает прямоугольник с корректными размерами.
// Нулевые и отрицательные стороны заменяются на MinExtent.
func (r Rect) Sanitized() Rect {
	if !(r.W > 0) {
		r.W = MinExtent
	}
	if !(r.H > 0) {
		r.H = MinExtent
	}
	return r
}

// RectAround строит прямоугольник с центром в точке
func RectAround(center vec.Vec2Float, w, h float64) Rect {
	return Rect{X: center.X - w/2, Y: center.Y - h/2, W: w, H: h}
}

// Body физическое представление сущности или статического объекта
type Body struct {
	ID       uint64        // Идентификатор владельца
	Position vec.Vec2Float // Левый верхний угол бокса
	Size     vec.Vec2Float // Ширина и высота бокса
	Velocity vec.Vec2Float // Смещение за опорный кадр

	Solid    bool    // Участвует в разрешении столкновений
	Sensor   bool    // Сообщает о пересечениях, но никогда не выталкивает
	Group    Group   // Группа столкновений
	Friction float64 // Множитель скорости за опорный кадр; при <=0 или >=1 трения нет
	Gravity  bool    // Подвержено гравитации мира
	Grounded bool    // Стоит на опоре (зарезервировано под гравитацию)
	AtBounds bool    // На последнем шаге упёрлось в границу мира
	Static   bool    // Выставляется миром для статических объектов
	Active   bool    // false: помечено на удаление
}

// PhysicsBody реализует Object
func (b *Body) PhysicsBody() *Body { return b }

// Bounds возвращает текущий бокс тела
func (b *Body) Bounds() Rect {
	return Rect{X: b.Position.X, Y: b.Position.Y, W: b.Size.X, H: b.Size.Y}
}

// Center возвращает центр бокса
func (b *Body) Center() vec.Vec2Float {
	return b.Bounds().Center()
}

// Object любой объект, которым может управлять физический мир.
// Сущности встраивают Body и получают реализацию автоматически.
type Object interface {
	PhysicsBody() *Body
}

// StaticObject неподвижный объект (стена, камень, дерево)
type StaticObject struct {
	Body
	Name string
}

// NewStaticObject создаёт твёрдый статический объект
func NewStaticObject(id uint64, name string, bounds Rect) *StaticObject {
	bounds = bounds.Sanitized()
	return &StaticObject{
		Body: Body{
			ID:       id,
			Position: vec.Vec2Float{X: bounds.X, Y: bounds.Y},
			Size:     vec.Vec2Float{X: bounds.W, Y: bounds.H},
			Solid:    true,
			Group:    GroupSolid,
			Friction: 1,
			Static:   true,
			Active:   true,
		},
		Name: name,
	}
}
