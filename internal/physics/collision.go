package physics

// Collision результат проверки пересечения двух боксов
type Collision struct {
	Collided bool
	OverlapX float64 // Глубина проникновения по X
	OverlapY float64 // Глубина проникновения по Y
	FromLeft bool    // a вошёл в b слева (проникновение с левой стороны меньше)
	FromTop  bool    // a вошёл в b сверху
}

// Axis ось разделения
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
)

// String возвращает строковое представление оси
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "none"
	}
}

// CheckAABB проверяет пересечение двух осевых боксов.
// Касание границами (нулевое перекрытие) пересечением не считается.
func CheckAABB(a, b Rect) Collision {
	aRight := a.Right()
	aBottom := a.Bottom()
	bRight := b.Right()
	bBottom := b.Bottom()

	if !(a.X < bRight && aRight > b.X && a.Y < bBottom && aBottom > b.Y) {
		return Collision{}
	}

	// Глубина проникновения с каждой стороны
	enterLeft := aRight - b.X
	enterRight := bRight - a.X
	enterTop := aBottom - b.Y
	enterBottom := bBottom - a.Y

	return Collision{
		Collided: true,
		OverlapX: min(enterLeft, enterRight),
		OverlapY: min(enterTop, enterBottom),
		FromLeft: enterLeft <= enterRight,
		FromTop:  enterTop <= enterBottom,
	}
}

// SeparationAxis выбирает ось наименьшего проникновения.
// При равенстве перекрытий всегда выбирается X.
func (c Collision) SeparationAxis() Axis {
	if !c.Collided {
		return AxisNone
	}
	if c.OverlapX <= c.OverlapY {
		return AxisX
	}
	return AxisY
}

// Resolve выталкивает entity из other по оси наименьшего проникновения
// и обнуляет соответствующую компоненту скорости. Возвращает использованную ось.
// Если other не твёрдый (или сенсор), ничего не делает.
func Resolve(entity, other *Body, c Collision) Axis {
	if !other.Solid || other.Sensor || !c.Collided {
		return AxisNone
	}

	axis := c.SeparationAxis()
	switch axis {
	case AxisX:
		if c.FromLeft {
			entity.Position.X = other.Position.X - entity.Size.X
		} else {
			entity.Position.X = other.Position.X + other.Size.X
		}
		entity.Velocity.X = 0
	case AxisY:
		if c.FromTop {
			entity.Position.Y = other.Position.Y - entity.Size.Y
			// Приземление при движении вниз
			if entity.Velocity.Y > 0 {
				entity.Grounded = true
			}
		} else {
			entity.Position.Y = other.Position.Y + other.Size.Y
		}
		entity.Velocity.Y = 0
	}

	return axis
}
